package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// ══════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers so a single bad update never takes the bot
// down. Users get a calm message; the log gets the stack trace.
// ══════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// UserErrorMessage is the message sent to users when a panic occurs.
	UserErrorMessage string

	// OnPanic is called when a panic is recovered. This is where alerts to
	// monitoring systems would go.
	OnPanic func(ctx context.Context, info *PanicInfo)

	// Logger receives the recovered panic. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		UserErrorMessage: "Ocurrió un error inesperado. Inténtalo de nuevo en unos minutos.",
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	// Error is the panic value converted to error.
	Error error

	// PanicValue is the raw panic value.
	PanicValue any

	// StackTrace is the formatted stack trace.
	StackTrace string

	// User is the user whose update was being processed.
	User tutor.UserID

	// Command is the command that was being processed (if any).
	Command string

	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

// RecoveryMiddleware recovers from panics in update handlers.
type RecoveryMiddleware struct {
	config RecoveryConfig
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.UserErrorMessage == "" {
		config.UserErrorMessage = DefaultRecoveryConfig().UserErrorMessage
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryMiddleware{config: config, logger: logger}
}

// RecoveryResult is what the router receives after a handler runs.
type RecoveryResult struct {
	// Recovered indicates a panic was caught.
	Recovered bool

	// PanicInfo contains panic details when Recovered is true.
	PanicInfo *PanicInfo

	// UserMessage is what to send the user when Recovered is true.
	UserMessage string

	// Err is the handler's error when no panic occurred.
	Err error
}

// RecoverWithHandler executes a handler and converts any panic into a
// RecoveryResult instead of crashing the polling loop.
func (m *RecoveryMiddleware) RecoverWithHandler(
	ctx context.Context,
	user tutor.UserID,
	command string,
	handler func() error,
) (result *RecoveryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(ctx, r, user, command)
		}
	}()

	err := handler()
	return &RecoveryResult{Err: err}
}

func (m *RecoveryMiddleware) handlePanic(ctx context.Context, panicValue any, user tutor.UserID, command string) *RecoveryResult {
	info := &PanicInfo{
		Error:      toError(panicValue),
		PanicValue: panicValue,
		Timestamp:  time.Now(),
		User:       user,
		Command:    command,
	}

	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	m.logger.Error("panic recovered in handler",
		slog.Int64("user_id", int64(user)),
		slog.String("command", command),
		slog.Any("panic", panicValue),
		slog.String("stack", info.StackTrace),
	)

	if m.config.OnPanic != nil {
		m.config.OnPanic(ctx, info)
	}

	return &RecoveryResult{
		Recovered:   true,
		PanicInfo:   info,
		UserMessage: m.config.UserErrorMessage,
	}
}

func toError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
