package telegram

import (
	"context"
	"strings"
	"sync"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/external/telegram"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/handler"
)

// ══════════════════════════════════════════════════════════════════════════
// ROUTING CONTEXT TYPES
// ══════════════════════════════════════════════════════════════════════════

// CommandContext carries one parsed command through routing.
type CommandContext struct {
	// User is the sender's Telegram user ID.
	User tutor.UserID

	// ChatID is where the reply goes.
	ChatID int64

	// Args is the text after the command, trimmed.
	Args string

	// Message is the original message, when the command came from one.
	Message *telegram.Message
}

// CallbackContext carries one inline-keyboard callback through routing.
type CallbackContext struct {
	User    tutor.UserID
	ChatID  int64
	QueryID string
	Data    string
}

// CommandFunc handles one command and returns the reply to send.
type CommandFunc func(ctx context.Context, cmdCtx CommandContext) (*handler.Response, error)

// CallbackFunc handles one callback and returns the reply to send. A nil
// response means the callback was consumed silently.
type CallbackFunc func(ctx context.Context, cbCtx CallbackContext) (*handler.Response, error)

// ══════════════════════════════════════════════════════════════════════════
// ROUTER
// Maps command names and callback-data prefixes to handler funcs.
// ══════════════════════════════════════════════════════════════════════════

// Router routes commands and callbacks to their registered handlers.
type Router struct {
	mu        sync.RWMutex
	commands  map[string]CommandFunc
	callbacks map[string]CallbackFunc

	unknownCommand CommandFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		commands:  make(map[string]CommandFunc),
		callbacks: make(map[string]CallbackFunc),
	}
}

// RegisterCommand registers a handler for a command (without the leading "/").
func (r *Router) RegisterCommand(command string, fn CommandFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[command] = fn
}

// RegisterCallbackPrefix registers a handler for callback data starting with
// prefix, including the delimiter (e.g. "answer:").
func (r *Router) RegisterCallbackPrefix(prefix string, fn CallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[prefix] = fn
}

// SetUnknownCommandHandler sets the fallback for unregistered commands.
func (r *Router) SetUnknownCommandHandler(fn CommandFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknownCommand = fn
}

// Commands returns the registered command names.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// HandleCommand dispatches a command to its handler.
func (r *Router) HandleCommand(ctx context.Context, command string, cmdCtx CommandContext) (*handler.Response, error) {
	r.mu.RLock()
	fn, ok := r.commands[command]
	fallback := r.unknownCommand
	r.mu.RUnlock()

	if !ok {
		if fallback != nil {
			return fallback(ctx, cmdCtx)
		}
		return nil, nil
	}
	return fn(ctx, cmdCtx)
}

// HandleCallback dispatches callback data to the longest matching prefix.
func (r *Router) HandleCallback(ctx context.Context, cbCtx CallbackContext) (*handler.Response, error) {
	r.mu.RLock()
	var matched CallbackFunc
	var matchedLen int
	for prefix, fn := range r.callbacks {
		if strings.HasPrefix(cbCtx.Data, prefix) && len(prefix) > matchedLen {
			matched = fn
			matchedLen = len(prefix)
		}
	}
	r.mu.RUnlock()

	if matched == nil {
		return nil, nil
	}
	return matched(ctx, cbCtx)
}
