// Package telegram is the Telegram entry point of the bot: it receives
// updates, applies the admission middleware and routes commands, text, photos
// and documents to their handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/external/telegram"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/handler"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/middleware"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the bot.
type BotConfig struct {
	// MaxConcurrentUpdates limits updates processed in parallel.
	MaxConcurrentUpdates int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		MaxConcurrentUpdates: 100,
	}
}

// Dependencies aggregates everything the bot needs to answer updates.
type Dependencies struct {
	Client *telegram.Client

	Tutor    *handler.TutorHandler
	Analysis *handler.AnalysisHandler
	Info     *handler.InfoHandler

	RateLimiter *middleware.RateLimiter
	Recovery    *middleware.RecoveryMiddleware
}

// ══════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════

// Bot receives Telegram updates and dispatches them.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	logger *slog.Logger

	tutor    *handler.TutorHandler
	analysis *handler.AnalysisHandler
	info     *handler.InfoHandler

	rateLimiter *middleware.RateLimiter
	recovery    *middleware.RecoveryMiddleware

	updateSem chan struct{}
	wg        sync.WaitGroup

	stats *BotStats
}

// BotStats holds runtime counters, exposed through the status endpoint.
type BotStats struct {
	mu              sync.RWMutex
	StartedAt       time.Time
	UpdatesReceived int64
	UpdatesHandled  int64
	ErrorsCount     int64
	CommandsCount   map[string]int64
}

// NewBot creates the bot and registers all routes.
func NewBot(config BotConfig, deps Dependencies) (*Bot, error) {
	if deps.Client == nil {
		return nil, errors.New("telegram client is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = DefaultBotConfig().MaxConcurrentUpdates
	}

	b := &Bot{
		config:      config,
		client:      deps.Client,
		router:      NewRouter(),
		logger:      config.Logger,
		tutor:       deps.Tutor,
		analysis:    deps.Analysis,
		info:        deps.Info,
		rateLimiter: deps.RateLimiter,
		recovery:    deps.Recovery,
		updateSem:   make(chan struct{}, config.MaxConcurrentUpdates),
		stats:       &BotStats{CommandsCount: make(map[string]int64)},
	}

	b.registerRoutes()
	return b, nil
}

func (b *Bot) registerRoutes() {
	b.router.RegisterCommand("start", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		name := ""
		if c.Message != nil && c.Message.From != nil {
			name = c.Message.From.FirstName
		}
		return b.info.Start(ctx, name)
	})
	b.router.RegisterCommand("help", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.info.Help(ctx)
	})
	b.router.RegisterCommand("about", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.info.About(ctx)
	})
	b.router.RegisterCommand("menu", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.info.Menu(ctx)
	})

	b.router.RegisterCommand("learn", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Learn(ctx, c.User, c.Args)
	})
	b.router.RegisterCommand("next", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Next(ctx, c.User)
	})
	b.router.RegisterCommand("modules", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Modules(ctx, c.User)
	})
	b.router.RegisterCommand("quiz", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Quiz(ctx, c.User)
	})
	b.router.RegisterCommand("answer", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Answer(ctx, c.User, c.Args)
	})
	b.router.RegisterCommand("progress", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Progress(ctx, c.User)
	})
	b.router.RegisterCommand("reset", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Reset(ctx, c.User)
	})
	b.router.RegisterCommand("errors", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.tutor.Errors(ctx, c.User)
	})
	b.router.RegisterCommand("context", func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.analysis.Context(ctx, c.User)
	})

	b.router.SetUnknownCommandHandler(func(ctx context.Context, c CommandContext) (*handler.Response, error) {
		return b.info.Help(ctx)
	})

	// Inline keyboard buttons: "cmd:<command>" re-runs a command with no
	// args, "answer:<n>" submits a quiz answer.
	b.router.RegisterCallbackPrefix("cmd:", func(ctx context.Context, cb CallbackContext) (*handler.Response, error) {
		command := strings.TrimPrefix(cb.Data, "cmd:")
		return b.router.HandleCommand(ctx, command, CommandContext{
			User:   cb.User,
			ChatID: cb.ChatID,
		})
	})
	b.router.RegisterCallbackPrefix("answer:", func(ctx context.Context, cb CallbackContext) (*handler.Response, error) {
		return b.tutor.Answer(ctx, cb.User, strings.TrimPrefix(cb.Data, "answer:"))
	})
}

// ══════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════

// Start verifies the token and begins long polling. It blocks until ctx is
// cancelled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}

	b.stats.mu.Lock()
	b.stats.StartedAt = time.Now()
	b.stats.mu.Unlock()

	b.logger.Info("bot verified",
		slog.Int64("id", me.ID),
		slog.String("username", me.Username),
	)

	err = b.client.StartPolling(ctx, b.HandleUpdate)
	b.wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════

// HandleUpdate schedules one update for processing. Each update runs on its
// own goroutine so a slow analysis for one user never stalls everyone else;
// the semaphore bounds how many run at once.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	if update.Message == nil && update.CallbackQuery == nil {
		return nil
	}

	select {
	case b.updateSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.stats.mu.Lock()
	b.stats.UpdatesReceived++
	b.stats.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.updateSem }()
		b.processUpdate(ctx, update)
	}()

	return nil
}

// processUpdate dispatches one update and records the outcome.
func (b *Bot) processUpdate(ctx context.Context, update *telegram.Update) {
	// Correlation id ties every log line of this update together.
	logger := b.logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.Int64("update_id", update.UpdateID),
	)

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, logger, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, logger, update.CallbackQuery)
	}

	b.stats.mu.Lock()
	if err != nil {
		b.stats.ErrorsCount++
	} else {
		b.stats.UpdatesHandled++
	}
	b.stats.mu.Unlock()

	if err != nil {
		logger.Error("update processing failed", slog.Any("error", err))
	}
}

// handleMessage routes one message: command, text, photo or document. Every
// message counts against the sender's rate limit before any work happens.
func (b *Bot) handleMessage(ctx context.Context, logger *slog.Logger, msg *telegram.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	user := tutor.UserID(msg.From.ID)
	chatID := msg.Chat.ID

	if allowed, _ := b.rateLimiter.Allow(user); !allowed {
		_, err := b.client.SendText(ctx, chatID, presenter.MsgRateLimited)
		return err
	}

	command := telegram.ExtractCommand(msg)
	if command != "" {
		return b.runCommand(ctx, logger, command, CommandContext{
			User:    user,
			ChatID:  chatID,
			Args:    telegram.ExtractCommandArgs(msg),
			Message: msg,
		})
	}

	switch {
	case len(msg.Photo) > 0:
		return b.runAnalysis(ctx, logger, user, chatID, "photo", func(ctx context.Context) (*handler.Response, error) {
			photo := telegram.LargestPhoto(msg)
			return b.analysis.Photo(ctx, user, photo.FileID)
		})
	case msg.Document != nil:
		return b.runAnalysis(ctx, logger, user, chatID, "document", func(ctx context.Context) (*handler.Response, error) {
			doc := msg.Document
			return b.analysis.Document(ctx, user, doc.FileID, doc.MimeType, doc.FileSize)
		})
	case msg.Text != "":
		return b.runAnalysis(ctx, logger, user, chatID, "text", func(ctx context.Context) (*handler.Response, error) {
			return b.analysis.Text(ctx, user, msg.Text)
		})
	}

	return nil
}

// runCommand executes a command inside the recovery wrapper and sends the
// handler's response.
func (b *Bot) runCommand(ctx context.Context, logger *slog.Logger, command string, cmdCtx CommandContext) error {
	b.stats.mu.Lock()
	b.stats.CommandsCount[command]++
	b.stats.mu.Unlock()

	var resp *handler.Response
	result := b.recovery.RecoverWithHandler(ctx, cmdCtx.User, command, func() error {
		var err error
		resp, err = b.router.HandleCommand(ctx, command, cmdCtx)
		return err
	})

	if result.Recovered {
		_, err := b.client.SendText(ctx, cmdCtx.ChatID, result.UserMessage)
		return err
	}
	if result.Err != nil {
		logger.Error("command failed",
			slog.String("command", command),
			slog.Int64("user_id", int64(cmdCtx.User)),
			slog.Any("error", result.Err),
		)
	}

	return b.send(ctx, cmdCtx.ChatID, resp)
}

// runAnalysis executes a media or text analysis with a typing indicator,
// inside the recovery wrapper.
func (b *Bot) runAnalysis(ctx context.Context, logger *slog.Logger, user tutor.UserID, chatID int64, kind string, run func(ctx context.Context) (*handler.Response, error)) error {
	// Analysis can take a while; let the user see something is happening.
	_ = b.client.SendChatAction(ctx, chatID, "typing")

	var resp *handler.Response
	result := b.recovery.RecoverWithHandler(ctx, user, kind, func() error {
		var err error
		resp, err = run(ctx)
		return err
	})

	if result.Recovered {
		_, err := b.client.SendText(ctx, chatID, result.UserMessage)
		return err
	}
	if result.Err != nil {
		logger.Error("analysis failed",
			slog.String("kind", kind),
			slog.Int64("user_id", int64(user)),
			slog.Any("error", result.Err),
		)
	}

	return b.send(ctx, chatID, resp)
}

// handleCallbackQuery processes an inline keyboard tap.
func (b *Bot) handleCallbackQuery(ctx context.Context, logger *slog.Logger, cq *telegram.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}

	user := tutor.UserID(cq.From.ID)
	var chatID int64
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}

	// Answer first so the button stops spinning.
	defer func() {
		_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "")
	}()

	if allowed, _ := b.rateLimiter.Allow(user); !allowed {
		return b.client.AnswerCallbackQuery(ctx, cq.ID, presenter.MsgRateLimited)
	}

	var resp *handler.Response
	result := b.recovery.RecoverWithHandler(ctx, user, "callback:"+cq.Data, func() error {
		var err error
		resp, err = b.router.HandleCallback(ctx, CallbackContext{
			User:    user,
			ChatID:  chatID,
			QueryID: cq.ID,
			Data:    cq.Data,
		})
		return err
	})

	if result.Recovered {
		if chatID != 0 {
			_, _ = b.client.SendText(ctx, chatID, result.UserMessage)
		}
		return nil
	}
	if result.Err != nil {
		logger.Error("callback failed",
			slog.String("data", cq.Data),
			slog.Int64("user_id", int64(user)),
			slog.Any("error", result.Err),
		)
	}

	if chatID == 0 {
		return nil
	}
	return b.send(ctx, chatID, resp)
}

// send delivers a handler response, converting the keyboard when present.
func (b *Bot) send(ctx context.Context, chatID int64, resp *handler.Response) error {
	if resp == nil || resp.Text == "" {
		return nil
	}

	params := telegram.SendMessageParams{
		ChatID: chatID,
		Text:   resp.Text,
	}
	if resp.Keyboard != nil {
		params.ReplyMarkup = convertKeyboard(resp.Keyboard)
	}

	_, err := b.client.SendMessage(ctx, params)
	return err
}

// convertKeyboard converts presenter keyboards to the wire format.
func convertKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(kb.Rows)),
	}
	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telegram.InlineKeyboardButton, len(row))
		for j, btn := range row {
			markup.InlineKeyboard[i][j] = telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
				URL:          btn.URL,
			}
		}
	}
	return markup
}

// ══════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════

// Stats returns a copy of the runtime counters.
func (b *Bot) Stats() map[string]any {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	commands := make(map[string]int64, len(b.stats.CommandsCount))
	for k, v := range b.stats.CommandsCount {
		commands[k] = v
	}

	return map[string]any{
		"started_at":       b.stats.StartedAt,
		"uptime":           time.Since(b.stats.StartedAt).String(),
		"updates_received": b.stats.UpdatesReceived,
		"updates_handled":  b.stats.UpdatesHandled,
		"errors_count":     b.stats.ErrorsCount,
		"commands_count":   commands,
	}
}
