// Package main is the entry point of the code mentor bot: a Telegram bot
// that analyzes code and errors sent as text, photos or documents, and walks
// students through a leveled curriculum with quizzes.
//
// The layout follows Clean Architecture:
//   - domain: catalog, sessions and history, no external dependencies
//   - application: the tutoring state machine and the analysis pipeline
//   - infrastructure: Telegram, OpenAI, OCR, Postgres, Redis, file storage
//   - interface: the bot routing layer and the operational HTTP server
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mentor-hub/code-mentor-bot/config"
	"github.com/mentor-hub/code-mentor-bot/internal/application/analysis"
	"github.com/mentor-hub/code-mentor-bot/internal/application/tutoring"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/history"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/cache"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/catalog"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/external/ocr"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/external/openai"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/external/telegram"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/fetch"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/persistence/file"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/persistence/postgres"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/persistence/redis"
	httpserver "github.com/mentor-hub/code-mentor-bot/internal/interface/http"
	bottelegram "github.com/mentor-hub/code-mentor-bot/internal/interface/telegram"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/handler"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/middleware"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Observability)
	slog.SetDefault(logger)

	logger.Info("starting code mentor bot",
		slog.String("version", cfg.App.Version),
		slog.String("environment", string(cfg.App.Environment)),
	)

	// ── Curriculum ────────────────────────────────────────────────────────
	curriculum, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}

	// ── Session persistence ───────────────────────────────────────────────
	// Postgres when DATABASE_URL is set, local JSON snapshot otherwise.
	var sessionRepo tutor.Repository
	checks := make(map[string]httpserver.Pinger)

	if cfg.Database.URL != "" {
		conn, err := postgres.NewConnection(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			QueryTimeout:    cfg.Database.QueryTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()

		sessionRepo, err = postgres.NewSessionRepository(ctx, conn)
		if err != nil {
			return fmt.Errorf("init session repository: %w", err)
		}
		checks["postgres"] = conn
		logger.Info("sessions persisted in postgres")
	} else {
		store := file.NewSnapshotStore(cfg.Limits.StateFile)
		sessionRepo = store
		logger.Info("sessions persisted in local file", slog.String("path", store.Path()))
	}

	// ── Extraction cache ──────────────────────────────────────────────────
	// The in-process cache always runs; Redis adds a shared tier.
	var remote cache.Remote
	if cfg.Redis.Enabled {
		extractionCache, err := redis.NewExtractionCache(redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			TTL:          cfg.Redis.CacheTTL,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer extractionCache.Close()
		remote = extractionCache
		checks["redis"] = extractionCache
		logger.Info("redis extraction cache enabled")
	}
	resultCache := cache.NewResultCache(remote, logger)

	// ── External services ─────────────────────────────────────────────────
	clientConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	clientConfig.BaseURL = cfg.Telegram.BaseURL
	clientConfig.Timeout = cfg.Telegram.RequestTimeout
	clientConfig.Logger = logger
	clientConfig.Debug = cfg.App.Debug
	client := telegram.NewClient(clientConfig)

	fetcher := fetch.New(client, fetch.Config{
		MaxAttempts:    cfg.Limits.DownloadRetries,
		AttemptTimeout: cfg.Limits.DownloadTimeout,
		BaseDelay:      time.Second,
		TempDir:        cfg.Limits.TempDir,
	}, logger)

	ocrEngine := ocr.NewEngine(ocr.Config{
		Binary:    cfg.OCR.Binary,
		Languages: cfg.OCR.Languages,
		Timeout:   cfg.OCR.Timeout,
		Logger:    logger,
	})

	analyzer := openai.New(openai.Config{
		APIKey:         cfg.Analyzer.APIKey,
		BaseURL:        cfg.Analyzer.BaseURL,
		Model:          cfg.Analyzer.Model,
		SystemPrompt:   cfg.Analyzer.SystemPrompt,
		MaxTokens:      cfg.Analyzer.MaxTokens,
		Temperature:    cfg.Analyzer.Temperature,
		RequestTimeout: cfg.Analyzer.RequestTimeout,
		Logger:         logger,
	})

	// ── Application services ──────────────────────────────────────────────
	tutorService, err := tutoring.NewService(ctx, curriculum, sessionRepo, logger)
	if err != nil {
		return fmt.Errorf("init tutoring service: %w", err)
	}

	ring := history.NewRing(cfg.Limits.HistoryCapacity, cfg.Limits.HistoryTextLimit)

	pipeline := analysis.NewPipeline(analysis.Config{
		MaxTextChars:     cfg.Limits.MaxTextChars,
		MaxPhotoBytes:    cfg.Limits.MaxPhotoBytes(),
		MaxDocumentBytes: cfg.Limits.MaxDocumentBytes(),
	}, fetcher, resultCache, ocrEngine, analyzer, ring, logger)

	// ── Interface layer ───────────────────────────────────────────────────
	keyboards := presenter.NewKeyboardBuilder()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Window:      cfg.Limits.RateLimitWindow,
		MaxMessages: cfg.Limits.RateLimitMax,
	})
	defer rateLimiter.Stop()

	recovery := middleware.NewRecoveryMiddleware(middleware.RecoveryConfig{
		EnableStackTrace: true,
		Logger:           logger,
	})

	bot, err := bottelegram.NewBot(bottelegram.BotConfig{Logger: logger}, bottelegram.Dependencies{
		Client:      client,
		Tutor:       handler.NewTutorHandler(tutorService, presenter.NewTutorPresenter(), keyboards),
		Analysis:    handler.NewAnalysisHandler(pipeline, ring, cfg.Limits.MaxPhotoSizeMB, cfg.Limits.MaxDocumentSizeMB),
		Info:        handler.NewInfoHandler(keyboards),
		RateLimiter: rateLimiter,
		Recovery:    recovery,
	})
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}

	statusServer := httpserver.NewServer(httpserver.Config{
		Addr:   cfg.App.HTTPAddr,
		Logger: logger,
	}, httpserver.Dependencies{
		Bot:     bot,
		Checks:  checks,
		Version: cfg.App.Version,
	})

	// ── Run ───────────────────────────────────────────────────────────────
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return bot.Start(groupCtx)
	})
	group.Go(func() error {
		return statusServer.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return statusServer.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	logger.Info("bot stopped")
	return err
}

// newLogger builds the process logger from the observability settings.
func newLogger(cfg config.ObservabilityConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}
