// Package openai implements the code-analysis backend on an OpenAI-compatible
// chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mentor-hub/code-mentor-bot/pkg/circuitbreaker"
	"github.com/mentor-hub/code-mentor-bot/pkg/retry"
)

// MissingConfigAdvice is returned when the analyzer was never configured.
// Analysis is degraded, not broken: the user gets told what is missing.
const MissingConfigAdvice = "[Config faltante] Define ANALYZER_API_KEY (y opcionalmente ANALYZER_BASE_URL) para habilitar el análisis."

// Config holds analyzer settings.
type Config struct {
	// APIKey authenticates against the backend. Empty disables analysis.
	APIKey string

	// BaseURL overrides the OpenAI endpoint for compatible providers.
	BaseURL string

	// Model is the chat model name.
	Model string

	// SystemPrompt frames every analysis request.
	SystemPrompt string

	// MaxTokens caps the completion length.
	MaxTokens int

	// Temperature controls sampling. Low keeps error analysis focused.
	Temperature float64

	// RequestTimeout bounds each API call.
	RequestTimeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns sensible analyzer defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey: apiKey,
		Model:  goopenai.GPT4oMini,
		SystemPrompt: "Eres un analizador de errores de código. " +
			"Identifica el fallo, explica la causa y da pasos concretos para corregirlo.",
		MaxTokens:      1024,
		Temperature:    0.3,
		RequestTimeout: 60 * time.Second,
	}
}

// Analyzer sends code or error text to the model and returns advice.
//
// Analyze never returns an error: any failure becomes inline Spanish text so
// handlers can always just send the result. The circuit breaker keeps a dead
// backend from stalling every conversation, and the retrier absorbs
// transient API hiccups.
type Analyzer struct {
	client  *goopenai.Client
	config  Config
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	logger  *slog.Logger
}

// New creates an Analyzer. A missing API key is allowed; Analyze then
// answers with MissingConfigAdvice.
func New(config Config) *Analyzer {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Model == "" {
		config.Model = goopenai.GPT4oMini
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 60 * time.Second
	}

	var client *goopenai.Client
	if config.APIKey != "" {
		clientConfig := goopenai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			clientConfig.BaseURL = config.BaseURL
		}
		client = goopenai.NewClientWithConfig(clientConfig)
	}

	onStateChange := func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}

	return &Analyzer{
		client:  client,
		config:  config,
		breaker: circuitbreaker.AnalyzerBreaker(onStateChange),
		retrier: retry.AnalyzerRetrier(),
		logger:  logger,
	}
}

// Analyze asks the model about the given code or error text.
func (a *Analyzer) Analyze(ctx context.Context, text string) string {
	if a.client == nil {
		return MissingConfigAdvice
	}
	if strings.TrimSpace(text) == "" {
		return "No encontré contenido para analizar."
	}

	var advice string
	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.retrier.Do(ctx, func(ctx context.Context) error {
			result, err := a.complete(ctx, text)
			if err != nil {
				return err
			}
			advice = result
			return nil
		})
	})

	if err != nil {
		a.logger.Error("analysis failed", slog.Any("error", err))
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return "El análisis no está disponible en este momento. Inténtalo de nuevo en unos minutos."
		}
		return fmt.Sprintf("Hubo un problema al llamar al modelo: %v", err)
	}

	return advice
}

func (a *Analyzer) complete(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       a.config.Model,
		MaxTokens:   a.config.MaxTokens,
		Temperature: float32(a.config.Temperature),
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: a.config.SystemPrompt,
			},
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: "Ayúdame con este error o código:\n" + text,
			},
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", retry.Permanent(errors.New("empty completion"))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classifyError marks rate limits and server errors retryable; everything
// else (bad request, auth) is permanent.
func classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return retry.Retryable(err)
		}
		return retry.Permanent(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return retry.Retryable(err)
	}
	return retry.Retryable(err)
}
