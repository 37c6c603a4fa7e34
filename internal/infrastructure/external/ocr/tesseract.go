// Package ocr extracts text from images by shelling out to the tesseract
// binary. There is no maintained pure-Go OCR engine; the CLI is the same
// dependency every production OCR pipeline ends up with.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Config holds OCR engine settings.
type Config struct {
	// Binary is the tesseract executable; resolved through PATH.
	Binary string

	// Languages is the tesseract -l argument, e.g. "spa+eng".
	Languages string

	// Timeout bounds each invocation. OCR on a huge image can spin for
	// minutes; the conversation should not.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns sensible OCR defaults.
func DefaultConfig() Config {
	return Config{
		Binary:    "tesseract",
		Languages: "spa+eng",
		Timeout:   30 * time.Second,
	}
}

// Engine runs tesseract over image files.
type Engine struct {
	config Config
	logger *slog.Logger
}

// NewEngine creates an OCR engine.
func NewEngine(config Config) *Engine {
	if config.Binary == "" {
		config.Binary = DefaultConfig().Binary
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{config: config, logger: logger}
}

// ExtractText runs OCR on the image at path and returns the recognized text.
// "tesseract image stdout" writes the result to standard output.
func (e *Engine) ExtractText(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	args := []string{path, "stdout"}
	if e.config.Languages != "" {
		args = append(args, "-l", e.config.Languages)
	}

	cmd := exec.CommandContext(ctx, e.config.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		e.logger.Warn("ocr failed",
			slog.String("path", path),
			slog.String("stderr", strings.TrimSpace(stderr.String())),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("ocr: %w", err)
	}

	e.logger.Debug("ocr completed",
		slog.String("path", path),
		slog.Duration("took", time.Since(start)),
	)

	return strings.TrimSpace(stdout.String()), nil
}
