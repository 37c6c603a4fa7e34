// Package fetch downloads user media to local temp files with size caps and
// bounded retries. It sits between the Telegram transport and the extraction
// pipeline so the rest of the bot only ever sees a local path.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/pkg/textutil"
)

// RemoteFile describes a downloadable file as reported by the provider
// before any bytes are transferred.
type RemoteFile struct {
	// ID is the provider's file identifier.
	ID string

	// Path is the provider-side path used for the actual download.
	Path string

	// Size is the declared size in bytes. Zero means unknown.
	Size int64
}

// MediaProvider is the transport port the fetcher downloads through.
// The Telegram client implements it with getFile + the file endpoint.
type MediaProvider interface {
	// ResolveFile exchanges a file ID for a downloadable descriptor.
	ResolveFile(ctx context.Context, fileID string) (RemoteFile, error)

	// Download streams the file's bytes into dst.
	Download(ctx context.Context, file RemoteFile, dst io.Writer) error
}

// RetryAfterError is implemented by provider errors that carry an explicit
// wait imposed by the remote side (Telegram's retry_after).
type RetryAfterError interface {
	error
	RetryAfterDuration() time.Duration
}

// SizeExceededError reports a file larger than the configured cap. It is
// terminal: no retry can shrink the file.
type SizeExceededError struct {
	Size  int64
	Limit int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("file size %s exceeds limit %s",
		textutil.FormatMegabytes(e.Size), textutil.FormatMegabytes(e.Limit))
}

func (e *SizeExceededError) Unwrap() error { return shared.ErrSizeExceeded }

// ExhaustedError reports that every download attempt failed.
type ExhaustedError struct {
	FileID   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("download of %s failed after %d attempts: %v", e.FileID, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return shared.ErrFetchExhausted }

// Handle is a successfully fetched file staged on local disk. Callers must
// invoke Cleanup once done; Cleanup is safe to call multiple times.
type Handle struct {
	Path    string
	Size    int64
	cleaned bool
}

// Cleanup removes the staged file.
func (h *Handle) Cleanup() {
	if h == nil || h.cleaned {
		return
	}
	h.cleaned = true
	_ = os.Remove(h.Path)
}

// Config holds fetcher settings.
type Config struct {
	// MaxAttempts is the total number of download attempts per file.
	MaxAttempts int

	// AttemptTimeout bounds each individual resolve+download attempt.
	AttemptTimeout time.Duration

	// BaseDelay is the delay before the second attempt; it doubles per
	// attempt unless the provider dictates a longer wait.
	BaseDelay time.Duration

	// TempDir is where staged files are written.
	TempDir string
}

// DefaultConfig returns production fetch settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		AttemptTimeout: 60 * time.Second,
		BaseDelay:      time.Second,
		TempDir:        os.TempDir(),
	}
}

// Fetcher downloads remote media with a size cap and bounded retries.
//
// The retry loop honors provider-dictated waits: when an attempt fails with a
// RetryAfterError the fetcher sleeps for that duration (or the backoff delay,
// whichever is longer) before the next attempt. Size violations and
// authorization failures abort immediately without consuming further
// attempts.
type Fetcher struct {
	provider MediaProvider
	config   Config
	logger   *slog.Logger
}

// New creates a Fetcher over the given provider.
func New(provider MediaProvider, config Config, logger *slog.Logger) *Fetcher {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultConfig().BaseDelay
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{provider: provider, config: config, logger: logger}
}

// Fetch downloads the file identified by fileID, enforcing maxBytes, and
// returns a handle to the staged local copy.
//
// One temp file is staged for the whole operation; retries rewrite it in
// place. The declared size is checked before any bytes move; the byte count
// is checked again during download because providers can under-declare.
func (f *Fetcher) Fetch(ctx context.Context, fileID string, maxBytes int64) (*Handle, error) {
	path := filepath.Join(f.config.TempDir, "mentor-"+uuid.NewString())
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	discard := func() {
		_ = dst.Close()
		_ = os.Remove(path)
	}

	var lastErr error

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}

		written, err := f.attempt(ctx, fileID, maxBytes, dst)
		if err == nil {
			if err := dst.Close(); err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("close temp file: %w", err)
			}
			return &Handle{Path: path, Size: written}, nil
		}

		var sizeErr *SizeExceededError
		if errors.As(err, &sizeErr) {
			discard()
			return nil, err
		}

		// Authorization failures are permanent; no retry changes the answer.
		if errors.Is(err, shared.ErrForbidden) {
			discard()
			return nil, err
		}

		lastErr = err

		if attempt == f.config.MaxAttempts {
			break
		}

		delay := f.config.BaseDelay << (attempt - 1)
		var ra RetryAfterError
		if errors.As(err, &ra) && ra.RetryAfterDuration() > delay {
			delay = ra.RetryAfterDuration()
		}

		f.logger.Warn("download attempt failed, retrying",
			slog.String("file_id", fileID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			discard()
			return nil, &ExhaustedError{FileID: fileID, Attempts: attempt, Last: lastErr}
		case <-time.After(delay):
		}
	}

	discard()
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, &ExhaustedError{FileID: fileID, Attempts: f.config.MaxAttempts, Last: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, fileID string, maxBytes int64, dst *os.File) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.AttemptTimeout)
	defer cancel()

	remote, err := f.provider.ResolveFile(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("resolve file: %w", err)
	}

	if maxBytes > 0 && remote.Size > maxBytes {
		return 0, &SizeExceededError{Size: remote.Size, Limit: maxBytes}
	}

	// A failed attempt may leave partial bytes behind; rewrite from the start.
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind temp file: %w", err)
	}
	if err := dst.Truncate(0); err != nil {
		return 0, fmt.Errorf("truncate temp file: %w", err)
	}

	return f.download(ctx, remote, dst, maxBytes)
}

func (f *Fetcher) download(ctx context.Context, remote RemoteFile, dst *os.File, maxBytes int64) (int64, error) {
	counter := &countingWriter{w: dst, limit: maxBytes}
	if err := f.provider.Download(ctx, remote, counter); err != nil {
		if counter.exceeded {
			return 0, &SizeExceededError{Size: counter.n, Limit: maxBytes}
		}
		return 0, fmt.Errorf("download: %w", err)
	}
	if counter.exceeded {
		return 0, &SizeExceededError{Size: counter.n, Limit: maxBytes}
	}
	return counter.n, nil
}

// countingWriter enforces the byte cap while streaming, so an under-declared
// file cannot fill the disk.
type countingWriter struct {
	w        io.Writer
	n        int64
	limit    int64
	exceeded bool
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.limit > 0 && c.n+int64(len(p)) > c.limit {
		c.exceeded = true
		c.n += int64(len(p))
		return 0, errors.New("size limit exceeded")
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
