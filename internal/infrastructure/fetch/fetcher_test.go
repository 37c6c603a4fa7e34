package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
)

type fakeProvider struct {
	size       int64
	content    string
	failures   int // attempts that fail before one succeeds
	errs       []error
	resolveErr error

	resolveCalls  int
	downloadCalls int
}

func (p *fakeProvider) ResolveFile(ctx context.Context, fileID string) (RemoteFile, error) {
	p.resolveCalls++
	if p.resolveErr != nil {
		return RemoteFile{}, p.resolveErr
	}
	return RemoteFile{ID: fileID, Path: "documents/" + fileID + ".txt", Size: p.size}, nil
}

func (p *fakeProvider) Download(ctx context.Context, file RemoteFile, dst io.Writer) error {
	p.downloadCalls++
	if p.failures > 0 {
		p.failures--
		// Leave partial bytes behind, as a dropped connection would.
		_, _ = dst.Write([]byte("garbage"))
		if len(p.errs) > 0 {
			err := p.errs[0]
			p.errs = p.errs[1:]
			return err
		}
		return errors.New("connection reset")
	}
	_, err := io.Copy(dst, strings.NewReader(p.content))
	return err
}

type retryAfterErr struct{ wait time.Duration }

func (e *retryAfterErr) Error() string { return "too many requests" }

func (e *retryAfterErr) RetryAfterDuration() time.Duration { return e.wait }

func newTestFetcher(t *testing.T, provider MediaProvider, attempts int) *Fetcher {
	t.Helper()
	return New(provider, Config{
		MaxAttempts:    attempts,
		AttemptTimeout: 5 * time.Second,
		BaseDelay:      time.Millisecond,
		TempDir:        t.TempDir(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetcher_Success(t *testing.T) {
	provider := &fakeProvider{size: 11, content: "hello world"}
	f := newTestFetcher(t, provider, 3)

	handle, err := f.Fetch(context.Background(), "file-1", 1024)
	require.NoError(t, err)
	defer handle.Cleanup()

	assert.Equal(t, int64(11), handle.Size)

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestFetcher_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{size: 2, content: "ok", failures: 2}
	f := newTestFetcher(t, provider, 3)

	handle, err := f.Fetch(context.Background(), "file-2", 1024)
	require.NoError(t, err)
	defer handle.Cleanup()

	assert.Equal(t, 3, provider.downloadCalls)
}

func TestFetcher_ExhaustsAttempts(t *testing.T) {
	provider := &fakeProvider{size: 2, content: "ok", failures: 10}
	f := newTestFetcher(t, provider, 3)

	_, err := f.Fetch(context.Background(), "file-3", 1024)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, shared.ErrFetchExhausted)
	assert.Equal(t, 3, provider.downloadCalls)
}

func TestFetcher_DeclaredSizeOverLimitIsTerminal(t *testing.T) {
	provider := &fakeProvider{size: 10 * 1024 * 1024, content: "x"}
	f := newTestFetcher(t, provider, 3)

	_, err := f.Fetch(context.Background(), "file-4", 1024)
	require.Error(t, err)

	var sizeErr *SizeExceededError
	require.ErrorAs(t, err, &sizeErr)
	assert.ErrorIs(t, err, shared.ErrSizeExceeded)
	assert.Equal(t, 1, provider.resolveCalls, "size violations must not be retried")
	assert.Equal(t, 0, provider.downloadCalls)
}

func TestFetcher_StreamedBytesOverLimitIsTerminal(t *testing.T) {
	// Provider under-declares: says 10 bytes, sends far more.
	provider := &fakeProvider{size: 10, content: strings.Repeat("x", 2048)}
	f := newTestFetcher(t, provider, 3)

	_, err := f.Fetch(context.Background(), "file-5", 1024)
	require.Error(t, err)

	var sizeErr *SizeExceededError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 1, provider.downloadCalls)
}

func TestFetcher_ForbiddenIsTerminal(t *testing.T) {
	provider := &fakeProvider{
		resolveErr: fmt.Errorf("telegram api error 403: %w", shared.ErrForbidden),
	}
	f := newTestFetcher(t, provider, 3)

	_, err := f.Fetch(context.Background(), "file-9", 1024)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, 1, provider.resolveCalls, "authorization failures must not be retried")
	assert.Equal(t, 0, provider.downloadCalls)
}

func TestFetcher_StagesOneTempFileAcrossRetries(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{size: 2, content: "ok", failures: 2}
	f := New(provider, Config{
		MaxAttempts:    3,
		AttemptTimeout: 5 * time.Second,
		BaseDelay:      time.Millisecond,
		TempDir:        dir,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	handle, err := f.Fetch(context.Background(), "file-10", 1024)
	require.NoError(t, err)
	defer handle.Cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "retries must reuse the staged temp file")

	data, err := os.ReadFile(handle.Path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data), "a failed attempt's partial bytes must not survive")
}

func TestFetcher_ExhaustionLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{size: 2, content: "ok", failures: 10}
	f := New(provider, Config{
		MaxAttempts:    3,
		AttemptTimeout: 5 * time.Second,
		BaseDelay:      time.Millisecond,
		TempDir:        dir,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := f.Fetch(context.Background(), "file-11", 1024)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetcher_HonorsProviderRetryAfter(t *testing.T) {
	wait := 50 * time.Millisecond
	provider := &fakeProvider{
		size:     2,
		content:  "ok",
		failures: 1,
		errs:     []error{&retryAfterErr{wait: wait}},
	}
	f := newTestFetcher(t, provider, 3)

	start := time.Now()
	handle, err := f.Fetch(context.Background(), "file-6", 1024)
	require.NoError(t, err)
	defer handle.Cleanup()

	assert.GreaterOrEqual(t, time.Since(start), wait,
		"the provider-dictated wait must be respected before retrying")
}

func TestFetcher_CleanupRemovesFile(t *testing.T) {
	provider := &fakeProvider{size: 2, content: "ok"}
	f := newTestFetcher(t, provider, 1)

	handle, err := f.Fetch(context.Background(), "file-7", 1024)
	require.NoError(t, err)

	_, statErr := os.Stat(handle.Path)
	require.NoError(t, statErr)

	handle.Cleanup()
	handle.Cleanup() // idempotent

	_, statErr = os.Stat(handle.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_ContextCancellation(t *testing.T) {
	provider := &fakeProvider{size: 2, content: "ok", failures: 10}
	f := newTestFetcher(t, provider, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "file-8", 1024)
	require.Error(t, err)
}
