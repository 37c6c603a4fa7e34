// Package cache memoizes expensive extraction results keyed by content hash.
// Re-sending the same bytes never pays for OCR or parsing twice.
package cache

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// ContentHash returns the canonical cache key for a payload. Identical bytes
// always map to the same key regardless of filename or sender.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Remote is an optional second cache tier shared across bot instances.
// The Redis extraction cache implements it; a nil Remote means single-tier.
type Remote interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value.
	Set(ctx context.Context, key, value string) error
}

// ResultCache memoizes extraction results by content hash.
//
// Failed extractions are cached as the empty string: a payload that could not
// be processed once will not be processed again, and callers treat "" as
// "nothing extracted". The in-process tier has no eviction; entries are small
// (text) and the process restarts daily in production. Concurrent requests
// for the same key share a single computation.
type ResultCache struct {
	local  sync.Map // map[string]string
	group  singleflight.Group
	remote Remote
	logger *slog.Logger
}

// NewResultCache creates a ResultCache. remote may be nil.
func NewResultCache(remote Remote, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{remote: remote, logger: logger}
}

// GetOrCompute returns the cached result for key, computing and caching it on
// a miss. compute errors are swallowed: the failure is cached as "" so the
// caller sees the same empty result future lookups will see.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (string, error)) string {
	if val, ok := c.local.Load(key); ok {
		return val.(string)
	}

	result, _, _ := c.group.Do(key, func() (any, error) {
		// Re-check after winning the flight: a previous flight may have
		// stored the value between our miss and now.
		if val, ok := c.local.Load(key); ok {
			return val.(string), nil
		}

		if val, ok := c.remoteGet(ctx, key); ok {
			c.local.Store(key, val)
			return val, nil
		}

		val, err := compute(ctx)
		if err != nil {
			c.logger.Warn("extraction failed, caching empty result",
				slog.String("key", abbreviate(key)),
				slog.Any("error", err),
			)
			val = ""
		}

		c.local.Store(key, val)
		c.remoteSet(ctx, key, val)
		return val, nil
	})

	return result.(string)
}

// Peek returns the locally cached value without computing.
func (c *ResultCache) Peek(key string) (string, bool) {
	val, ok := c.local.Load(key)
	if !ok {
		return "", false
	}
	return val.(string), true
}

// Len returns the number of locally cached entries.
func (c *ResultCache) Len() int {
	n := 0
	c.local.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *ResultCache) remoteGet(ctx context.Context, key string) (string, bool) {
	if c.remote == nil {
		return "", false
	}
	val, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		// The remote tier is best-effort; a flaky Redis must not block
		// extraction.
		c.logger.Warn("remote cache get failed", slog.Any("error", err))
		return "", false
	}
	return val, ok
}

func (c *ResultCache) remoteSet(ctx context.Context, key, value string) {
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, value); err != nil {
		c.logger.Warn("remote cache set failed", slog.Any("error", err))
	}
}

func abbreviate(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
