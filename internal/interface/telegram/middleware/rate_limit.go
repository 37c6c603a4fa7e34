// Package middleware provides cross-cutting update processing: per-user rate
// limiting and panic recovery.
package middleware

import (
	"sync"
	"time"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// ══════════════════════════════════════════════════════════════════════════
// SLIDING-WINDOW RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════

// RateLimiterConfig configures the per-user sliding window.
type RateLimiterConfig struct {
	// Window is the sliding interval over which messages are counted.
	Window time.Duration

	// MaxMessages is the number of messages accepted within Window.
	MaxMessages int

	// CleanupInterval controls how often idle user windows are dropped.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns the production limits: 5 messages per
// rolling 30 seconds per user.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Window:          30 * time.Second,
		MaxMessages:     5,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter enforces a per-user sliding-window limit. Each accepted message
// records a timestamp; a message is rejected when MaxMessages timestamps
// already fall within the trailing Window. Rejected messages record nothing,
// so hammering the bot never extends a user's own penalty.
type RateLimiter struct {
	config RateLimiterConfig

	users sync.Map // map[tutor.UserID]*userWindow

	stopOnce sync.Once
	stopCh   chan struct{}
}

type userWindow struct {
	mu sync.Mutex
	// Accepted-message timestamps, oldest first. Never longer than
	// MaxMessages: before each accept the expired prefix is dropped.
	stamps []time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Window <= 0 {
		config.Window = DefaultRateLimiterConfig().Window
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = DefaultRateLimiterConfig().MaxMessages
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimiterConfig().CleanupInterval
	}

	rl := &RateLimiter{
		config: config,
		stopCh: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a message from the user may proceed right now.
// When the answer is no, retryAfter is how long until the oldest in-window
// timestamp expires and a slot opens up.
func (rl *RateLimiter) Allow(user tutor.UserID) (allowed bool, retryAfter time.Duration) {
	return rl.allowAt(user, time.Now())
}

// allowAt is Allow with an injectable clock for tests.
func (rl *RateLimiter) allowAt(user tutor.UserID, now time.Time) (bool, time.Duration) {
	uw := rl.forUser(user)

	uw.mu.Lock()
	defer uw.mu.Unlock()

	cutoff := now.Add(-rl.config.Window)

	// Drop timestamps older than the cutoff. One sitting exactly on the
	// cutoff is still inside the trailing window.
	keep := 0
	for keep < len(uw.stamps) && uw.stamps[keep].Before(cutoff) {
		keep++
	}
	if keep > 0 {
		uw.stamps = append(uw.stamps[:0], uw.stamps[keep:]...)
	}

	if len(uw.stamps) >= rl.config.MaxMessages {
		oldest := uw.stamps[0]
		return false, oldest.Add(rl.config.Window).Sub(now)
	}

	uw.stamps = append(uw.stamps, now)
	return true, 0
}

// InWindow returns how many accepted messages the user currently has inside
// the window. Used by status reporting.
func (rl *RateLimiter) InWindow(user tutor.UserID) int {
	val, ok := rl.users.Load(user)
	if !ok {
		return 0
	}
	uw := val.(*userWindow)

	uw.mu.Lock()
	defer uw.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.Window)
	n := 0
	for _, ts := range uw.stamps {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// Reset clears the user's window.
func (rl *RateLimiter) Reset(user tutor.UserID) {
	rl.users.Delete(user)
}

// Stop terminates the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *RateLimiter) forUser(user tutor.UserID) *userWindow {
	if val, ok := rl.users.Load(user); ok {
		return val.(*userWindow)
	}
	actual, _ := rl.users.LoadOrStore(user, &userWindow{})
	return actual.(*userWindow)
}

// cleanupLoop periodically removes users whose windows are fully expired so
// one-off visitors do not accumulate forever.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.Window)

	rl.users.Range(func(key, val any) bool {
		uw := val.(*userWindow)

		uw.mu.Lock()
		idle := len(uw.stamps) == 0 || uw.stamps[len(uw.stamps)-1].Before(cutoff)
		uw.mu.Unlock()

		if idle {
			rl.users.Delete(key)
		}
		return true
	})
}
