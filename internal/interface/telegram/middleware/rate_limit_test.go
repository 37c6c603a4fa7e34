package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

func newTestLimiter(t *testing.T, window time.Duration, max int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		Window:          window,
		MaxMessages:     max,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := newTestLimiter(t, 30*time.Second, 5)
	user := tutor.UserID(1)
	base := time.Now()

	for i := 0; i < 5; i++ {
		allowed, _ := rl.allowAt(user, base.Add(time.Duration(i)*time.Second))
		assert.True(t, allowed, "message %d should be allowed", i+1)
	}

	allowed, retryAfter := rl.allowAt(user, base.Add(5*time.Second))
	assert.False(t, allowed, "sixth message within the window should be rejected")
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestRateLimiter_SlotOpensWhenOldestExpires(t *testing.T) {
	rl := newTestLimiter(t, 30*time.Second, 5)
	user := tutor.UserID(2)
	base := time.Now()

	for i := 0; i < 5; i++ {
		allowed, _ := rl.allowAt(user, base.Add(time.Duration(i)*time.Second))
		require.True(t, allowed)
	}

	// Oldest was at base; it expires once the window has fully passed it.
	allowed, retryAfter := rl.allowAt(user, base.Add(29*time.Second))
	assert.False(t, allowed)
	assert.InDelta(t, float64(time.Second), float64(retryAfter), float64(time.Millisecond))

	allowed, _ = rl.allowAt(user, base.Add(30*time.Second+time.Millisecond))
	assert.True(t, allowed, "a slot opens as soon as the oldest timestamp leaves the window")
}

func TestRateLimiter_WindowBoundaryIsInclusive(t *testing.T) {
	rl := newTestLimiter(t, 30*time.Second, 5)
	user := tutor.UserID(9)
	base := time.Now()

	for i := 0; i < 5; i++ {
		allowed, _ := rl.allowAt(user, base)
		require.True(t, allowed)
	}

	// A timestamp exactly one window old still counts against the limit.
	allowed, _ := rl.allowAt(user, base.Add(30*time.Second))
	assert.False(t, allowed, "the boundary timestamp is still inside the trailing window")

	allowed, _ = rl.allowAt(user, base.Add(30*time.Second+time.Nanosecond))
	assert.True(t, allowed)
}

func TestRateLimiter_RejectionsDoNotExtendPenalty(t *testing.T) {
	rl := newTestLimiter(t, 30*time.Second, 5)
	user := tutor.UserID(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		allowed, _ := rl.allowAt(user, base)
		require.True(t, allowed)
	}

	// Hammering while limited must not push the recovery point out.
	for i := 1; i <= 20; i++ {
		allowed, _ := rl.allowAt(user, base.Add(time.Duration(i)*time.Second))
		require.False(t, allowed)
	}

	allowed, _ := rl.allowAt(user, base.Add(30*time.Second+time.Millisecond))
	assert.True(t, allowed)
}

func TestRateLimiter_UsersAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, 30*time.Second, 5)
	base := time.Now()

	for i := 0; i < 5; i++ {
		allowed, _ := rl.allowAt(tutor.UserID(10), base)
		require.True(t, allowed)
	}
	allowed, _ := rl.allowAt(tutor.UserID(10), base)
	require.False(t, allowed)

	allowed, _ = rl.allowAt(tutor.UserID(11), base)
	assert.True(t, allowed, "another user's traffic must not be affected")
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := newTestLimiter(t, 30*time.Second, 2)
	user := tutor.UserID(4)
	base := time.Now()

	for i := 0; i < 2; i++ {
		allowed, _ := rl.allowAt(user, base)
		require.True(t, allowed)
	}
	allowed, _ := rl.allowAt(user, base)
	require.False(t, allowed)

	rl.Reset(user)

	allowed, _ = rl.allowAt(user, base)
	assert.True(t, allowed)
}

func TestRateLimiter_InWindow(t *testing.T) {
	rl := newTestLimiter(t, time.Minute, 10)
	user := tutor.UserID(5)

	assert.Equal(t, 0, rl.InWindow(user))

	now := time.Now()
	for i := 0; i < 3; i++ {
		allowed, _ := rl.allowAt(user, now)
		require.True(t, allowed)
	}

	assert.Equal(t, 3, rl.InWindow(user))
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := newTestLimiter(t, time.Minute, 50)
	user := tutor.UserID(6)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := rl.Allow(user); allowed {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, accepted, "exactly the window capacity is accepted under contention")
}

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig())

	result := m.RecoverWithHandler(context.Background(), tutor.UserID(7), "/learn", func() error {
		panic("boom")
	})

	require.True(t, result.Recovered)
	require.NotNil(t, result.PanicInfo)
	assert.Equal(t, "boom", result.PanicInfo.PanicValue)
	assert.NotEmpty(t, result.UserMessage)
}

func TestRecoveryMiddleware_PassesThroughErrors(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig())

	result := m.RecoverWithHandler(context.Background(), tutor.UserID(8), "/quiz", func() error {
		return assert.AnError
	})

	require.False(t, result.Recovered)
	assert.ErrorIs(t, result.Err, assert.AnError)
}
