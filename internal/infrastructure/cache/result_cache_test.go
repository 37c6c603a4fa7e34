package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash([]byte("print('hola')"))
	b := ContentHash([]byte("print('hola')"))
	c := ContentHash([]byte("print('adios')"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestResultCache_ComputesOnce(t *testing.T) {
	c := NewResultCache(nil, discardLogger())
	var calls atomic.Int32

	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "extracted text", nil
	}

	key := ContentHash([]byte("payload"))
	assert.Equal(t, "extracted text", c.GetOrCompute(context.Background(), key, compute))
	assert.Equal(t, "extracted text", c.GetOrCompute(context.Background(), key, compute))
	assert.Equal(t, int32(1), calls.Load())
}

func TestResultCache_FailureCachedAsEmpty(t *testing.T) {
	c := NewResultCache(nil, discardLogger())
	var calls atomic.Int32

	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("ocr crashed")
	}

	key := ContentHash([]byte("broken image"))
	assert.Equal(t, "", c.GetOrCompute(context.Background(), key, compute))

	// The failure is memoized: no second attempt.
	assert.Equal(t, "", c.GetOrCompute(context.Background(), key, compute))
	assert.Equal(t, int32(1), calls.Load())

	val, ok := c.Peek(key)
	assert.True(t, ok)
	assert.Equal(t, "", val)
}

func TestResultCache_ConcurrentRequestsShareComputation(t *testing.T) {
	c := NewResultCache(nil, discardLogger())
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	key := ContentHash([]byte("same bytes"))
	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrCompute(context.Background(), key, compute)
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent misses must share one computation")
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

type fakeRemote struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	sets   int
}

func (r *fakeRemote) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return "", false, r.getErr
	}
	val, ok := r.data[key]
	return val, ok, nil
}

func (r *fakeRemote) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		r.data = make(map[string]string)
	}
	r.data[key] = value
	r.sets++
	return nil
}

func TestResultCache_RemoteHitSkipsCompute(t *testing.T) {
	key := ContentHash([]byte("seen elsewhere"))
	remote := &fakeRemote{data: map[string]string{key: "from redis"}}
	c := NewResultCache(remote, discardLogger())

	val := c.GetOrCompute(context.Background(), key, func(ctx context.Context) (string, error) {
		t.Fatal("compute must not run on a remote hit")
		return "", nil
	})

	assert.Equal(t, "from redis", val)

	// The remote hit is now in the local tier.
	local, ok := c.Peek(key)
	assert.True(t, ok)
	assert.Equal(t, "from redis", local)
}

func TestResultCache_RemoteErrorsAreBestEffort(t *testing.T) {
	remote := &fakeRemote{getErr: errors.New("redis down")}
	c := NewResultCache(remote, discardLogger())

	key := ContentHash([]byte("payload"))
	val := c.GetOrCompute(context.Background(), key, func(ctx context.Context) (string, error) {
		return "computed anyway", nil
	})

	require.Equal(t, "computed anyway", val)
}

func TestResultCache_WritesThroughToRemote(t *testing.T) {
	remote := &fakeRemote{}
	c := NewResultCache(remote, discardLogger())

	key := ContentHash([]byte("new payload"))
	c.GetOrCompute(context.Background(), key, func(ctx context.Context) (string, error) {
		return "fresh", nil
	})

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, "fresh", remote.data[key])
	assert.Equal(t, 1, remote.sets)
}
