package history

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

func TestRing_AppendEvictsOldest(t *testing.T) {
	ring := NewRing(3, 500)
	user := tutor.UserID(1)

	for i := 1; i <= 5; i++ {
		ring.Append(user, "texto", fmt.Sprintf("mensaje %d", i))
	}

	entries := ring.Entries(user)
	require.Len(t, entries, 3)
	assert.Equal(t, "mensaje 3", entries[0].Text)
	assert.Equal(t, "mensaje 5", entries[2].Text)
}

func TestRing_TruncatesLongEntries(t *testing.T) {
	ring := NewRing(5, 10)
	user := tutor.UserID(1)

	ring.Append(user, "texto", strings.Repeat("x", 50))

	entries := ring.Entries(user)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Text, 10)
}

func TestRing_Render(t *testing.T) {
	ring := NewRing(5, 500)
	user := tutor.UserID(1)

	assert.Equal(t, NoHistory, ring.Render(user))

	ring.Append(user, "texto", "primer error")
	ring.Append(user, "foto", "segundo error")

	assert.Equal(t, "1. (texto) primer error\n2. (foto) segundo error", ring.Render(user))
}

func TestRing_Forget(t *testing.T) {
	ring := NewRing(5, 500)
	user := tutor.UserID(1)

	ring.Append(user, "texto", "algo")
	ring.Forget(user)

	assert.Empty(t, ring.Entries(user))
	assert.Equal(t, NoHistory, ring.Render(user))
}

func TestRing_UsersAreIsolated(t *testing.T) {
	ring := NewRing(5, 500)

	ring.Append(1, "texto", "de uno")
	ring.Append(2, "texto", "de dos")

	require.Len(t, ring.Entries(1), 1)
	assert.Equal(t, "de uno", ring.Entries(1)[0].Text)
	assert.Equal(t, "de dos", ring.Entries(2)[0].Text)
}

func TestRing_ConcurrentAppends(t *testing.T) {
	ring := NewRing(5, 500)
	user := tutor.UserID(7)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ring.Append(user, "texto", fmt.Sprintf("m%d", n))
		}(i)
	}
	wg.Wait()

	assert.Len(t, ring.Entries(user), 5)
}

func TestRing_DefaultsOnBadArguments(t *testing.T) {
	ring := NewRing(0, -1)
	user := tutor.UserID(1)

	for i := 0; i < DefaultCapacity+2; i++ {
		ring.Append(user, "texto", "x")
	}

	assert.Len(t, ring.Entries(user), DefaultCapacity)
}
