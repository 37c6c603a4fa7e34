package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

func TestSnapshotStore_MissingFileIsEmptySnapshot(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "state.json"))

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "state.json"))

	snap := tutor.Snapshot{
		42: {Language: "python", Level: 1, ModuleCursor: 2, QuizCursor: 1, Score: 1},
		7:  {Language: "go", Level: 0},
	}

	require.NoError(t, store.Save(context.Background(), snap))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	sess := loaded[42]
	require.NotNil(t, sess)
	assert.Equal(t, tutor.Language("python"), sess.Language)
	assert.Equal(t, tutor.Level(1), sess.Level)
	assert.Equal(t, 2, sess.ModuleCursor)
	assert.Equal(t, 1, sess.QuizCursor)
	assert.Equal(t, 1, sess.Score)

	assert.Equal(t, tutor.Language("go"), loaded[7].Language)
}

func TestSnapshotStore_SaveReplacesPrevious(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tutor.Snapshot{1: {Language: "python"}}))
	require.NoError(t, store.Save(ctx, tutor.Snapshot{2: {Language: "go"}}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded[1], "old snapshot contents must be replaced, not merged")
	assert.NotNil(t, loaded[2])
}

func TestSnapshotStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewSnapshotStore(path)
	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestSnapshotStore_JSONFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewSnapshotStore(path)

	require.NoError(t, store.Save(context.Background(), tutor.Snapshot{
		9: {Language: "python", Level: 2, ModuleCursor: 3, QuizCursor: 2, Score: 1},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The on-disk format keys sessions by stringified user ID with the
	// stable field names older deployments already wrote.
	assert.Contains(t, string(data), `"9"`)
	assert.Contains(t, string(data), `"lang": "python"`)
	assert.Contains(t, string(data), `"module_idx": 3`)
	assert.Contains(t, string(data), `"quiz_idx": 2`)
	assert.Contains(t, string(data), `"score": 1`)
}
