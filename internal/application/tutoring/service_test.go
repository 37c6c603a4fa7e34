package tutoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// memoryRepo records every saved snapshot.
type memoryRepo struct {
	mu      sync.Mutex
	initial tutor.Snapshot
	saved   []tutor.Snapshot
	saveErr error
	loadErr error
}

func (r *memoryRepo) Load(ctx context.Context) (tutor.Snapshot, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.initial == nil {
		return tutor.Snapshot{}, nil
	}
	return r.initial.Clone(), nil
}

func (r *memoryRepo) Save(ctx context.Context, snap tutor.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, snap)
	return nil
}

func (r *memoryRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *memoryRepo) lastSaved() tutor.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil
	}
	return r.saved[len(r.saved)-1]
}

func testCatalog() *tutor.Catalog {
	return tutor.NewCatalog(map[tutor.Language]map[tutor.Level]*tutor.Track{
		"python": {
			0: {
				Modules: []tutor.Module{
					{Title: "Variables", Lesson: "tipos básicos"},
					{Title: "Control", Lesson: "if/else"},
				},
				Quiz: []tutor.QuizQuestion{
					{Question: "len('hola')", Options: []string{"3", "4", "5"}, Answer: 1},
					{Question: "2+2", Options: []string{"4", "5"}, Answer: 0},
				},
				Errors: []tutor.CommonError{
					{Name: "SyntaxError", Cause: "falta :", Remedy: "revisar línea"},
				},
			},
			1: {
				Modules: []tutor.Module{{Title: "Comprehensions"}},
			},
		},
	})
}

func newTestService(t *testing.T, repo *memoryRepo) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(context.Background(), testCatalog(), repo, logger)
	require.NoError(t, err)
	return svc
}

func TestService_BeginValidatesSelection(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	err := svc.Begin(ctx, 1, "rust", 0)
	assert.ErrorIs(t, err, shared.ErrInvalidSelection)

	err = svc.Begin(ctx, 1, "python", 99)
	assert.ErrorIs(t, err, shared.ErrInvalidSelection)

	require.NoError(t, svc.Begin(ctx, 1, "python", 0))
	assert.Equal(t, 1, repo.saveCount(), "successful begin persists")

	sess, ok := svc.Session(1)
	require.True(t, ok)
	assert.Equal(t, 0, sess.ModuleCursor)
	assert.Equal(t, 0, sess.Score)
}

func TestService_BeginRestartsExistingSession(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Begin(ctx, 1, "python", 0))
	_, err := svc.Advance(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Begin(ctx, 1, "python", 1))

	sess, ok := svc.Session(1)
	require.True(t, ok)
	assert.Equal(t, tutor.Level(1), sess.Level)
	assert.Equal(t, 0, sess.ModuleCursor, "begin resets cursors")
}

func TestService_AdvanceWalksModulesThenExhausts(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Begin(ctx, 1, "python", 0))

	first, err := svc.Advance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Variables", first.Module.Title)
	assert.Equal(t, 0, first.Index)
	assert.False(t, first.Exhausted)

	second, err := svc.Advance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Control", second.Module.Title)
	assert.Equal(t, 1, second.Index)

	saves := repo.saveCount()

	exhausted, err := svc.Advance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exhausted.Exhausted)

	again, err := svc.Advance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, again.Exhausted, "exhausted advance is idempotent")
	assert.Equal(t, saves, repo.saveCount(), "exhausted advance does not persist")
}

func TestService_AdvanceWithoutSession(t *testing.T) {
	svc := newTestService(t, &memoryRepo{})

	_, err := svc.Advance(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)
}

func TestService_QuizFlow(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Begin(ctx, 1, "python", 0))

	start, err := svc.StartQuiz(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "len('hola')", start.Question.Question)
	assert.Equal(t, 2, start.Total)

	// Correct answer (zero-based choice 1).
	res, err := svc.SubmitAnswer(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Done)
	require.NotNil(t, res.Next)
	assert.Equal(t, "2+2", res.Next.Question)
	assert.Equal(t, 1, res.Score)

	// Wrong answer still advances and persists.
	saves := repo.saveCount()
	res, err = svc.SubmitAnswer(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "4", res.CorrectOption)
	assert.True(t, res.Done)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.Total)
	assert.Greater(t, repo.saveCount(), saves)

	// Quiz finished: another answer has no pending question.
	_, err = svc.SubmitAnswer(ctx, 1, 0)
	assert.ErrorIs(t, err, shared.ErrNoActiveQuiz)
}

func TestService_StartQuizResetsScore(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Begin(ctx, 1, "python", 0))

	_, err := svc.StartQuiz(ctx, 1)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, 1, 1)
	require.NoError(t, err)

	start, err := svc.StartQuiz(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, start.Index)

	sess, _ := svc.Session(1)
	assert.Equal(t, 0, sess.Score)
	assert.Equal(t, 0, sess.QuizCursor)
}

func TestService_StartQuizWithoutQuiz(t *testing.T) {
	svc := newTestService(t, &memoryRepo{})
	ctx := context.Background()
	require.NoError(t, svc.Begin(ctx, 1, "python", 1))

	_, err := svc.StartQuiz(ctx, 1)
	assert.ErrorIs(t, err, shared.ErrNoQuizAvailable)
}

func TestService_Progress(t *testing.T) {
	svc := newTestService(t, &memoryRepo{})
	ctx := context.Background()

	_, err := svc.Progress(1)
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)

	require.NoError(t, svc.Begin(ctx, 1, "python", 0))
	_, err = svc.Advance(ctx, 1)
	require.NoError(t, err)

	report, err := svc.Progress(1)
	require.NoError(t, err)
	assert.Equal(t, tutor.Language("python"), report.Language)
	assert.Equal(t, 1, report.ModulesDone)
	assert.Equal(t, 2, report.ModuleTotal)
	assert.Equal(t, 0, report.QuizAnswered)
	assert.Equal(t, 2, report.QuizTotal)
}

func TestService_Reset(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	err := svc.Reset(ctx, 1)
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)

	require.NoError(t, svc.Begin(ctx, 1, "python", 0))
	require.NoError(t, svc.Reset(ctx, 1))

	_, ok := svc.Session(1)
	assert.False(t, ok)

	last := repo.lastSaved()
	require.NotNil(t, last)
	assert.Empty(t, last, "reset persists the deletion")
}

func TestService_PersistFailureDoesNotRollBack(t *testing.T) {
	repo := &memoryRepo{saveErr: errors.New("disk full")}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Begin(ctx, 1, "python", 0))

	sess, ok := svc.Session(1)
	require.True(t, ok, "in-memory state survives a failed persist")
	assert.Equal(t, tutor.Language("python"), sess.Language)
}

func TestService_LoadDropsStaleSessions(t *testing.T) {
	repo := &memoryRepo{initial: tutor.Snapshot{
		1: {Language: "python", Level: 0, ModuleCursor: 1},
		2: {Language: "cobol", Level: 3},
		3: {Language: "python", Level: 0, ModuleCursor: 99},
	}}
	svc := newTestService(t, repo)

	_, ok := svc.Session(1)
	assert.True(t, ok)

	_, ok = svc.Session(2)
	assert.False(t, ok, "unknown track is dropped at load")

	_, ok = svc.Session(3)
	assert.False(t, ok, "out-of-range cursor is dropped at load")
}

func TestService_ConcurrentSameUser(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Begin(ctx, 1, "python", 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Advance(ctx, 1)
		}()
	}
	wg.Wait()

	sess, ok := svc.Session(1)
	require.True(t, ok)
	assert.Equal(t, 2, sess.ModuleCursor, "cursor never passes the module count")
}
