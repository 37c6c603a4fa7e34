// Package tutoring implements the tutor state machine: per-user progression
// through the curriculum, quizzes and progress reporting.
package tutoring

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// AdvanceResult is the outcome of Advance: either the next module or an
// exhausted marker once the cursor has walked past the last one.
type AdvanceResult struct {
	Module    tutor.Module
	Index     int // zero-based index of the returned module
	Total     int
	Exhausted bool
}

// QuizStart is the outcome of StartQuiz.
type QuizStart struct {
	Question tutor.QuizQuestion
	Index    int // zero-based index of the question
	Total    int
}

// AnswerResult is the outcome of SubmitAnswer.
type AnswerResult struct {
	Correct       bool
	CorrectOption string

	// Done is true once the answered question was the last one.
	Done  bool
	Score int
	Total int

	// Next is the upcoming question when Done is false.
	Next      *tutor.QuizQuestion
	NextIndex int
}

// ProgressReport is the outcome of Progress.
type ProgressReport struct {
	Language     tutor.Language
	Level        tutor.Level
	ModulesDone  int
	ModuleTotal  int
	Score        int
	QuizAnswered int
	QuizTotal    int
}

// Service is the tutor state machine. Every mutating operation is serialized
// per user and followed by a synchronous best-effort persist of the full
// session snapshot: a failed write is logged and never rolls back memory.
type Service struct {
	catalog *tutor.Catalog
	repo    tutor.Repository
	logger  *slog.Logger

	// stateMu guards the sessions map; userLocks serializes operations of a
	// single user so two of their messages cannot interleave mid-mutation.
	stateMu   sync.RWMutex
	sessions  tutor.Snapshot
	userLocks sync.Map // map[tutor.UserID]*sync.Mutex
}

// NewService creates the service and loads the persisted snapshot once.
// Sessions referencing curriculum that no longer exists are dropped: a deploy
// that removes a track must not leave users wedged on it.
func NewService(ctx context.Context, catalog *tutor.Catalog, repo tutor.Repository, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snap, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	for id, sess := range snap {
		track, ok := catalog.Lookup(sess.Language, sess.Level)
		if !ok || sess.Validate(track) != nil {
			logger.Warn("dropping stale session",
				slog.Int64("user_id", int64(id)),
				slog.String("lang", string(sess.Language)),
				slog.Int("level", int(sess.Level)),
			)
			delete(snap, id)
		}
	}

	return &Service{
		catalog:  catalog,
		repo:     repo,
		logger:   logger,
		sessions: snap,
	}, nil
}

// Catalog exposes the curriculum for read-only listings.
func (s *Service) Catalog() *tutor.Catalog {
	return s.catalog
}

// Begin starts (or restarts) a session for (lang, level). Any previous
// session of the user is discarded, cursors start at zero.
func (s *Service) Begin(ctx context.Context, user tutor.UserID, lang tutor.Language, level tutor.Level) error {
	if !s.catalog.Has(lang, level) {
		return shared.NewDomainError("tutoring", "Begin", shared.ErrInvalidSelection, "unknown language or level")
	}

	unlock := s.lockUser(user)
	defer unlock()

	s.stateMu.Lock()
	s.sessions[user] = tutor.NewSession(lang, level)
	s.stateMu.Unlock()

	s.persist(ctx)
	return nil
}

// Advance returns the module at the current cursor and moves the cursor
// forward. Past the last module it reports Exhausted without persisting, so
// repeated calls are idempotent.
func (s *Service) Advance(ctx context.Context, user tutor.UserID) (*AdvanceResult, error) {
	unlock := s.lockUser(user)
	defer unlock()

	sess, track, err := s.sessionAndTrack(user)
	if err != nil {
		return nil, err
	}

	mod, ok := track.ModuleAt(sess.ModuleCursor)
	if !ok {
		return &AdvanceResult{Total: track.ModuleCount(), Exhausted: true}, nil
	}

	result := &AdvanceResult{
		Module: mod,
		Index:  sess.ModuleCursor,
		Total:  track.ModuleCount(),
	}

	s.stateMu.Lock()
	sess.ModuleCursor++
	s.stateMu.Unlock()

	s.persist(ctx)
	return result, nil
}

// StartQuiz restarts the session's quiz from the first question.
func (s *Service) StartQuiz(ctx context.Context, user tutor.UserID) (*QuizStart, error) {
	unlock := s.lockUser(user)
	defer unlock()

	sess, track, err := s.sessionAndTrack(user)
	if err != nil {
		return nil, err
	}

	if track.QuizCount() == 0 {
		return nil, shared.NewDomainError("tutoring", "StartQuiz", shared.ErrNoQuizAvailable, "no quiz for this level")
	}

	s.stateMu.Lock()
	sess.QuizCursor = 0
	sess.Score = 0
	s.stateMu.Unlock()

	s.persist(ctx)

	question, _ := track.QuestionAt(0)
	return &QuizStart{Question: question, Index: 0, Total: track.QuizCount()}, nil
}

// SubmitAnswer grades choice (zero-based) against the current question. The
// cursor always moves forward and the attempt is always persisted, right or
// wrong.
func (s *Service) SubmitAnswer(ctx context.Context, user tutor.UserID, choice int) (*AnswerResult, error) {
	unlock := s.lockUser(user)
	defer unlock()

	sess, track, err := s.sessionAndTrack(user)
	if err != nil {
		return nil, err
	}

	question, ok := track.QuestionAt(sess.QuizCursor)
	if !ok {
		return nil, shared.NewDomainError("tutoring", "SubmitAnswer", shared.ErrNoActiveQuiz, "no question pending")
	}

	correct := choice == question.Answer

	s.stateMu.Lock()
	if correct {
		sess.Score++
	}
	sess.QuizCursor++
	s.stateMu.Unlock()

	s.persist(ctx)

	result := &AnswerResult{
		Correct:       correct,
		CorrectOption: question.Options[question.Answer],
		Score:         sess.Score,
		Total:         track.QuizCount(),
	}

	if next, ok := track.QuestionAt(sess.QuizCursor); ok {
		result.Next = &next
		result.NextIndex = sess.QuizCursor
	} else {
		result.Done = true
	}

	return result, nil
}

// Progress reports the user's standing without mutating anything.
func (s *Service) Progress(user tutor.UserID) (*ProgressReport, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	sess, ok := s.sessions[user]
	if !ok {
		return nil, shared.NewDomainError("tutoring", "Progress", shared.ErrNoActiveSession, "no active session")
	}

	track, ok := s.catalog.Lookup(sess.Language, sess.Level)
	if !ok {
		return nil, shared.NewDomainError("tutoring", "Progress", shared.ErrInvalidSelection, "session references unknown track")
	}

	done := sess.ModuleCursor
	if done > track.ModuleCount() {
		done = track.ModuleCount()
	}

	return &ProgressReport{
		Language:     sess.Language,
		Level:        sess.Level,
		ModulesDone:  done,
		ModuleTotal:  track.ModuleCount(),
		Score:        sess.Score,
		QuizAnswered: sess.QuizCursor,
		QuizTotal:    track.QuizCount(),
	}, nil
}

// Session returns a copy of the user's session, or false without one.
func (s *Service) Session(user tutor.UserID) (*tutor.Session, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	sess, ok := s.sessions[user]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Reset discards the user's session.
func (s *Service) Reset(ctx context.Context, user tutor.UserID) error {
	unlock := s.lockUser(user)
	defer unlock()

	s.stateMu.Lock()
	_, existed := s.sessions[user]
	delete(s.sessions, user)
	s.stateMu.Unlock()

	if !existed {
		return shared.NewDomainError("tutoring", "Reset", shared.ErrNoActiveSession, "no active session")
	}

	s.persist(ctx)
	return nil
}

// sessionAndTrack resolves the caller's session and its track.
func (s *Service) sessionAndTrack(user tutor.UserID) (*tutor.Session, *tutor.Track, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	sess, ok := s.sessions[user]
	if !ok {
		return nil, nil, shared.NewDomainError("tutoring", "Session", shared.ErrNoActiveSession, "no active session")
	}

	track, ok := s.catalog.Lookup(sess.Language, sess.Level)
	if !ok {
		return nil, nil, shared.NewDomainError("tutoring", "Session", shared.ErrInvalidSelection, "session references unknown track")
	}

	return sess, track, nil
}

// persist writes the full snapshot through to the repository. Failures are
// logged and swallowed: in-memory state is the source of truth until the
// next successful write.
func (s *Service) persist(ctx context.Context) {
	s.stateMu.RLock()
	snap := s.sessions.Clone()
	s.stateMu.RUnlock()

	if err := s.repo.Save(ctx, snap); err != nil {
		s.logger.Warn("session persist failed", slog.Any("error", err))
	}
}

func (s *Service) lockUser(user tutor.UserID) func() {
	val, _ := s.userLocks.LoadOrStore(user, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
