package tutor

import "github.com/mentor-hub/code-mentor-bot/internal/domain/shared"

// UserID is the opaque stable identifier all per-user state is keyed by.
// For the Telegram transport this is the numeric Telegram user ID.
type UserID int64

// Session is one user's tutoring progress: the chosen track plus the module
// and quiz cursors.
//
// Invariants:
//   - 0 <= ModuleCursor <= track.ModuleCount()
//   - 0 <= QuizCursor <= track.QuizCount()
//   - 0 <= Score <= QuizCursor
//
// Cursors only move forward; they jump back to zero only through an explicit
// Begin or StartQuiz.
type Session struct {
	Language     Language `json:"lang"`
	Level        Level    `json:"level"`
	ModuleCursor int      `json:"module_idx"`
	QuizCursor   int      `json:"quiz_idx"`
	Score        int      `json:"score"`
}

// NewSession creates a fresh session for (lang, level) with all cursors at zero.
func NewSession(lang Language, level Level) *Session {
	return &Session{Language: lang, Level: level}
}

// Clone returns a copy of the session. Persistence implementations snapshot
// sessions via Clone so concurrent mutations cannot tear a write.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Validate checks the session invariants against its track.
func (s *Session) Validate(track *Track) error {
	if track == nil {
		return shared.NewDomainError("tutor", "Validate", shared.ErrInvalidSelection, "session references unknown track")
	}
	if s.ModuleCursor < 0 || s.ModuleCursor > track.ModuleCount() {
		return shared.NewDomainError("tutor", "Validate", shared.ErrValueOutOfRange, "module cursor out of range")
	}
	if s.QuizCursor < 0 || s.QuizCursor > track.QuizCount() {
		return shared.NewDomainError("tutor", "Validate", shared.ErrValueOutOfRange, "quiz cursor out of range")
	}
	if s.Score < 0 || s.Score > s.QuizCursor {
		return shared.NewDomainError("tutor", "Validate", shared.ErrValueOutOfRange, "score exceeds answered questions")
	}
	return nil
}

// Snapshot is the full session map persisted after every mutating operation.
type Snapshot map[UserID]*Session

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, sess := range s {
		out[id] = sess.Clone()
	}
	return out
}
