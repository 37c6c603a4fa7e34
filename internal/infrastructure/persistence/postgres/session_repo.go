package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// schema creates the session table on first use. The table mirrors the JSON
// snapshot layout, one row per user.
const schema = `
CREATE TABLE IF NOT EXISTS tutor_sessions (
	user_id     BIGINT PRIMARY KEY,
	lang        TEXT   NOT NULL,
	level       INT    NOT NULL,
	module_idx  INT    NOT NULL DEFAULT 0,
	quiz_idx    INT    NOT NULL DEFAULT 0,
	score       INT    NOT NULL DEFAULT 0,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// SessionRepository implements tutor.Repository on PostgreSQL.
//
// Save replaces the whole table contents with the snapshot inside one
// transaction, matching the replace-everything semantics of the file store.
// Session counts are small (one row per active user), so the full rewrite is
// cheaper than tracking per-user dirty state.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates the repository and ensures the schema exists.
func NewSessionRepository(ctx context.Context, conn *Connection) (*SessionRepository, error) {
	if _, err := conn.Pool().Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres: create sessions table: %w", err)
	}
	return &SessionRepository{conn: conn}, nil
}

// Load reads every persisted session.
func (r *SessionRepository) Load(ctx context.Context) (tutor.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.conn.config.QueryTimeout)
	defer cancel()

	rows, err := r.conn.Pool().Query(ctx,
		`SELECT user_id, lang, level, module_idx, quiz_idx, score FROM tutor_sessions`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load sessions: %w", err)
	}
	defer rows.Close()

	snap := tutor.Snapshot{}
	for rows.Next() {
		var (
			userID int64
			sess   tutor.Session
		)
		if err := rows.Scan(&userID, &sess.Language, &sess.Level,
			&sess.ModuleCursor, &sess.QuizCursor, &sess.Score); err != nil {
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		snap[tutor.UserID(userID)] = &sess
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load sessions: %w", err)
	}

	return snap, nil
}

// Save replaces the stored snapshot with snap.
func (r *SessionRepository) Save(ctx context.Context, snap tutor.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.conn.config.QueryTimeout)
	defer cancel()

	tx, err := r.conn.Pool().BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE tutor_sessions`); err != nil {
		return fmt.Errorf("postgres: clear sessions: %w", err)
	}

	batch := &pgx.Batch{}
	for id, sess := range snap {
		if sess == nil {
			continue
		}
		batch.Queue(
			`INSERT INTO tutor_sessions (user_id, lang, level, module_idx, quiz_idx, score, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())`,
			int64(id), string(sess.Language), int(sess.Level),
			sess.ModuleCursor, sess.QuizCursor, sess.Score,
		)
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("postgres: insert session: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("postgres: flush sessions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save: %w", err)
	}

	return nil
}
