package tutor

import "context"

// Repository is the durable persistence port for tutor sessions.
//
// Load is called once at startup; Save is called synchronously after every
// mutating tutor operation with the full session snapshot. Saves are
// best-effort: a failed Save is logged by the caller and never rolls back
// the in-memory mutation, so memory and the durable copy may diverge until
// the next successful write.
type Repository interface {
	// Load returns the last persisted snapshot, or an empty snapshot when
	// nothing has been persisted yet.
	Load(ctx context.Context) (Snapshot, error)

	// Save persists the full snapshot, replacing the previous one.
	Save(ctx context.Context, snap Snapshot) error
}
