package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadStore is the persistence contract the orchestrator and the action API
// depend on. The pgx repository implements it; tests use an in-memory fake.
type LeadStore interface {
	// UpsertBySourceURL inserts a new lead in state DISCOVERED, or overwrites
	// the non-nil fields of an existing lead with the same source URL.
	UpsertBySourceURL(ctx context.Context, params UpsertLeadParams) (Lead, error)

	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ListByState(ctx context.Context, state State) ([]Lead, error)

	// ListDispatchable returns drafted, not-yet-queued leads ordered oldest
	// first, up to limit.
	ListDispatchable(ctx context.Context, limit int) ([]Lead, error)

	// CountQueuedSince counts leads queued at or after the given instant.
	CountQueuedSince(ctx context.Context, since time.Time) (int, error)

	// CountSentSince counts leads marked sent at or after the given instant.
	CountSentSince(ctx context.Context, since time.Time) (int, error)

	// CountBacklog counts leads currently in QUEUED or DRAFTED.
	CountBacklog(ctx context.Context) (int, error)

	// SaveAll persists the mutated leads in a single transaction.
	SaveAll(ctx context.Context, leads []Lead) error

	// MarkSent, MarkReplied and MarkClosed are driven by the external action
	// API. Each is an idempotent no-op success when re-applied.
	MarkSent(ctx context.Context, id uuid.UUID) (Lead, error)
	MarkReplied(ctx context.Context, id uuid.UUID) (Lead, error)
	MarkClosed(ctx context.Context, id uuid.UUID) (Lead, error)

	// StateCounts returns the number of leads per lifecycle state.
	StateCounts(ctx context.Context) (map[State]int, error)
}

// UsageStore persists per-credential daily generation usage. Counters are
// keyed by (credential index, UTC calendar date), so the day boundary reset
// falls out of the key without an explicit reset step.
type UsageStore interface {
	GetDailyUsage(ctx context.Context, day string) (map[int]int, error)
	IncrementUsage(ctx context.Context, credential int, day string) error
}
