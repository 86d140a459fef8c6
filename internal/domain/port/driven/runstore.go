package driven

import (
	"context"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// RunStore persists sync run history. Rows are append-only: a run is created
// in_progress and finalized to a terminal status exactly once.
type RunStore interface {
	// Create writes a new in_progress run and returns its id.
	Create(ctx context.Context, run model.SyncRun) (int64, error)
	// Finalize transitions a run to a terminal status with its counters.
	Finalize(ctx context.Context, id int64, status model.RunStatus, processed, succeeded, failed int, errorDetail string) error
	// ListByCredential returns runs for a credential's configuration,
	// newest first.
	ListByCredential(ctx context.Context, credentialID int64, limit, offset int) ([]model.SyncRun, error)
	// Prune deletes all but the newest keep runs for a configuration.
	Prune(ctx context.Context, configurationID int64, keep int) error
	// FailStale marks in_progress runs for a configuration started before
	// the cutoff as failed. Used by stale-lock recovery.
	FailStale(ctx context.Context, configurationID int64, before time.Time) error
}
