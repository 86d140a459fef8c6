package driven

import (
	"context"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// SyncConfigStore persists per-credential sync configuration and owns the
// sync_in_progress latch. TryLock must be an atomic compare-and-set: exactly
// one concurrent caller wins.
type SyncConfigStore interface {
	// Ensure returns the configuration for a credential, creating a
	// disabled manual-cadence row if none exists.
	Ensure(ctx context.Context, credentialID int64) (model.SyncConfiguration, error)
	GetByCredential(ctx context.Context, credentialID int64) (*model.SyncConfiguration, error)
	// Update sets enabled and cadence.
	Update(ctx context.Context, credentialID int64, enabled bool, cadence model.Cadence) error

	// TryLock atomically sets sync_in_progress if it is clear, returning
	// whether this caller took the latch.
	TryLock(ctx context.Context, configurationID int64) (bool, error)
	// Unlock clears the latch unconditionally.
	Unlock(ctx context.Context, configurationID int64) error
	// SetLastSync records the completion time of the latest run.
	SetLastSync(ctx context.Context, configurationID int64, at time.Time) error

	// ListEligible returns enabled, unlocked configurations with the given
	// cadence.
	ListEligible(ctx context.Context, cadence model.Cadence) ([]model.SyncConfiguration, error)
	// ListStaleLocks returns configurations whose latch was taken before
	// the cutoff, for crash recovery.
	ListStaleLocks(ctx context.Context, before time.Time) ([]model.SyncConfiguration, error)
}
