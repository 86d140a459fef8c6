package model

import "time"

// SyncConfiguration controls automatic syncing for one credential.
// SyncInProgress is the orchestrator's mutual-exclusion latch; every exit
// path of a run must clear it or the configuration deadlocks permanently.
type SyncConfiguration struct {
	ID             int64
	CredentialID   int64
	Enabled        bool
	Cadence        Cadence
	SyncInProgress bool
	LockedAt       *time.Time // Set when the latch was taken; used for stale-lock recovery.
	LastSyncAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
