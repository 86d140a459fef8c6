package model

import "time"

// SyncRun is one append-only history record for a sync run. Status moves
// from in_progress to exactly one terminal value.
type SyncRun struct {
	ID              int64
	RunID           string // Correlation id, also attached to run logs.
	ConfigurationID int64
	SyncType        SyncType
	Direction       string // Always "pull" today; kept for forward compatibility.
	Status          RunStatus
	ItemsProcessed  int
	ItemsSucceeded  int
	ItemsFailed     int
	ErrorDetail     string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// DirectionPull is the only sync direction the engine performs.
const DirectionPull = "pull"
