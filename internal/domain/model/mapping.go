package model

import "time"

// EntityMapping links one local row to one external federation id. At most
// one row exists per (entity kind, external id); a remote rename updates the
// existing row rather than creating a second one. Mappings are never deleted
// by sync runs.
type EntityMapping struct {
	ID                  int64
	EntityKind          EntityKind
	LocalID             int64
	ExternalID          string
	ExternalDisplayName string
	LastSyncedAt        time.Time
	SyncStatus          MappingStatus
	SyncError           string
}
