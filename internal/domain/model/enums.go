package model

// RunStatus represents the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusSuccess        RunStatus = "success"
	RunStatusPartialSuccess RunStatus = "partial_success"
	RunStatusFailed         RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusPartialSuccess || s == RunStatusFailed
}

// SyncType identifies what a run synchronizes.
type SyncType string

const (
	SyncTypeTeams   SyncType = "teams"
	SyncTypePlayers SyncType = "players"
	SyncTypeVerify  SyncType = "verify"
)

// Cadence represents how often a configuration syncs automatically.
type Cadence string

const (
	CadenceManual Cadence = "manual"
	CadenceHourly Cadence = "hourly"
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// Valid reports whether the cadence is one of the known values.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceManual, CadenceHourly, CadenceDaily, CadenceWeekly:
		return true
	}
	return false
}

// EntityKind identifies which local entity a mapping row links.
type EntityKind string

const (
	EntityKindClub   EntityKind = "club"
	EntityKindTeam   EntityKind = "team"
	EntityKindPlayer EntityKind = "player"
)

// MappingStatus records the outcome of the last reconciliation of a mapping.
type MappingStatus string

const (
	MappingStatusSuccess MappingStatus = "success"
	MappingStatusError   MappingStatus = "error"
)

// Gender is the fixed local vocabulary for player gender. Remote systems
// encode this as letters, words, or numeric codes; normalization never
// errors, it falls back to GenderUnknown.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)
