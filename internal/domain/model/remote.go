package model

// Remote entity shapes as normalized by the federation adapter. The raw API
// responses use several historical field spellings; the adapter's extractor
// pipeline has already collapsed those by the time these structs exist.
// Identity normalization (name splitting, gender vocabulary) happens later,
// in the reconciliation engine.

// RemoteOrganization is a top-level federation account scope.
type RemoteOrganization struct {
	ID   string
	Name string
}

// GroupRowKind tags how a group row arrived from the API: as a full group
// entity or as a season-scoped relation row referencing a base group.
type GroupRowKind string

const (
	GroupRowFull     GroupRowKind = "full"
	GroupRowRelation GroupRowKind = "relation"
)

// RemoteGroup is a team/roster container. Relation rows carry a RelationID
// distinct from the base group id plus season fields; full rows may lack
// season information entirely, in which case season filtering passes them
// through (a missing label cannot prove a mismatch).
type RemoteGroup struct {
	Kind        GroupRowKind
	ID          string
	RelationID  string
	Name        string
	SeasonID    string
	SeasonLabel string
}

// RemoteContact is a federation person record. Name fields hold whatever the
// API provided: split first/last, a combined display name, or both. Gender
// is the raw remote encoding.
type RemoteContact struct {
	ID          string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	Gender      string
	BirthDate   string // ISO date string when present.
}

// RemoteSeason is a season catalog entry.
type RemoteSeason struct {
	ID   string
	Name string
}
