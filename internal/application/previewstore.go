package application

import (
	"context"
	"sync"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReconcileStore = (*previewStore)(nil)

// PreviewAction classifies what a sync run would do to one entity.
type PreviewAction string

const (
	PreviewCreate PreviewAction = "create"
	PreviewUpdate PreviewAction = "update"
)

// PreviewItem is one would-be write recorded by a dry run.
type PreviewItem struct {
	Kind       model.EntityKind `json:"kind"`
	Action     PreviewAction    `json:"action"`
	LocalID    int64            `json:"local_id,omitempty"`
	ExternalID string           `json:"external_id"`
	Name       string           `json:"name"`
}

// previewStore implements ReconcileStore without touching the database. It
// records what each apply would have done and hands out synthetic negative
// ids for would-be inserts so downstream lookups stay consistent within the
// dry run.
type previewStore struct {
	mu     sync.Mutex
	nextID int64
	items  []PreviewItem
}

func newPreviewStore() *previewStore {
	return &previewStore{nextID: -1}
}

func (s *previewStore) ApplyClub(ctx context.Context, club model.Club, externalID, displayName string) (int64, error) {
	return s.record(model.EntityKindClub, club.ID, externalID, displayName), nil
}

func (s *previewStore) ApplyTeam(ctx context.Context, team model.Team, externalID, displayName string) (int64, error) {
	return s.record(model.EntityKindTeam, team.ID, externalID, displayName), nil
}

func (s *previewStore) ApplyPlayer(ctx context.Context, player model.Player, externalID, displayName string) (int64, error) {
	return s.record(model.EntityKindPlayer, player.ID, externalID, displayName), nil
}

func (s *previewStore) record(kind model.EntityKind, localID int64, externalID, name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := PreviewUpdate
	if localID == 0 {
		action = PreviewCreate
		localID = s.nextID
		s.nextID--
	}

	s.items = append(s.items, PreviewItem{
		Kind:       kind,
		Action:     action,
		LocalID:    localID,
		ExternalID: externalID,
		Name:       name,
	})
	return localID
}

func (s *previewStore) recorded() []PreviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PreviewItem(nil), s.items...)
}
