package driven

import (
	"context"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// ReconcileStore applies the write half of one reconciled entity: the local
// row and its mapping commit in a single transaction, so a crash mid-run can
// never leave a local row without its mapping. An entity with ID 0 is
// inserted; otherwise the existing row is updated. The returned id is the
// local row id the mapping now points at.
//
// The preview pipeline substitutes a no-write implementation.
type ReconcileStore interface {
	ApplyClub(ctx context.Context, club model.Club, externalID, displayName string) (int64, error)
	ApplyTeam(ctx context.Context, team model.Team, externalID, displayName string) (int64, error)
	ApplyPlayer(ctx context.Context, player model.Player, externalID, displayName string) (int64, error)
}
