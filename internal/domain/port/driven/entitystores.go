package driven

import (
	"context"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

// ClubStore reads local clubs. Get methods return nil, nil when no row
// matches.
type ClubStore interface {
	GetByID(ctx context.Context, id int64) (*model.Club, error)
	FindByName(ctx context.Context, name string) (*model.Club, error)
}

// TeamStore reads local teams.
type TeamStore interface {
	GetByID(ctx context.Context, id int64) (*model.Team, error)
	// FindByNameAndSeason matches on exact name and normalized season
	// label; seasonLabel may be empty to match teams without one.
	FindByNameAndSeason(ctx context.Context, name, seasonLabel string) (*model.Team, error)
}

// PlayerStore reads local players, including the secondary-identity lookups
// the reconciler uses to link a new external id to an existing player.
type PlayerStore interface {
	GetByID(ctx context.Context, id int64) (*model.Player, error)
	FindByEmail(ctx context.Context, email string) (*model.Player, error)
	FindByNameAndBirthDate(ctx context.Context, firstName, lastName string, birthDate time.Time) (*model.Player, error)
}
