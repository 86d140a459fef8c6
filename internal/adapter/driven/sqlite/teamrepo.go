package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TeamStore = (*TeamRepo)(nil)

// TeamRepo is the SQLite implementation of the TeamStore port interface.
type TeamRepo struct {
	db *DB
}

// NewTeamRepo creates a new TeamRepo backed by the given DB.
func NewTeamRepo(db *DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// GetByID retrieves a team by id. Returns nil, nil if it does not exist.
func (r *TeamRepo) GetByID(ctx context.Context, id int64) (*model.Team, error) {
	const query = `SELECT id, club_id, name, season_label, created_at, updated_at FROM teams WHERE id = ?`

	team, err := scanTeam(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team %d: %w", id, err)
	}
	return team, nil
}

// FindByNameAndSeason retrieves a team by exact name and season label.
// Returns nil, nil if no team matches.
func (r *TeamRepo) FindByNameAndSeason(ctx context.Context, name, seasonLabel string) (*model.Team, error) {
	const query = `
		SELECT id, club_id, name, season_label, created_at, updated_at
		FROM teams
		WHERE name = ? AND season_label = ?
		LIMIT 1
	`

	team, err := scanTeam(r.db.Reader.QueryRowContext(ctx, query, name, seasonLabel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find team %q season %q: %w", name, seasonLabel, err)
	}
	return team, nil
}

func scanTeam(s scanner) (*model.Team, error) {
	var team model.Team
	var createdAt, updatedAt string

	if err := s.Scan(&team.ID, &team.ClubID, &team.Name, &team.SeasonLabel, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if team.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if team.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &team, nil
}
