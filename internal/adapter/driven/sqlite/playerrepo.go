package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PlayerStore = (*PlayerRepo)(nil)

// PlayerRepo is the SQLite implementation of the PlayerStore port interface.
type PlayerRepo struct {
	db *DB
}

// NewPlayerRepo creates a new PlayerRepo backed by the given DB.
func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

const playerColumns = `id, team_id, first_name, last_name, email, gender, birth_date, created_at, updated_at`

// GetByID retrieves a player by id. Returns nil, nil if it does not exist.
func (r *PlayerRepo) GetByID(ctx context.Context, id int64) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ?`

	player, err := scanPlayer(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return player, nil
}

// FindByEmail retrieves a player by exact email. Empty emails never match.
// Returns nil, nil if no player matches.
func (r *PlayerRepo) FindByEmail(ctx context.Context, email string) (*model.Player, error) {
	if email == "" {
		return nil, nil
	}

	query := `SELECT ` + playerColumns + ` FROM players WHERE email = ? LIMIT 1`

	player, err := scanPlayer(r.db.Reader.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find player by email: %w", err)
	}
	return player, nil
}

// FindByNameAndBirthDate retrieves a player by exact first/last name and
// birth date. Returns nil, nil if no player matches.
func (r *PlayerRepo) FindByNameAndBirthDate(ctx context.Context, firstName, lastName string, birthDate time.Time) (*model.Player, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE first_name = ? AND last_name = ? AND birth_date = ?
		LIMIT 1
	`

	player, err := scanPlayer(r.db.Reader.QueryRowContext(ctx, query, firstName, lastName, birthDate.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find player %s %s: %w", firstName, lastName, err)
	}
	return player, nil
}

func scanPlayer(s scanner) (*model.Player, error) {
	var player model.Player
	var gender string
	var birthDate sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&player.ID, &player.TeamID, &player.FirstName, &player.LastName,
		&player.Email, &gender, &birthDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	player.Gender = model.Gender(gender)

	if player.BirthDate, err = parseNullTime(birthDate); err != nil {
		return nil, fmt.Errorf("parse birth_date: %w", err)
	}
	if player.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if player.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &player, nil
}
