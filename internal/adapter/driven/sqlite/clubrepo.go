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
var _ driven.ClubStore = (*ClubRepo)(nil)

// ClubRepo is the SQLite implementation of the ClubStore port interface.
type ClubRepo struct {
	db *DB
}

// NewClubRepo creates a new ClubRepo backed by the given DB.
func NewClubRepo(db *DB) *ClubRepo {
	return &ClubRepo{db: db}
}

// GetByID retrieves a club by id. Returns nil, nil if it does not exist.
func (r *ClubRepo) GetByID(ctx context.Context, id int64) (*model.Club, error) {
	const query = `SELECT id, name, city, created_at, updated_at FROM clubs WHERE id = ?`

	club, err := scanClub(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get club %d: %w", id, err)
	}
	return club, nil
}

// FindByName retrieves a club by exact name. Returns nil, nil if no club
// matches.
func (r *ClubRepo) FindByName(ctx context.Context, name string) (*model.Club, error) {
	const query = `SELECT id, name, city, created_at, updated_at FROM clubs WHERE name = ? LIMIT 1`

	club, err := scanClub(r.db.Reader.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find club %q: %w", name, err)
	}
	return club, nil
}

func scanClub(s scanner) (*model.Club, error) {
	var club model.Club
	var createdAt, updatedAt string

	if err := s.Scan(&club.ID, &club.Name, &club.City, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if club.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if club.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &club, nil
}
