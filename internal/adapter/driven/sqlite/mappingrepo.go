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
var _ driven.MappingStore = (*MappingRepo)(nil)

// MappingRepo is the SQLite implementation of the MappingStore port.
// Mapping writes that accompany entity writes live in ReconcileRepo so both
// commit in one transaction.
type MappingRepo struct {
	db *DB
}

// NewMappingRepo creates a new MappingRepo backed by the given DB.
func NewMappingRepo(db *DB) *MappingRepo {
	return &MappingRepo{db: db}
}

const mappingColumns = `id, entity_kind, local_id, external_id, external_display_name, last_synced_at, sync_status, sync_error`

// GetByExternalID returns the mapping for (kind, externalID), or nil, nil
// when no mapping exists.
func (r *MappingRepo) GetByExternalID(ctx context.Context, kind model.EntityKind, externalID string) (*model.EntityMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM entity_mappings WHERE entity_kind = ? AND external_id = ?`

	m, err := scanMapping(r.db.Reader.QueryRowContext(ctx, query, string(kind), externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping %s/%s: %w", kind, externalID, err)
	}
	return m, nil
}

// ListByKind returns all mappings of one kind, ordered by external id.
func (r *MappingRepo) ListByKind(ctx context.Context, kind model.EntityKind) ([]model.EntityMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM entity_mappings WHERE entity_kind = ? ORDER BY external_id`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list mappings for %s: %w", kind, err)
	}
	defer rows.Close()

	var mappings []model.EntityMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}

	return mappings, nil
}

// MarkError records a failed reconciliation on an existing mapping. Missing
// mappings are ignored: an entity that failed before its first successful
// reconciliation has no mapping row yet.
func (r *MappingRepo) MarkError(ctx context.Context, kind model.EntityKind, externalID, syncError string) error {
	const query = `
		UPDATE entity_mappings
		SET sync_status = 'error', sync_error = ?, last_synced_at = CURRENT_TIMESTAMP
		WHERE entity_kind = ? AND external_id = ?
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, syncError, string(kind), externalID); err != nil {
		return fmt.Errorf("mark mapping %s/%s error: %w", kind, externalID, err)
	}
	return nil
}

func scanMapping(s scanner) (*model.EntityMapping, error) {
	var m model.EntityMapping
	var kind, status string
	var lastSyncedAt string

	err := s.Scan(&m.ID, &kind, &m.LocalID, &m.ExternalID, &m.ExternalDisplayName, &lastSyncedAt, &status, &m.SyncError)
	if err != nil {
		return nil, err
	}

	m.EntityKind = model.EntityKind(kind)
	m.SyncStatus = model.MappingStatus(status)

	if m.LastSyncedAt, err = parseTime(lastSyncedAt); err != nil {
		return nil, fmt.Errorf("parse last_synced_at: %w", err)
	}

	return &m, nil
}
