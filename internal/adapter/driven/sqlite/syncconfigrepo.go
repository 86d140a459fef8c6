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
var _ driven.SyncConfigStore = (*SyncConfigRepo)(nil)

// SyncConfigRepo is the SQLite implementation of the SyncConfigStore port.
// The sync_in_progress latch is implemented as a conditional UPDATE so the
// read-then-set is atomic on the single writer connection.
type SyncConfigRepo struct {
	db *DB
}

// NewSyncConfigRepo creates a new SyncConfigRepo backed by the given DB.
func NewSyncConfigRepo(db *DB) *SyncConfigRepo {
	return &SyncConfigRepo{db: db}
}

const configColumns = `id, credential_id, enabled, cadence, sync_in_progress, locked_at, last_sync_at, created_at, updated_at`

// Ensure returns the configuration for a credential, creating a disabled
// manual-cadence row if none exists.
func (r *SyncConfigRepo) Ensure(ctx context.Context, credentialID int64) (model.SyncConfiguration, error) {
	const insert = `
		INSERT INTO sync_configurations (credential_id, enabled, cadence)
		VALUES (?, 0, 'manual')
		ON CONFLICT(credential_id) DO NOTHING
	`
	if _, err := r.db.Writer.ExecContext(ctx, insert, credentialID); err != nil {
		return model.SyncConfiguration{}, fmt.Errorf("ensure configuration for credential %d: %w", credentialID, err)
	}

	cfg, err := r.GetByCredential(ctx, credentialID)
	if err != nil {
		return model.SyncConfiguration{}, err
	}
	if cfg == nil {
		return model.SyncConfiguration{}, fmt.Errorf("configuration for credential %d: %w", credentialID, driven.ErrNotFound)
	}
	return *cfg, nil
}

// GetByCredential retrieves the configuration for a credential. Returns
// nil, nil if none exists.
func (r *SyncConfigRepo) GetByCredential(ctx context.Context, credentialID int64) (*model.SyncConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM sync_configurations WHERE credential_id = ?`

	cfg, err := scanConfig(r.db.Reader.QueryRowContext(ctx, query, credentialID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get configuration for credential %d: %w", credentialID, err)
	}
	return cfg, nil
}

// Update sets enabled and cadence for a credential's configuration.
func (r *SyncConfigRepo) Update(ctx context.Context, credentialID int64, enabled bool, cadence model.Cadence) error {
	const query = `
		UPDATE sync_configurations
		SET enabled = ?, cadence = ?, updated_at = CURRENT_TIMESTAMP
		WHERE credential_id = ?
	`

	enabledInt := 0
	if enabled {
		enabledInt = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query, enabledInt, string(cadence), credentialID)
	if err != nil {
		return fmt.Errorf("update configuration for credential %d: %w", credentialID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("configuration for credential %d: %w", credentialID, driven.ErrNotFound)
	}
	return nil
}

// TryLock atomically sets sync_in_progress if it is clear. The conditional
// UPDATE makes the compare-and-set race-free: exactly one caller sees one
// affected row.
func (r *SyncConfigRepo) TryLock(ctx context.Context, configurationID int64) (bool, error) {
	const query = `
		UPDATE sync_configurations
		SET sync_in_progress = 1, locked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND sync_in_progress = 0
	`

	result, err := r.db.Writer.ExecContext(ctx, query, time.Now().UTC(), configurationID)
	if err != nil {
		return false, fmt.Errorf("lock configuration %d: %w", configurationID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows == 1, nil
}

// Unlock clears the latch unconditionally.
func (r *SyncConfigRepo) Unlock(ctx context.Context, configurationID int64) error {
	const query = `
		UPDATE sync_configurations
		SET sync_in_progress = 0, locked_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, configurationID); err != nil {
		return fmt.Errorf("unlock configuration %d: %w", configurationID, err)
	}
	return nil
}

// SetLastSync records the completion time of the latest run.
func (r *SyncConfigRepo) SetLastSync(ctx context.Context, configurationID int64, at time.Time) error {
	const query = `UPDATE sync_configurations SET last_sync_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, at.UTC(), configurationID); err != nil {
		return fmt.Errorf("set last sync for configuration %d: %w", configurationID, err)
	}
	return nil
}

// ListEligible returns enabled, unlocked configurations with the given cadence.
func (r *SyncConfigRepo) ListEligible(ctx context.Context, cadence model.Cadence) ([]model.SyncConfiguration, error) {
	query := `
		SELECT ` + configColumns + `
		FROM sync_configurations
		WHERE enabled = 1 AND sync_in_progress = 0 AND cadence = ?
		ORDER BY id
	`

	return r.queryConfigs(ctx, query, string(cadence))
}

// ListStaleLocks returns configurations whose latch was taken before the cutoff.
func (r *SyncConfigRepo) ListStaleLocks(ctx context.Context, before time.Time) ([]model.SyncConfiguration, error) {
	query := `
		SELECT ` + configColumns + `
		FROM sync_configurations
		WHERE sync_in_progress = 1 AND locked_at IS NOT NULL AND locked_at < ?
		ORDER BY id
	`

	return r.queryConfigs(ctx, query, before.UTC())
}

func (r *SyncConfigRepo) queryConfigs(ctx context.Context, query string, args ...any) ([]model.SyncConfiguration, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	defer rows.Close()

	var configs []model.SyncConfiguration
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configurations: %w", err)
	}

	return configs, nil
}

func scanConfig(s scanner) (*model.SyncConfiguration, error) {
	var cfg model.SyncConfiguration
	var enabled, inProgress int
	var cadence string
	var lockedAt, lastSyncAt sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&cfg.ID, &cfg.CredentialID, &enabled, &cadence, &inProgress,
		&lockedAt, &lastSyncAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled != 0
	cfg.SyncInProgress = inProgress != 0
	cfg.Cadence = model.Cadence(cadence)

	if cfg.LockedAt, err = parseNullTime(lockedAt); err != nil {
		return nil, fmt.Errorf("parse locked_at: %w", err)
	}
	if cfg.LastSyncAt, err = parseNullTime(lastSyncAt); err != nil {
		return nil, fmt.Errorf("parse last_sync_at: %w", err)
	}
	if cfg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if cfg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &cfg, nil
}
