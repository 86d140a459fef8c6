package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create writes a new in_progress run and returns its id.
func (r *RunRepo) Create(ctx context.Context, run model.SyncRun) (int64, error) {
	const query = `
		INSERT INTO sync_history (run_id, configuration_id, sync_type, direction, status, started_at)
		VALUES (?, ?, ?, ?, 'in_progress', ?)
	`

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		run.RunID, run.ConfigurationID, string(run.SyncType), run.Direction, startedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("create sync run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create sync run: %w", err)
	}
	return id, nil
}

// Finalize transitions an in_progress run to a terminal status. A run that
// is already terminal is left untouched.
func (r *RunRepo) Finalize(ctx context.Context, id int64, status model.RunStatus, processed, succeeded, failed int, errorDetail string) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize run %d: %q is not a terminal status", id, status)
	}

	const query = `
		UPDATE sync_history
		SET status = ?, items_processed = ?, items_succeeded = ?, items_failed = ?, error_detail = ?, completed_at = ?
		WHERE id = ? AND status = 'in_progress'
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(status), processed, succeeded, failed, errorDetail, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finalize run %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("finalize run %d: no in_progress row", id)
	}
	return nil
}

// ListByCredential returns runs for a credential's configuration, newest first.
func (r *RunRepo) ListByCredential(ctx context.Context, credentialID int64, limit, offset int) ([]model.SyncRun, error) {
	const query = `
		SELECT h.id, h.run_id, h.configuration_id, h.sync_type, h.direction, h.status,
		       h.items_processed, h.items_succeeded, h.items_failed, h.error_detail,
		       h.started_at, h.completed_at
		FROM sync_history h
		JOIN sync_configurations c ON c.id = h.configuration_id
		WHERE c.credential_id = ?
		ORDER BY h.started_at DESC, h.id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, credentialID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs for credential %d: %w", credentialID, err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// Prune deletes all but the newest keep runs for a configuration.
func (r *RunRepo) Prune(ctx context.Context, configurationID int64, keep int) error {
	const query = `
		DELETE FROM sync_history
		WHERE configuration_id = ?
		  AND id NOT IN (
			SELECT id FROM sync_history
			WHERE configuration_id = ?
			ORDER BY started_at DESC, id DESC
			LIMIT ?
		  )
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, configurationID, configurationID, keep); err != nil {
		return fmt.Errorf("prune runs for configuration %d: %w", configurationID, err)
	}
	return nil
}

// FailStale marks in_progress runs started before the cutoff as failed.
func (r *RunRepo) FailStale(ctx context.Context, configurationID int64, before time.Time) error {
	const query = `
		UPDATE sync_history
		SET status = 'failed', error_detail = 'run abandoned: lock recovered after crash', completed_at = ?
		WHERE configuration_id = ? AND status = 'in_progress' AND started_at < ?
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, time.Now().UTC(), configurationID, before.UTC()); err != nil {
		return fmt.Errorf("fail stale runs for configuration %d: %w", configurationID, err)
	}
	return nil
}

func scanRun(s scanner) (*model.SyncRun, error) {
	var run model.SyncRun
	var syncType, status string
	var startedAt string
	var completedAt sql.NullString

	err := s.Scan(
		&run.ID, &run.RunID, &run.ConfigurationID, &syncType, &run.Direction, &status,
		&run.ItemsProcessed, &run.ItemsSucceeded, &run.ItemsFailed, &run.ErrorDetail,
		&startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.SyncType = model.SyncType(syncType)
	run.Status = model.RunStatus(status)

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	return &run, nil
}
