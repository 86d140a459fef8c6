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
var _ driven.ReconcileStore = (*ReconcileRepo)(nil)

// ReconcileRepo applies a reconciled entity and its mapping in one
// transaction on the writer connection, so no crash can leave a local row
// without its mapping.
type ReconcileRepo struct {
	db *DB
}

// NewReconcileRepo creates a new ReconcileRepo backed by the given DB.
func NewReconcileRepo(db *DB) *ReconcileRepo {
	return &ReconcileRepo{db: db}
}

// ApplyClub upserts a club row and its mapping. A club with ID 0 is
// inserted; otherwise the existing row is updated.
func (r *ReconcileRepo) ApplyClub(ctx context.Context, club model.Club, externalID, displayName string) (int64, error) {
	return r.apply(ctx, model.EntityKindClub, externalID, displayName, func(tx *sql.Tx) (int64, error) {
		if club.ID == 0 {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO clubs (name, city) VALUES (?, ?)`,
				club.Name, club.City,
			)
			if err != nil {
				return 0, fmt.Errorf("insert club %q: %w", club.Name, err)
			}
			return result.LastInsertId()
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE clubs SET name = ?, city = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			club.Name, club.City, club.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update club %d: %w", club.ID, err)
		}
		return club.ID, nil
	})
}

// ApplyTeam upserts a team row and its mapping.
func (r *ReconcileRepo) ApplyTeam(ctx context.Context, team model.Team, externalID, displayName string) (int64, error) {
	return r.apply(ctx, model.EntityKindTeam, externalID, displayName, func(tx *sql.Tx) (int64, error) {
		if team.ID == 0 {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO teams (club_id, name, season_label) VALUES (?, ?, ?)`,
				team.ClubID, team.Name, team.SeasonLabel,
			)
			if err != nil {
				return 0, fmt.Errorf("insert team %q: %w", team.Name, err)
			}
			return result.LastInsertId()
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE teams SET club_id = ?, name = ?, season_label = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			team.ClubID, team.Name, team.SeasonLabel, team.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update team %d: %w", team.ID, err)
		}
		return team.ID, nil
	})
}

// ApplyPlayer upserts a player row and its mapping.
func (r *ReconcileRepo) ApplyPlayer(ctx context.Context, player model.Player, externalID, displayName string) (int64, error) {
	var birthDate any
	if player.BirthDate != nil {
		birthDate = player.BirthDate.UTC()
	}

	return r.apply(ctx, model.EntityKindPlayer, externalID, displayName, func(tx *sql.Tx) (int64, error) {
		if player.ID == 0 {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO players (team_id, first_name, last_name, email, gender, birth_date) VALUES (?, ?, ?, ?, ?, ?)`,
				player.TeamID, player.FirstName, player.LastName, player.Email, string(player.Gender), birthDate,
			)
			if err != nil {
				return 0, fmt.Errorf("insert player %s %s: %w", player.FirstName, player.LastName, err)
			}
			return result.LastInsertId()
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE players SET team_id = ?, first_name = ?, last_name = ?, email = ?, gender = ?, birth_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			player.TeamID, player.FirstName, player.LastName, player.Email, string(player.Gender), birthDate, player.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update player %d: %w", player.ID, err)
		}
		return player.ID, nil
	})
}

// apply runs the entity write and the mapping upsert in one transaction.
func (r *ReconcileRepo) apply(ctx context.Context, kind model.EntityKind, externalID, displayName string, write func(tx *sql.Tx) (int64, error)) (int64, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer tx.Rollback()

	localID, err := write(tx)
	if err != nil {
		return 0, err
	}

	const mappingQuery = `
		INSERT INTO entity_mappings (entity_kind, local_id, external_id, external_display_name, last_synced_at, sync_status, sync_error)
		VALUES (?, ?, ?, ?, ?, 'success', '')
		ON CONFLICT(entity_kind, external_id) DO UPDATE SET
			local_id = excluded.local_id,
			external_display_name = excluded.external_display_name,
			last_synced_at = excluded.last_synced_at,
			sync_status = 'success',
			sync_error = ''
	`

	if _, err := tx.ExecContext(ctx, mappingQuery, string(kind), localID, externalID, displayName, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("upsert mapping %s/%s: %w", kind, externalID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reconcile tx: %w", err)
	}

	return localID, nil
}
