package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

func TestMappingRepo_GetByExternalIDMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMappingRepo(db)

	mapping, err := repo.GetByExternalID(context.Background(), model.EntityKindTeam, "grp-404")
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestMappingRepo_GetByExternalID(t *testing.T) {
	db := setupTestDB(t)
	mappings := NewMappingRepo(db)
	reconcile := NewReconcileRepo(db)
	ctx := context.Background()

	localID, err := reconcile.ApplyTeam(ctx, model.Team{Name: "U16 Red", SeasonLabel: "2025-26"}, "grp-77", "U16 Red")
	require.NoError(t, err)

	mapping, err := mappings.GetByExternalID(ctx, model.EntityKindTeam, "grp-77")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, localID, mapping.LocalID)
	assert.Equal(t, "U16 Red", mapping.ExternalDisplayName)
	assert.Equal(t, model.MappingStatusSuccess, mapping.SyncStatus)
	assert.Empty(t, mapping.SyncError)
	assert.False(t, mapping.LastSyncedAt.IsZero())
}

func TestMappingRepo_KindsDoNotCollide(t *testing.T) {
	db := setupTestDB(t)
	mappings := NewMappingRepo(db)
	reconcile := NewReconcileRepo(db)
	ctx := context.Background()

	// Same external id under two kinds must be two independent rows.
	_, err := reconcile.ApplyClub(ctx, model.Club{Name: "HC Nord"}, "42", "HC Nord")
	require.NoError(t, err)
	_, err = reconcile.ApplyTeam(ctx, model.Team{Name: "U16 Red"}, "42", "U16 Red")
	require.NoError(t, err)

	club, err := mappings.GetByExternalID(ctx, model.EntityKindClub, "42")
	require.NoError(t, err)
	require.NotNil(t, club)

	team, err := mappings.GetByExternalID(ctx, model.EntityKindTeam, "42")
	require.NoError(t, err)
	require.NotNil(t, team)

	assert.NotEqual(t, club.ID, team.ID)
}

func TestMappingRepo_ListByKind(t *testing.T) {
	db := setupTestDB(t)
	mappings := NewMappingRepo(db)
	reconcile := NewReconcileRepo(db)
	ctx := context.Background()

	_, err := reconcile.ApplyTeam(ctx, model.Team{Name: "U16 Red"}, "grp-1", "U16 Red")
	require.NoError(t, err)
	_, err = reconcile.ApplyTeam(ctx, model.Team{Name: "U18 Blue"}, "grp-2", "U18 Blue")
	require.NoError(t, err)
	_, err = reconcile.ApplyClub(ctx, model.Club{Name: "HC Nord"}, "org-1", "HC Nord")
	require.NoError(t, err)

	teams, err := mappings.ListByKind(ctx, model.EntityKindTeam)
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	clubs, err := mappings.ListByKind(ctx, model.EntityKindClub)
	require.NoError(t, err)
	assert.Len(t, clubs, 1)
}

func TestMappingRepo_MarkError(t *testing.T) {
	db := setupTestDB(t)
	mappings := NewMappingRepo(db)
	reconcile := NewReconcileRepo(db)
	ctx := context.Background()

	_, err := reconcile.ApplyTeam(ctx, model.Team{Name: "U16 Red"}, "grp-9", "U16 Red")
	require.NoError(t, err)

	require.NoError(t, mappings.MarkError(ctx, model.EntityKindTeam, "grp-9", "group vanished upstream"))

	mapping, err := mappings.GetByExternalID(ctx, model.EntityKindTeam, "grp-9")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, model.MappingStatusError, mapping.SyncStatus)
	assert.Equal(t, "group vanished upstream", mapping.SyncError)
}

func TestMappingRepo_MarkErrorMissingIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMappingRepo(db)

	err := repo.MarkError(context.Background(), model.EntityKindPlayer, "contact-404", "not fetched yet")
	require.NoError(t, err)
}
