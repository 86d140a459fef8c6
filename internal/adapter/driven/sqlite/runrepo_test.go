package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pucktrack/rostersync/internal/domain/model"
)

func seedConfig(t *testing.T, db *DB) (credentialID, configurationID int64) {
	t.Helper()

	credentialID = seedCredential(t, db)
	cfg, err := NewSyncConfigRepo(db).Ensure(context.Background(), credentialID)
	require.NoError(t, err)
	return credentialID, cfg.ID
}

func TestRunRepo_CreateAndFinalize(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepo(db)
	ctx := context.Background()

	credID, cfgID := seedConfig(t, db)

	id, err := runs.Create(ctx, model.SyncRun{
		RunID:           "run-abc",
		ConfigurationID: cfgID,
		SyncType:        model.SyncTypeTeams,
		Direction:       model.DirectionPull,
	})
	require.NoError(t, err)

	require.NoError(t, runs.Finalize(ctx, id, model.RunStatusPartialSuccess, 10, 8, 2, "2 groups failed"))

	history, err := runs.ListByCredential(ctx, credID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)

	run := history[0]
	assert.Equal(t, "run-abc", run.RunID)
	assert.Equal(t, model.SyncTypeTeams, run.SyncType)
	assert.Equal(t, model.DirectionPull, run.Direction)
	assert.Equal(t, model.RunStatusPartialSuccess, run.Status)
	assert.Equal(t, 10, run.ItemsProcessed)
	assert.Equal(t, 8, run.ItemsSucceeded)
	assert.Equal(t, 2, run.ItemsFailed)
	assert.Equal(t, "2 groups failed", run.ErrorDetail)
	require.NotNil(t, run.CompletedAt)
}

func TestRunRepo_FinalizeRequiresTerminalStatus(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepo(db)
	ctx := context.Background()

	_, cfgID := seedConfig(t, db)
	id, err := runs.Create(ctx, model.SyncRun{RunID: "run-x", ConfigurationID: cfgID, SyncType: model.SyncTypeTeams, Direction: model.DirectionPull})
	require.NoError(t, err)

	err = runs.Finalize(ctx, id, model.RunStatusInProgress, 0, 0, 0, "")
	require.Error(t, err)
}

func TestRunRepo_FinalizeIsOneShot(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepo(db)
	ctx := context.Background()

	_, cfgID := seedConfig(t, db)
	id, err := runs.Create(ctx, model.SyncRun{RunID: "run-x", ConfigurationID: cfgID, SyncType: model.SyncTypeTeams, Direction: model.DirectionPull})
	require.NoError(t, err)

	require.NoError(t, runs.Finalize(ctx, id, model.RunStatusSuccess, 5, 5, 0, ""))

	err = runs.Finalize(ctx, id, model.RunStatusFailed, 0, 0, 0, "late failure")
	require.Error(t, err)
}

func TestRunRepo_ListByCredentialNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepo(db)
	ctx := context.Background()

	credID, cfgID := seedConfig(t, db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := runs.Create(ctx, model.SyncRun{
			RunID:           fmt.Sprintf("run-%d", i),
			ConfigurationID: cfgID,
			SyncType:        model.SyncTypePlayers,
			Direction:       model.DirectionPull,
			StartedAt:       base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	history, err := runs.ListByCredential(ctx, credID, 2, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.Equal(t, "run-1", history[1].RunID)

	page2, err := runs.ListByCredential(ctx, credID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "run-0", page2[0].RunID)
}

func TestRunRepo_Prune(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepo(db)
	ctx := context.Background()

	credID, cfgID := seedConfig(t, db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := runs.Create(ctx, model.SyncRun{
			RunID:           fmt.Sprintf("run-%d", i),
			ConfigurationID: cfgID,
			SyncType:        model.SyncTypeTeams,
			Direction:       model.DirectionPull,
			StartedAt:       base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	require.NoError(t, runs.Prune(ctx, cfgID, 2))

	history, err := runs.ListByCredential(ctx, credID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-4", history[0].RunID)
	assert.Equal(t, "run-3", history[1].RunID)
}

func TestRunRepo_FailStale(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepo(db)
	ctx := context.Background()

	credID, cfgID := seedConfig(t, db)

	old, err := runs.Create(ctx, model.SyncRun{
		RunID:           "run-old",
		ConfigurationID: cfgID,
		SyncType:        model.SyncTypeTeams,
		Direction:       model.DirectionPull,
		StartedAt:       time.Now().UTC().Add(-3 * time.Hour),
	})
	require.NoError(t, err)

	fresh, err := runs.Create(ctx, model.SyncRun{
		RunID:           "run-fresh",
		ConfigurationID: cfgID,
		SyncType:        model.SyncTypeTeams,
		Direction:       model.DirectionPull,
	})
	require.NoError(t, err)

	require.NoError(t, runs.FailStale(ctx, cfgID, time.Now().UTC().Add(-time.Hour)))

	history, err := runs.ListByCredential(ctx, credID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	byID := map[int64]model.SyncRun{}
	for _, run := range history {
		byID[run.ID] = run
	}
	assert.Equal(t, model.RunStatusFailed, byID[old].Status)
	require.NotNil(t, byID[old].CompletedAt)
	assert.Equal(t, model.RunStatusInProgress, byID[fresh].Status)
}
