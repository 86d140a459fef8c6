package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

// historyKeep is how many history rows are retained per configuration.
const historyKeep = 100

// Orchestrator guards sync runs with the per-configuration latch and owns
// the run history lifecycle. The latch is always released and the history
// row always finalized, whatever the work does.
type Orchestrator struct {
	configs driven.SyncConfigStore
	runs    driven.RunStore
}

// NewOrchestrator creates an Orchestrator over the given stores.
func NewOrchestrator(configs driven.SyncConfigStore, runs driven.RunStore) *Orchestrator {
	return &Orchestrator{configs: configs, runs: runs}
}

// StartSync acquires the configuration's latch, records an in_progress
// history row, executes work, and finalizes both. A configuration that is
// already locked fails fast with ErrConflict. The latch release and history
// finalize run on every exit path, including panics inside work.
func (o *Orchestrator) StartSync(ctx context.Context, configurationID int64, syncType model.SyncType, work func(ctx context.Context) (BatchOutcome, error)) (outcome BatchOutcome, err error) {
	locked, lockErr := o.configs.TryLock(ctx, configurationID)
	if lockErr != nil {
		return BatchOutcome{}, fmt.Errorf("acquire sync lock: %w", lockErr)
	}
	if !locked {
		return BatchOutcome{}, fmt.Errorf("configuration %d: %w", configurationID, driven.ErrConflict)
	}

	runID := uuid.NewString()
	start := time.Now()

	historyID, histErr := o.runs.Create(ctx, model.SyncRun{
		RunID:           runID,
		ConfigurationID: configurationID,
		SyncType:        syncType,
		Direction:       model.DirectionPull,
		StartedAt:       start.UTC(),
	})
	if histErr != nil {
		if unlockErr := o.configs.Unlock(ctx, configurationID); unlockErr != nil {
			slog.Error("unlock after history failure", "configuration_id", configurationID, "error", unlockErr)
		}
		return BatchOutcome{}, fmt.Errorf("record sync start: %w", histErr)
	}

	defer func() {
		status := model.RunStatusSuccess
		detail := ""

		if rec := recover(); rec != nil {
			err = fmt.Errorf("sync run panicked: %v", rec)
		}
		switch {
		case err != nil:
			status = model.RunStatusFailed
			detail = err.Error()
		case outcome.Failed > 0:
			status = model.RunStatusPartialSuccess
			detail = summarizeItemErrors(outcome.Errors)
		}

		if finErr := o.runs.Finalize(ctx, historyID, status, outcome.Processed, outcome.Succeeded, outcome.Failed, detail); finErr != nil {
			slog.Error("finalize sync history", "run_id", runID, "error", finErr)
		}
		if unlockErr := o.configs.Unlock(ctx, configurationID); unlockErr != nil {
			slog.Error("release sync lock", "configuration_id", configurationID, "error", unlockErr)
		}

		if status != model.RunStatusFailed {
			if lsErr := o.configs.SetLastSync(ctx, configurationID, time.Now()); lsErr != nil {
				slog.Error("record last sync time", "configuration_id", configurationID, "error", lsErr)
			}
		}
		if pruneErr := o.runs.Prune(ctx, configurationID, historyKeep); pruneErr != nil {
			slog.Error("prune sync history", "configuration_id", configurationID, "error", pruneErr)
		}

		slog.Info("sync run complete",
			"run_id", runID,
			"configuration_id", configurationID,
			"sync_type", string(syncType),
			"status", string(status),
			"processed", outcome.Processed,
			"succeeded", outcome.Succeeded,
			"failed", outcome.Failed,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	}()

	outcome, err = work(ctx)
	return outcome, err
}

// summarizeItemErrors joins item errors into one history detail string,
// truncated to keep rows bounded.
func summarizeItemErrors(items []ItemError) string {
	const maxDetail = 2000

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", item.Name, item.ExternalID, item.Message))
	}

	detail := strings.Join(parts, "; ")
	if len(detail) > maxDetail {
		detail = detail[:maxDetail] + "..."
	}
	return detail
}
