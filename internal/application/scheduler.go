package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/pucktrack/rostersync/internal/domain/model"
	"github.com/pucktrack/rostersync/internal/domain/port/driven"
)

const (
	// staleLockAge is how long a latch may stay set before it is assumed
	// orphaned by a crash and reclaimed.
	staleLockAge = time.Hour

	recoveryInterval = 15 * time.Minute
)

// Scheduler drives automatic syncs. Each cadence has its own ticker; due
// configurations are synced sequentially, teams before players, so one slow
// federation account cannot starve the others of anything but time.
type Scheduler struct {
	service *SyncService
	configs driven.SyncConfigStore
	runs    driven.RunStore
	now     func() time.Time
}

// NewScheduler creates a scheduler over the given service and stores.
func NewScheduler(service *SyncService, configs driven.SyncConfigStore, runs driven.RunStore) *Scheduler {
	return &Scheduler{
		service: service,
		configs: configs,
		runs:    runs,
		now:     time.Now,
	}
}

// Start runs the scheduling loop until the context is canceled. It recovers
// stale locks immediately on startup so a crash mid-run does not leave a
// configuration latched until the first recovery tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.recoverStaleLocks(ctx)

	hourly := time.NewTicker(time.Hour)
	defer hourly.Stop()
	daily := time.NewTicker(24 * time.Hour)
	defer daily.Stop()
	weekly := time.NewTicker(7 * 24 * time.Hour)
	defer weekly.Stop()
	recovery := time.NewTicker(recoveryInterval)
	defer recovery.Stop()

	slog.Info("scheduler started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-hourly.C:
			s.runCadence(ctx, model.CadenceHourly)
		case <-daily.C:
			s.runCadence(ctx, model.CadenceDaily)
		case <-weekly.C:
			s.runCadence(ctx, model.CadenceWeekly)
		case <-recovery.C:
			s.recoverStaleLocks(ctx)
		}
	}
}

// runCadence syncs every enabled, unlocked configuration with the given
// cadence. A failure on one configuration is logged and does not stop the
// others.
func (s *Scheduler) runCadence(ctx context.Context, cadence model.Cadence) {
	configs, err := s.configs.ListEligible(ctx, cadence)
	if err != nil {
		slog.Error("scheduled sync: listing eligible configurations failed", "cadence", cadence, "error", err)
		return
	}
	if len(configs) == 0 {
		return
	}

	start := s.now()
	var failures int
	for _, cfg := range configs {
		if ctx.Err() != nil {
			return
		}
		if err := s.syncOne(ctx, cfg); err != nil {
			failures++
		}
	}

	slog.Info("scheduled sync cycle complete",
		"cadence", cadence,
		"configurations", len(configs),
		"failures", failures,
		"duration", s.now().Sub(start).Round(time.Millisecond),
	)
}

// syncOne runs teams then players for one configuration. The player sync
// still runs when the team sync fails partially; it is skipped only when the
// team sync could not run at all, since its team matching would then work
// against stale mappings.
func (s *Scheduler) syncOne(ctx context.Context, cfg model.SyncConfiguration) error {
	// Scheduled runs always create: a recurring sync that can only update
	// would silently drop every team added upstream since the last run.
	opts := SyncOptions{CreateMissing: true}

	teams, err := s.service.SyncTeams(ctx, cfg.CredentialID, opts)
	if err != nil {
		slog.Error("scheduled team sync failed",
			"credential_id", cfg.CredentialID,
			"error", err,
		)
		return err
	}

	players, err := s.service.SyncPlayers(ctx, cfg.CredentialID, opts)
	if err != nil {
		slog.Error("scheduled player sync failed",
			"credential_id", cfg.CredentialID,
			"error", err,
		)
		return err
	}

	slog.Info("scheduled sync complete",
		"credential_id", cfg.CredentialID,
		"teams_processed", teams.Processed,
		"teams_failed", teams.Failed,
		"players_processed", players.Processed,
		"players_failed", players.Failed,
	)
	return nil
}

// recoverStaleLocks clears latches held longer than staleLockAge and marks
// their orphaned in_progress runs as failed.
func (s *Scheduler) recoverStaleLocks(ctx context.Context) {
	cutoff := s.now().Add(-staleLockAge)

	stale, err := s.configs.ListStaleLocks(ctx, cutoff)
	if err != nil {
		slog.Error("stale lock scan failed", "error", err)
		return
	}

	for _, cfg := range stale {
		if err := s.runs.FailStale(ctx, cfg.ID, cutoff); err != nil {
			slog.Error("marking stale runs failed", "configuration_id", cfg.ID, "error", err)
			continue
		}
		if err := s.configs.Unlock(ctx, cfg.ID); err != nil {
			slog.Error("releasing stale lock failed", "configuration_id", cfg.ID, "error", err)
			continue
		}
		slog.Warn("recovered stale sync lock",
			"configuration_id", cfg.ID,
			"credential_id", cfg.CredentialID,
			"locked_at", cfg.LockedAt,
		)
	}
}
