package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	federationadapter "github.com/pucktrack/rostersync/internal/adapter/driven/federation"
	sqliteadapter "github.com/pucktrack/rostersync/internal/adapter/driven/sqlite"
	"github.com/pucktrack/rostersync/internal/application"
	"github.com/pucktrack/rostersync/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"db_path", cfg.DBPath,
		"http_timeout", cfg.HTTPTimeout,
		"scheduler_enabled", cfg.SchedulerEnabled,
		"encryption_key_set", cfg.HasEncryptionKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire store adapters.
	vault := sqliteadapter.NewVault(db, cfg.EncryptionKey)
	clubStore := sqliteadapter.NewClubRepo(db)
	teamStore := sqliteadapter.NewTeamRepo(db)
	playerStore := sqliteadapter.NewPlayerRepo(db)
	mappingStore := sqliteadapter.NewMappingRepo(db)
	reconcileStore := sqliteadapter.NewReconcileRepo(db)
	runStore := sqliteadapter.NewRunRepo(db)
	configStore := sqliteadapter.NewSyncConfigRepo(db)

	if !cfg.HasEncryptionKey() {
		slog.Warn("no encryption key configured, credential storage disabled until ROSTERSYNC_ENCRYPTION_KEY is set")
	}

	// 6. Create the federation client factory and per-credential provider.
	factory := federationadapter.NewFactory(cfg.HTTPTimeout)
	provider := application.NewClientProvider(factory)

	// 7. Wire the application services.
	reconciler := application.NewReconciler(clubStore, teamStore, playerStore, mappingStore, reconcileStore)
	orchestrator := application.NewOrchestrator(configStore, runStore)
	syncService := application.NewSyncService(vault, provider, reconciler, orchestrator, configStore, runStore)

	// 8. Start the scheduler unless disabled.
	if cfg.SchedulerEnabled {
		scheduler := application.NewScheduler(syncService, configStore, runStore)
		go scheduler.Start(ctx)
	} else {
		slog.Info("scheduler disabled, syncs run on demand only")
	}

	slog.Info("rostersync started")

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	return nil
}
