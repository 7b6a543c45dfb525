// Package main is the entry point for the Harborwatch container tracking
// dashboard. It wires the tracking repositories, the risk assessment engine,
// the Cargoes Flow sync pipeline and the background job scheduler, then serves
// the dashboard API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/harborline/harborwatch/internal/clients/cargoflow"
	"github.com/harborline/harborwatch/internal/config"
	"github.com/harborline/harborwatch/internal/database"
	"github.com/harborline/harborwatch/internal/events"
	"github.com/harborline/harborwatch/internal/modules/analytics"
	"github.com/harborline/harborwatch/internal/modules/containers"
	"github.com/harborline/harborwatch/internal/modules/exceptions"
	"github.com/harborline/harborwatch/internal/modules/notifications"
	"github.com/harborline/harborwatch/internal/modules/users"
	"github.com/harborline/harborwatch/internal/reliability"
	"github.com/harborline/harborwatch/internal/risk"
	"github.com/harborline/harborwatch/internal/scheduler"
	"github.com/harborline/harborwatch/internal/server"
	"github.com/harborline/harborwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Harborwatch")

	// Databases: tracking holds the dashboard state, cache holds ephemeral
	// data (api snapshots, job history)
	trackingDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "tracking.db"),
		Profile: database.ProfileStandard,
		Name:    "tracking",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open tracking database")
	}
	defer trackingDB.Close()

	if err := trackingDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate tracking database")
	}

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Repositories
	containerRepo := containers.NewRepository(trackingDB.Conn(), log)
	exceptionRepo := exceptions.NewRepository(trackingDB.Conn(), log)
	notificationRepo := notifications.NewRepository(trackingDB.Conn(), log)
	userRepo := users.NewRepository(trackingDB.Conn(), log)

	// Event bus feeds the dashboard SSE stream
	bus := events.NewBus(log)
	publisher := events.NewPublisher(bus)

	// Risk engine
	engine := risk.NewEngine(containerRepo, exceptionRepo, notificationRepo, userRepo, log)
	engine.SetEventPublisher(publisher)

	// Analytics over the live container fleet
	analyticsService := analytics.NewService(containerRepo, log)

	// Cargoes Flow sync pipeline
	cargoClient := cargoflow.NewClient(cfg.CargoFlowAPIURL, cfg.CargoFlowAPIKey, log)
	snapshotRepo := cargoflow.NewSnapshotRepository(cacheDB.Conn(), log)
	syncService := cargoflow.NewSyncService(cargoClient, containerRepo, snapshotRepo, engine, log)
	syncService.SetPublisher(publisher)

	// Optional live tracking feed over websocket. Pushed events are applied
	// immediately; the periodic sync remains the safety net.
	var trackingWS *cargoflow.TrackingWebSocket
	if cfg.CargoFlowWSURL != "" && cfg.CargoFlowAPIKey != "" {
		trackingWS = cargoflow.NewTrackingWebSocket(
			cfg.CargoFlowWSURL,
			cfg.CargoFlowAPIKey,
			syncService.HandlePush,
			log,
		)
		if err := trackingWS.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start tracking websocket")
		}
		defer func() { _ = trackingWS.Stop() }()
	}

	// Background jobs
	jobHistory := scheduler.NewJobHistoryRepository(cacheDB.Conn())
	sched := scheduler.New(jobHistory, log)

	syncJob := scheduler.NewSyncJob(syncService, log)
	syncSchedule := fmt.Sprintf("0 */%d * * * *", cfg.SyncIntervalMinutes)
	if err := sched.AddJob(syncSchedule, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sync job")
	}

	databases := map[string]*database.DB{
		"tracking": trackingDB,
		"cache":    cacheDB,
	}

	maintenanceJob := reliability.NewMaintenanceJob(databases, snapshotRepo, notificationRepo, cfg.DataDir, log)
	if err := sched.AddJob("0 0 4 * * *", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}

		backupService := reliability.NewBackupService(
			s3Client,
			databases,
			cfg.DataDir,
			cfg.Backup.RetainedCount,
			log,
		)
		backupService.SetPublisher(publisher)

		backupJob := reliability.NewBackupJob(backupService, log)
		if err := sched.AddJob("0 0 3 * * *", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Warn().Msg("Off-site backups disabled: no bucket configured")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:           log,
		Config:        cfg,
		TrackingDB:    trackingDB,
		CacheDB:       cacheDB,
		Containers:    containerRepo,
		Exceptions:    exceptionRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Engine:        engine,
		Analytics:     analyticsService,
		Bus:           bus,
		JobHistory:    jobHistory,
		Tracking:      trackingStatus(trackingWS),
		SyncJob:       syncJob,
		Scheduler:     sched,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Run an initial sync shortly after startup so a fresh deployment shows
	// current data without waiting for the first scheduled cycle
	go func() {
		time.Sleep(5 * time.Second)
		if err := sched.RunNow(syncJob); err != nil {
			log.Error().Err(err).Msg("Initial sync failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Harborwatch stopped")
}

// trackingStatus converts a possibly-nil websocket client into the status
// interface without producing a typed nil
func trackingStatus(ws *cargoflow.TrackingWebSocket) server.TrackingStatus {
	if ws == nil {
		return nil
	}
	return ws
}
