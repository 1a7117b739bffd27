// Package bootstrap handles application initialization and lifecycle
// management for the growth-copilot service.
//
// The bootstrap process follows these phases:
//   - Phase 0: Config & Logger - Load configuration and create logger
//   - Phase 1: Profiling - Start pprof and Pyroscope profilers (if enabled)
//   - Phase 2: Persistence - Connect PostgreSQL, MinIO and Elasticsearch (each optional)
//   - Phase 3: Services - Create cache, orchestrator, NLP router, conversations and SSE broker
//   - Phase 4: Server - Create the HTTP server
//   - Phase 5: Run - Serve until interrupt, then shut down in reverse order
package bootstrap

import (
	"context"
	"fmt"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/profiling"
)

// Start initializes and runs the service. It blocks until the server stops,
// SIGINT or SIGTERM arrives, or ctx is done.
func Start(ctx context.Context, configPath string) error {
	// Phase 0: Config and logger
	cfg, fromFile, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if !fromFile {
		log.Warn("Config file not found, using defaults and environment")
	}

	// Phase 1: Profiling
	if pprofServer := profiling.StartPprofServer(cfg.Profiling, log); pprofServer != nil {
		defer func() { _ = pprofServer.Close() }()
	}
	pyroscopeProfiler, err := profiling.StartPyroscope(cfg.Service.Name, cfg.Service.Version, cfg.Profiling, log)
	if err != nil {
		return fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	if pyroscopeProfiler != nil {
		defer func() {
			if stopErr := pyroscopeProfiler.Stop(); stopErr != nil {
				log.Warn("Failed to stop Pyroscope profiler", infralogger.Error(stopErr))
			}
		}()
	}

	// Phase 2: Persistence
	persistence, err := SetupPersistence(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := persistence.Close(); closeErr != nil {
			log.Error("Failed to close database", infralogger.Error(closeErr))
		}
	}()

	// Phase 3: Services
	services, err := SetupServices(ctx, cfg, log, persistence)
	if err != nil {
		return err
	}
	defer services.Shutdown(log)

	// Phase 4: Server
	server := SetupHTTPServer(cfg, log, services, persistence)

	// Phase 5: Run
	log.Info("Starting growth-copilot",
		infralogger.Int("port", cfg.Service.Port),
		infralogger.Bool("persistence", persistence.Reports != nil),
		infralogger.Bool("archive", persistence.Archiver != nil),
		infralogger.Bool("search_index", persistence.Indexer != nil),
	)
	if runErr := server.RunWithGracefulShutdown(ctx); runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	log.Info("Server stopped")
	return nil
}
