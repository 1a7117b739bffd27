package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	infraredis "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/redis"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/cache"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/config"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/conversation"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/telemetry"
)

// ServiceComponents holds the running domain services.
type ServiceComponents struct {
	Telemetry     *telemetry.Provider
	Redis         *goredis.Client
	Gate          *features.Gate
	Broker        sse.Broker
	Orchestrator  *orchestrator.Orchestrator
	Router        *nlp.Router
	Conversations *conversation.Handler
}

// SetupServices creates the cache, orchestrator, NLP router and conversation
// handler, and starts the SSE broker.
func SetupServices(
	ctx context.Context,
	cfg *config.Config,
	log infralogger.Logger,
	persistence *PersistenceComponents,
) (*ServiceComponents, error) {
	tel := telemetry.NewProvider()
	s := &ServiceComponents{
		Telemetry: tel,
		Gate:      features.NewGate(cfg.Features),
		Broker:    sse.NewBroker(log, sse.WithConfig(cfg.SSE)),
	}

	store, err := s.setupCache(cfg, log)
	if err != nil {
		return nil, err
	}
	if err = s.Broker.Start(ctx); err != nil {
		s.closeRedis(log)
		return nil, fmt.Errorf("failed to start SSE broker: %w", err)
	}

	opts := []orchestrator.Option{
		orchestrator.WithCache(cache.NewLoader(store, log, tel)),
		orchestrator.WithFeatureGate(s.Gate),
		orchestrator.WithTelemetry(tel),
		orchestrator.WithEventPublisher(s.Broker),
	}
	opts = append(opts, persistenceOptions(persistence)...)
	s.Orchestrator = orchestrator.New(
		cfg.Orchestrator,
		analyzer.NewDefaultRegistry(),
		analyzer.NewPageFetcher(cfg.Fetcher),
		log,
		opts...,
	)

	s.Router = nlp.NewRouter(cfg.NLP, s.Gate, log, nlp.BuildTiers(cfg.NLP), nlp.WithRecorder(tel))
	s.Conversations = conversation.NewHandler(
		s.Orchestrator,
		s.Router,
		log,
		conversation.WithEventPublisher(s.Broker),
		conversation.WithIntentRecorder(tel),
	)

	log.Info("Services initialized",
		infralogger.Strings("units", s.Orchestrator.Units()),
		infralogger.String("cache_backend", cfg.Cache.Backend),
	)
	return s, nil
}

func (s *ServiceComponents) setupCache(cfg *config.Config, log infralogger.Logger) (cache.Cache, error) {
	if cfg.Cache.Backend != config.CacheBackendRedis {
		return cache.NewMemoryCache(), nil
	}
	client, err := infraredis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Redis cache connected", infralogger.String("address", cfg.Redis.Address))
	s.Redis = client
	return cache.NewRedisCache(client), nil
}

// persistenceOptions registers every configured backend as a report sink and
// the database as the fallback store for report lookups.
func persistenceOptions(p *PersistenceComponents) []orchestrator.Option {
	if p == nil {
		return nil
	}
	var opts []orchestrator.Option
	if p.Reports != nil {
		opts = append(opts,
			orchestrator.WithReportSink("postgres", p.Reports),
			orchestrator.WithReportStore(p.Reports),
		)
	}
	if p.Archiver != nil {
		opts = append(opts, orchestrator.WithReportSink("minio", p.Archiver))
	}
	if p.Indexer != nil {
		opts = append(opts, orchestrator.WithReportSink("elasticsearch", p.Indexer))
	}
	return opts
}

// Shutdown stops submitted runs, then the broker and the cache client.
func (s *ServiceComponents) Shutdown(log infralogger.Logger) {
	log.Info("Stopping orchestrator")
	s.Orchestrator.Close()

	log.Info("Stopping SSE broker")
	if err := s.Broker.Stop(); err != nil {
		log.Error("Failed to stop SSE broker", infralogger.Error(err))
	}
	s.closeRedis(log)
}

func (s *ServiceComponents) closeRedis(log infralogger.Logger) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Close(); err != nil {
		log.Error("Failed to close redis client", infralogger.Error(err))
	}
}

// NewStandaloneOrchestrator builds an orchestrator with an in-memory cache
// and no persistence, for one-off runs from the command line.
func NewStandaloneOrchestrator(cfg *config.Config, log infralogger.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(
		cfg.Orchestrator,
		analyzer.NewDefaultRegistry(),
		analyzer.NewPageFetcher(cfg.Fetcher),
		log,
		orchestrator.WithCache(cache.NewLoader(cache.NewMemoryCache(), log, nil)),
		orchestrator.WithFeatureGate(features.NewGate(cfg.Features)),
	)
}
