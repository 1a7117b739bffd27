package bootstrap

import (
	"context"

	"github.com/gin-gonic/gin"

	infraes "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/elasticsearch"
	infragin "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/gin"
	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/api"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/config"
)

// SetupHTTPServer builds the API server with health checks for every
// connected backend. Only the database is critical.
func SetupHTTPServer(
	cfg *config.Config,
	log infralogger.Logger,
	services *ServiceComponents,
	persistence *PersistenceComponents,
) *infragin.Server {
	var history api.ReportHistory
	if persistence.Reports != nil {
		history = persistence.Reports
	}

	handler := api.NewHandler(api.Deps{
		Orchestrator:  services.Orchestrator,
		Conversations: services.Conversations,
		Router:        services.Router,
		Gate:          services.Gate,
		Broker:        services.Broker,
		History:       history,
		Logger:        log,
	})

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORSOrigins(cfg.Server.CORSOrigins).
		WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, handler, services.Telemetry.Handler())
		})

	if persistence.DB != nil {
		db := persistence.DB
		builder.WithHealthCheck("database", infragin.PingChecker("database", true, db.Ping))
	}
	if services.Redis != nil {
		client := services.Redis
		builder.WithHealthCheck("redis", infragin.PingChecker("redis", false, func() error {
			return client.Ping(context.Background()).Err()
		}))
	}
	if persistence.ES != nil {
		client := persistence.ES
		timeout := cfg.Elasticsearch.PingTimeout
		builder.WithHealthCheck("elasticsearch", infragin.PingChecker("elasticsearch", false, func() error {
			return infraes.Ping(context.Background(), client, timeout)
		}))
	}

	return builder.Build()
}
