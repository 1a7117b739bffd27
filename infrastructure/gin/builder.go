package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

// ServerBuilder assembles a Server fluently.
type ServerBuilder struct {
	config      *Config
	logger      logger.Logger
	setupRoutes func(*gin.Engine)
	checks      map[string]HealthChecker
}

// NewServerBuilder starts a builder for serviceName listening on port.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config: &Config{Port: port, ServiceName: serviceName},
		checks: make(map[string]HealthChecker),
	}
}

func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

func (b *ServerBuilder) WithCORSOrigins(origins []string) *ServerBuilder {
	b.config.CORS.AllowedOrigins = origins
	b.config.CORS.Enabled = len(origins) > 0
	return b
}

// WithTimeouts sets read, write and idle timeouts. Streaming endpoints need a
// write timeout of zero or longer than the stream.
func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

// WithHealthCheck adds a named dependency check to /health.
func (b *ServerBuilder) WithHealthCheck(name string, checker HealthChecker) *ServerBuilder {
	b.checks[name] = checker
	return b
}

func (b *ServerBuilder) WithRoutes(setup func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setup
	return b
}

// Build creates the Server. Health routes are always registered.
func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.Must(logger.Config{Development: b.config.Debug})
	}

	cfg := b.config
	checks := b.checks
	routes := b.setupRoutes

	return NewServer(cfg, b.logger, func(router *gin.Engine) {
		RegisterHealthRoutes(router, cfg.ServiceName, cfg.ServiceVersion, checks)
		if routes != nil {
			routes(router)
		}
	})
}
