// Package config loads the growth-copilot service configuration.
package config

import (
	"errors"
	"time"

	infraconfig "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/config"
	infraes "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/elasticsearch"
	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/profiling"
	infraredis "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/redis"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/database"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/storage"
)

// Default configuration values.
const (
	defaultServiceName    = "growth-copilot"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8080
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 15 * time.Minute // long enough for a deep run's progress stream
	defaultIdleTimeout    = 120 * time.Second
	defaultDBHost         = "localhost"
	defaultDBPort         = "5432"
	defaultDBUser         = "postgres"
	defaultDBName         = "growth_copilot"
	defaultDBSSLMode      = "disable"
	defaultRedisAddress   = "localhost:6379"
	defaultDeepPercentage = 10
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all configuration for the growth-copilot service.
type Config struct {
	Service       ServiceConfig            `yaml:"service"`
	Server        ServerConfig             `yaml:"server"`
	Logging       infralogger.Config       `yaml:"logging"`
	Database      DatabaseConfig           `yaml:"database"`
	Redis         infraredis.Config        `yaml:"redis"`
	Orchestrator  orchestrator.Config      `yaml:"orchestrator"`
	Cache         CacheConfig              `yaml:"cache"`
	Features      map[string]features.Flag `yaml:"features"`
	NLP           nlp.Config               `yaml:"nlp"`
	Fetcher       analyzer.FetcherConfig   `yaml:"fetcher"`
	Storage       storage.ArchiveConfig    `yaml:"storage"`
	Elasticsearch infraes.Config           `yaml:"elasticsearch"`
	Profiling     profiling.Config         `yaml:"profiling"`
	SSE           sse.Config               `yaml:"sse"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `env:"APP_VERSION"          yaml:"version"`
	Port    int    `env:"GROWTH_COPILOT_PORT"  yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"            yaml:"debug"`
}

// ServerConfig holds HTTP server timeouts and CORS origins.
type ServerConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// DatabaseConfig enables report persistence in PostgreSQL.
type DatabaseConfig struct {
	Enabled         bool `env:"POSTGRES_ENABLED" yaml:"enabled"`
	database.Config `yaml:",inline"`
}

// CacheConfig selects the analysis cache backend. The TTLs override the
// orchestrator's when set.
type CacheConfig struct {
	Backend       string        `env:"CACHE_BACKEND" yaml:"backend"`
	AnalysisTTL   time.Duration `yaml:"analysis_ttl"`
	CompetitorTTL time.Duration `yaml:"competitor_ttl"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

// Default returns a configuration built only from defaults and the
// environment, for runs without a config file.
func Default() *Config {
	cfg := &Config{}
	infraconfig.ApplyEnv(cfg)
	setDefaults(cfg)
	infraconfig.ApplyEnv(cfg)
	return cfg
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setServerDefaults(&cfg.Server)
	cfg.Logging.SetDefaults()
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setCacheDefaults(&cfg.Cache, cfg.Redis.Enabled)
	applyCacheTTLs(&cfg.Orchestrator, cfg.Cache)
	cfg.Orchestrator.SetDefaults()
	setFeatureDefaults(cfg)
	cfg.NLP.SetDefaults()
	cfg.Fetcher = cfg.Fetcher.WithDefaults()
	cfg.Storage.SetDefaults()
	cfg.Elasticsearch.SetDefaults()
	cfg.Profiling.SetDefaults()
	setSSEDefaults(&cfg.SSE)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setServerDefaults(s *ServerConfig) {
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = defaultIdleTimeout
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == "" {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.DBName == "" {
		d.DBName = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
}

func setRedisDefaults(r *infraredis.Config) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
}

func setSSEDefaults(s *sse.Config) {
	d := sse.DefaultConfig()
	if s.EventBufferSize == 0 {
		s.EventBufferSize = d.EventBufferSize
	}
	if s.ClientBufferSize == 0 {
		s.ClientBufferSize = d.ClientBufferSize
	}
	if s.HeartbeatInterval == 0 {
		s.HeartbeatInterval = d.HeartbeatInterval
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = d.ShutdownTimeout
	}
	if s.MaxClients == 0 {
		s.MaxClients = d.MaxClients
	}
}

func setCacheDefaults(c *CacheConfig, redisEnabled bool) {
	if c.Backend != "" {
		return
	}
	c.Backend = CacheBackendMemory
	if redisEnabled {
		c.Backend = CacheBackendRedis
	}
}

func applyCacheTTLs(o *orchestrator.Config, c CacheConfig) {
	if c.AnalysisTTL != 0 {
		o.AnalysisTTL = c.AnalysisTTL
	}
	if c.CompetitorTTL != 0 {
		o.CompetitorTTL = c.CompetitorTTL
	}
}

// setFeatureDefaults turns both NLP tiers on and samples deep analysis,
// leaving any configured flag untouched.
func setFeatureDefaults(cfg *Config) {
	if cfg.Features == nil {
		cfg.Features = make(map[string]features.Flag)
	}
	defaults := map[string]features.Flag{
		features.EnhancedNLP:  {Mode: features.ModeOn},
		features.StandardNLP:  {Mode: features.ModeOn},
		features.DeepAnalysis: {Mode: features.ModePercentage, Percentage: defaultDeepPercentage},
	}
	for name, flag := range defaults {
		if _, ok := cfg.Features[name]; !ok {
			cfg.Features[name] = flag
		}
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	errs := []error{
		infraconfig.ValidatePort("service.port", c.Service.Port),
		infraconfig.ValidateLogLevel("logging.level", c.Logging.Level),
		infraconfig.ValidateOneOf("cache.backend", c.Cache.Backend, CacheBackendMemory, CacheBackendRedis),
	}
	if c.Cache.Backend == CacheBackendRedis && !c.Redis.Enabled {
		errs = append(errs, &infraconfig.ValidationError{
			Field:   "cache.backend",
			Message: "redis backend requires redis.enabled",
		})
	}
	if c.Orchestrator.UnitTimeout > c.Orchestrator.GlobalTimeout {
		errs = append(errs, &infraconfig.ValidationError{
			Field:   "orchestrator.unit_timeout",
			Message: "must not exceed orchestrator.global_timeout",
		})
	}
	if err := features.Validate(c.Features); err != nil {
		errs = append(errs, &infraconfig.ValidationError{Field: "features", Message: err.Error()})
	}
	return errors.Join(errs...)
}
