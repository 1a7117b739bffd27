package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/config"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/config"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "service:\n  debug: true\n"))
	require.NoError(t, err)

	assert.Equal(t, "growth-copilot", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.True(t, cfg.Service.Debug)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "growth_copilot", cfg.Database.DBName)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, config.CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.GlobalTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Orchestrator.CompetitorTTL)
	assert.Equal(t, "claude-sonnet-4-5", cfg.NLP.Anthropic.Model)
	assert.Equal(t, "analysis-reports", cfg.Storage.Bucket)
	assert.Equal(t, "analysis_reports", cfg.Elasticsearch.ReportIndex)
	assert.NotNil(t, cfg.Elasticsearch.RetryConfig)
	assert.Equal(t, 1000, cfg.SSE.MaxClients)
	assert.Equal(t, 15*time.Second, cfg.SSE.HeartbeatInterval)
	assert.Equal(t, features.ModeOn, cfg.Features[features.EnhancedNLP].Mode)
	assert.Equal(t, features.ModePercentage, cfg.Features[features.DeepAnalysis].Mode)
	require.NoError(t, cfg.Validate())
}

func TestLoad_SectionsFromYAML(t *testing.T) {
	path := writeConfig(t, `
database:
  enabled: true
  host: db.internal
  dbname: reports
redis:
  enabled: true
  address: cache:6379
cache:
  analysis_ttl: 5m
  competitor_ttl: 12h
features:
  deep_analysis:
    mode: "off"
  enhanced_nlp:
    mode: percentage
    percentage: 25
sse:
  client_buffer_size: 8
  max_clients: -1
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "reports", cfg.Database.DBName)
	assert.Equal(t, config.CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Orchestrator.AnalysisTTL)
	assert.Equal(t, 12*time.Hour, cfg.Orchestrator.CompetitorTTL)
	assert.Equal(t, features.ModeOff, cfg.Features[features.DeepAnalysis].Mode)
	assert.InDelta(t, 25, cfg.Features[features.EnhancedNLP].Percentage, 0.001)
	assert.Equal(t, features.ModeOn, cfg.Features[features.StandardNLP].Mode)
	assert.Equal(t, 8, cfg.SSE.ClientBufferSize)
	assert.Equal(t, -1, cfg.SSE.MaxClients)
	assert.Equal(t, 1000, cfg.SSE.EventBufferSize)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GROWTH_COPILOT_PORT", "9191")
	t.Setenv("POSTGRES_HOST", "pg")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := config.Load(writeConfig(t, "service:\n  port: 8000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Service.Port)
	assert.Equal(t, "pg", cfg.Database.Host)
	assert.Equal(t, "sk-test", cfg.NLP.Anthropic.APIKey)
	assert.Equal(t, config.CacheBackendRedis, cfg.Cache.Backend)
}

func TestDefault_WithoutFile(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "growth-copilot", cfg.Service.Name)
	assert.Equal(t, 15*time.Minute, cfg.Server.WriteTimeout)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"bad port", func(c *config.Config) { c.Service.Port = 70000 }, "service.port"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unknown backend", func(c *config.Config) { c.Cache.Backend = "disk" }, "cache.backend"},
		{"redis backend without redis", func(c *config.Config) {
			c.Cache.Backend = config.CacheBackendRedis
			c.Redis.Enabled = false
		}, "cache.backend"},
		{"unit exceeds global", func(c *config.Config) {
			c.Orchestrator.UnitTimeout = 3 * time.Minute
		}, "orchestrator.unit_timeout"},
		{"percentage out of range", func(c *config.Config) {
			c.Features["deep_analysis"] = features.Flag{Mode: features.ModePercentage, Percentage: 150}
		}, "features"},
		{"unknown mode", func(c *config.Config) {
			c.Features["beta"] = features.Flag{Mode: "sometimes"}
		}, "features"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var vErr *infraconfig.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
