package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/config"
)

type sampleConfig struct {
	Name    string        `env:"SAMPLE_NAME"    yaml:"name"`
	Port    int           `env:"SAMPLE_PORT"    yaml:"port"`
	Timeout time.Duration `env:"SAMPLE_TIMEOUT" yaml:"timeout"`
	Ratio   float64       `env:"SAMPLE_RATIO"   yaml:"ratio"`
	Nested  struct {
		Enabled bool     `env:"SAMPLE_ENABLED" yaml:"enabled"`
		Hosts   []string `env:"SAMPLE_HOSTS"   yaml:"hosts"`
	} `yaml:"nested"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := writeConfig(t, "name: copilot\nport: 8080\ntimeout: 5s\nnested:\n  enabled: true\n  hosts: [a, b]\n")

	cfg, err := config.Load[sampleConfig](path)
	require.NoError(t, err)

	assert.Equal(t, "copilot", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.Nested.Enabled)
	assert.Equal(t, []string{"a", "b"}, cfg.Nested.Hosts)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "name: copilot\nport: 8080\n")

	t.Setenv("SAMPLE_PORT", "9090")
	t.Setenv("SAMPLE_TIMEOUT", "250ms")
	t.Setenv("SAMPLE_RATIO", "0.25")
	t.Setenv("SAMPLE_ENABLED", "yes")
	t.Setenv("SAMPLE_HOSTS", "x, y ,z")

	cfg, err := config.Load[sampleConfig](path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.InDelta(t, 0.25, cfg.Ratio, 1e-9)
	assert.True(t, cfg.Nested.Enabled)
	assert.Equal(t, []string{"x", "y", "z"}, cfg.Nested.Hosts)
}

func TestLoadWithDefaults_EnvWinsOverDefaults(t *testing.T) {
	path := writeConfig(t, "name: copilot\n")
	t.Setenv("SAMPLE_PORT", "7000")

	cfg, err := config.LoadWithDefaults(path, func(c *sampleConfig) {
		if c.Port == 0 {
			c.Port = 8080
		}
		c.Name = "default-name"
	})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "default-name", cfg.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load[sampleConfig](filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestValidatePercentage(t *testing.T) {
	t.Parallel()

	assert.NoError(t, config.ValidatePercentage("p", 0))
	assert.NoError(t, config.ValidatePercentage("p", 100))

	err := config.ValidatePercentage("features.x.percentage", 101)
	var vErr *config.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "features.x.percentage", vErr.Field)
}
