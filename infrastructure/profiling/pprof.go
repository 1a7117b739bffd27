// Package profiling exposes optional pprof and Pyroscope profiling.
package profiling

import (
	"errors"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // bound to localhost only
	"time"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

// Config toggles both profilers.
type Config struct {
	PprofEnabled bool   `yaml:"pprof_enabled" env:"ENABLE_PROFILING"`
	PprofPort    string `yaml:"pprof_port"    env:"PPROF_PORT"`

	PyroscopeEnabled     bool   `yaml:"pyroscope_enabled"     env:"ENABLE_CONTINUOUS_PROFILING"`
	PyroscopeServerURL   string `yaml:"pyroscope_server_url"  env:"PYROSCOPE_SERVER_URL"`
	PyroscopeEnvironment string `yaml:"pyroscope_environment" env:"PYROSCOPE_ENVIRONMENT"`
}

// SetDefaults fills unset ports and addresses.
func (c *Config) SetDefaults() {
	if c.PprofPort == "" {
		c.PprofPort = "6060"
	}
	if c.PyroscopeServerURL == "" {
		c.PyroscopeServerURL = "http://pyroscope:4040"
	}
	if c.PyroscopeEnvironment == "" {
		c.PyroscopeEnvironment = "development"
	}
}

// StartPprofServer serves /debug/pprof on localhost when enabled. It returns
// the server so callers can close it, or nil when disabled.
func StartPprofServer(cfg Config, log logger.Logger) *http.Server {
	if !cfg.PprofEnabled {
		return nil
	}
	cfg.SetDefaults()

	srv := &http.Server{
		Addr:              "localhost:" + cfg.PprofPort,
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()
	return srv
}
