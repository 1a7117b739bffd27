package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"

	infraconfig "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/config"
	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/config"
)

const defaultConfigPath = "config.yml"

// LoadConfig loads and validates configuration. An empty path falls back to
// CONFIG_PATH and then config.yml. A missing file is not an error: defaults
// and the environment are used instead, and fromFile reports which happened.
func LoadConfig(path string) (cfg *config.Config, fromFile bool, err error) {
	if path == "" {
		path = infraconfig.GetConfigPath(defaultConfigPath)
	}

	cfg, err = config.Load(path)
	switch {
	case err == nil:
		fromFile = true
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, false, err
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", validateErr)
	}
	return cfg, fromFile, nil
}

// CreateLogger creates the service logger. Every entry carries the service
// name and version.
func CreateLogger(cfg *config.Config) (infralogger.Logger, error) {
	logCfg := cfg.Logging
	logCfg.Development = logCfg.Development || cfg.Service.Debug

	logger, err := infralogger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.With(
		infralogger.String("service", cfg.Service.Name),
		infralogger.String("version", cfg.Service.Version),
	), nil
}
