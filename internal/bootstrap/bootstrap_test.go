package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/bootstrap"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, fromFile, err := bootstrap.LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.False(t, fromFile)
	assert.Equal(t, "growth-copilot", cfg.Service.Name)
}

func TestLoadConfig_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	_, _, err := bootstrap.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  port: 9090\n"), 0o600))

	cfg, fromFile, err := bootstrap.LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, fromFile)
	assert.Equal(t, 9090, cfg.Service.Port)
}

// The telemetry provider registers on the default Prometheus registry, so
// the services are built once for the whole binary.
func TestServerWithoutBackends(t *testing.T) {
	cfg := config.Default()
	log := infralogger.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persistence, err := bootstrap.SetupPersistence(ctx, cfg, log)
	require.NoError(t, err)
	assert.Nil(t, persistence.DB)
	assert.Nil(t, persistence.Archiver)
	assert.Nil(t, persistence.Indexer)

	services, err := bootstrap.SetupServices(ctx, cfg, log, persistence)
	require.NoError(t, err)
	defer services.Shutdown(log)
	assert.Nil(t, services.Redis)
	assert.NotEmpty(t, services.Orchestrator.Units())

	router := bootstrap.SetupHTTPServer(cfg, log, services, persistence).Router()

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/nlp/status", http.StatusOK},
		{"/api/v1/features/deep_analysis?identity=user-1", http.StatusOK},
		{"/api/v1/analyses", http.StatusServiceUnavailable},
		{"/api/v1/analyses/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
