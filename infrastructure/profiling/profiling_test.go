package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

func TestStartPprofServer_Disabled(t *testing.T) {
	assert.Nil(t, StartPprofServer(Config{}, logger.NewNop()))
}

func TestStartPyroscope_Disabled(t *testing.T) {
	p, err := StartPyroscope("growth-copilot", "dev", Config{}, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.Stop())
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{PprofPort: "7070"}
	cfg.SetDefaults()

	assert.Equal(t, "7070", cfg.PprofPort)
	assert.Equal(t, "http://pyroscope:4040", cfg.PyroscopeServerURL)
	assert.Equal(t, "development", cfg.PyroscopeEnvironment)
}
