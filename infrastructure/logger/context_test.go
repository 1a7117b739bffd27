package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	t.Parallel()

	stored := logger.NewNop().With(logger.String("request_id", "abc"))
	ctx := logger.WithContext(context.Background(), stored)

	assert.Equal(t, stored, logger.FromContext(ctx))
}

func TestFromContext_FallsBackWhenMissing(t *testing.T) {
	t.Parallel()

	l := logger.FromContext(context.Background())
	assert.NotNil(t, l)
	assert.Equal(t, l, logger.FromContext(context.Background()))
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	assert.NoError(t, err)
	assert.NotNil(t, l)
}
