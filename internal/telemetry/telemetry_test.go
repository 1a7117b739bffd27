package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/cache"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/telemetry"
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global registry
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

var _ cache.Recorder = (*telemetry.Provider)(nil)

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Metrics)
}

func TestRecorders(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.RecordRunStarted(ctx)
	provider.RecordUnit(ctx, "seo", "ok", 120*time.Millisecond)
	provider.RecordProgressEvent()
	provider.RecordRunFinished(ctx, "partial", 3*time.Second)
	provider.RecordCacheLookup(cache.OutcomeHit)
	provider.RecordNLPResponse("template")
	provider.RecordNLPTierFailure("enhanced", "error")
	provider.RecordIntent("")
	provider.RecordSinkFailure("postgres")
}

func TestHandlerExposesMetrics(t *testing.T) {
	provider := getTestProvider(t)
	provider.RecordIntent("pricing")

	rec := httptest.NewRecorder()
	provider.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `growth_copilot_intents_total{intent="pricing"}`))
}

func TestStartSpan(t *testing.T) {
	provider := getTestProvider(t)

	ctx, span := provider.StartSpan(context.Background(), "analysis.run", attribute.String("domain", "example.com"))
	defer span.End()

	assert.NotNil(t, ctx)
}
