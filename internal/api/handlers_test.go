package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/api"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/conversation"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/database"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
	analyzerMock "github.com/yungdaddii/growth-copilot-prod-sub002/internal/testhelpers/mocks/analyzer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHistory struct {
	summaries []database.ReportSummary
	latest    map[string]*domain.AnalysisReport
	limit     int
}

func (f *fakeHistory) ListRecent(_ context.Context, limit int) ([]database.ReportSummary, error) {
	f.limit = limit
	return f.summaries, nil
}

func (f *fakeHistory) LatestForDomain(_ context.Context, host string) (*domain.AnalysisReport, error) {
	if r, ok := f.latest[host]; ok {
		return r, nil
	}
	return nil, domain.ErrReportNotFound
}

type testEnv struct {
	router *gin.Engine
	broker sse.Broker
}

func pricingUnit(t *testing.T) analyzer.Unit {
	t.Helper()

	ctrl := gomock.NewController(t)
	unit := analyzerMock.NewMockUnit(ctrl)
	unit.EXPECT().Name().Return("pricing").AnyTimes()
	unit.EXPECT().Category().Return(analyzer.CategoryPricing).AnyTimes()
	unit.EXPECT().Analyze(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, *analyzer.AnalysisContext) (*domain.AnalyzerResult, error) {
			return &domain.AnalyzerResult{
				Score: domain.Score(45),
				Issues: []domain.Issue{{
					Category:             analyzer.CategoryPricing,
					Severity:             domain.SeverityHigh,
					Title:                "Pricing is hard to find",
					RevenueImpactMonthly: 2500,
					FixDifficulty:        domain.DifficultyEasy,
					FixDescription:       "Add a Pricing link to the main navigation.",
				}},
			}, nil
		}).AnyTimes()
	return unit
}

func setup(t *testing.T, history api.ReportHistory) testEnv {
	t.Helper()

	log := infralogger.NewNop()
	gate := features.NewGate(map[string]features.Flag{features.DeepAnalysis: {Mode: features.ModeOn}})

	broker := sse.NewBroker(log)
	require.NoError(t, broker.Start(context.Background()))
	t.Cleanup(func() { _ = broker.Stop() })

	orch := orchestrator.New(orchestrator.Config{UnitTimeout: 2 * time.Second, GlobalTimeout: 5 * time.Second, AnalysisTTL: -1},
		analyzer.NewRegistry(pricingUnit(t)), nil, log, orchestrator.WithEventPublisher(broker))
	t.Cleanup(orch.Close)

	router := nlp.NewRouter(nlp.Config{}, gate, log, nlp.Tiers{})
	conversations := conversation.NewHandler(orch, router, log, conversation.WithEventPublisher(broker))

	handler := api.NewHandler(api.Deps{
		Orchestrator:  orch,
		Conversations: conversations,
		Router:        router,
		Gate:          gate,
		Broker:        broker,
		History:       history,
		Logger:        log,
	})

	engine := gin.New()
	api.SetupRoutes(engine, handler, http.NotFoundHandler())
	return testEnv{router: engine, broker: broker}
}

func (e testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e testEnv) submitAndWait(t *testing.T, body map[string]any) *domain.AnalysisReport {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/analyses", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var submitted domain.AnalysisReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.ID)
	assert.Equal(t, domain.ReportStatusAnalyzing, submitted.Status)

	var final domain.AnalysisReport
	require.Eventually(t, func() bool {
		w := e.do(t, http.MethodGet, "/api/v1/analyses/"+submitted.ID, nil)
		if w.Code != http.StatusOK {
			return false
		}
		final = domain.AnalysisReport{}
		return json.Unmarshal(w.Body.Bytes(), &final) == nil && final.Status.Terminal()
	}, 5*time.Second, 20*time.Millisecond)
	return &final
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()

	var env struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Type, env.Payload
}

func TestSubmitAnalysis_Validation(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/analyses", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/analyses", map[string]any{"domain": "not a domain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	typ, payload := decodeEnvelope(t, w)
	assert.Equal(t, "error", typ)
	assert.Equal(t, domain.ErrorCodeInvalidRequest, payload["code"])
}

func TestAnalysisLifecycleAndChat(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)
	report := env.submitAndWait(t, map[string]any{"domain": "https://Example.com/pricing", "industry": "saas"})

	assert.Equal(t, "example.com", report.Domain)
	assert.Equal(t, domain.ReportStatusCompleted, report.Status)
	assert.Equal(t, 45, report.PerCategoryScores["pricing"])
	assert.InDelta(t, 2500.0, report.TotalRevenueImpact, 0.001)

	w := env.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"query": "what about pricing?", "report_id": report.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	typ, payload := decodeEnvelope(t, w)
	assert.Equal(t, "chat", typ)
	assert.Equal(t, "pricing", payload["intent"])
	assert.Equal(t, nlp.LevelTemplate, payload["tier"])
	assert.Contains(t, payload["message"], "Pricing is hard to find")

	w = env.do(t, http.MethodDelete, "/api/v1/analyses/"+report.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChat_UnknownReport(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"query": "pricing?", "report_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	typ, payload := decodeEnvelope(t, w)
	assert.Equal(t, "error", typ)
	assert.Equal(t, domain.ErrorCodeReportNotFound, payload["code"])

	w = env.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"query": "pricing?"})
	assert.Equal(t, http.StatusOK, w.Code)
	_, payload = decodeEnvelope(t, w)
	assert.Equal(t, domain.ErrorCodeNotAnalyzed, payload["code"])

	w = env.do(t, http.MethodPost, "/api/v1/chat", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRun(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/analyses/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, payload := decodeEnvelope(t, w)
	assert.Equal(t, domain.ErrorCodeReportNotFound, payload["code"])

	w = env.do(t, http.MethodDelete, "/api/v1/analyses/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/analyses/missing/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamProgress(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)
	report := env.submitAndWait(t, map[string]any{"domain": "example.com"})

	w := env.do(t, http.MethodGet, "/api/v1/analyses/"+report.ID+"/progress", nil, "Last-Event-ID", "0")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Equal(t, 4, strings.Count(body, "event: analysis_update"), body)
	assert.Contains(t, body, "id: 1\n")
	assert.Contains(t, body, `"progress":100`)
	assert.Contains(t, body, "Analysis complete: found 1 issues")

	w = env.do(t, http.MethodGet, "/api/v1/analyses/"+report.ID+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, strings.Count(w.Body.String(), "event: analysis_update"))

	w = env.do(t, http.MethodGet, "/api/v1/analyses/"+report.ID+"/progress", nil, "Last-Event-ID", "abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationEvents(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/conversations/conv-7/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}
	require.Equal(t, "connection", nextEvent())

	report := env.submitAndWait(t, map[string]any{"domain": "example.com", "conversation_id": "conv-7"})
	for range 4 {
		require.Equal(t, "analysis_update", nextEvent())
	}

	w := env.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"query": "what about pricing?", "report_id": report.ID, "conversation_id": "conv-7",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "typing", nextEvent())
	assert.Equal(t, "chat", nextEvent())
}

func TestNLPStatusAndFeatures(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/nlp/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Tiers []nlp.Capability `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Len(t, status.Tiers, 3)
	assert.False(t, status.Tiers[0].Available)
	assert.True(t, status.Tiers[2].Available)

	w = env.do(t, http.MethodGet, "/api/v1/features/deep_analysis?identity=user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var decision domain.FeatureDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, domain.FeatureDecision{Feature: "deep_analysis", Identity: "user-1", Enabled: true}, decision)

	w = env.do(t, http.MethodGet, "/api/v1/features/unknown", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.False(t, decision.Enabled)
}

func TestListAnalyses(t *testing.T) {
	t.Parallel()

	env := setup(t, nil)
	w := env.do(t, http.MethodGet, "/api/v1/analyses", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	history := &fakeHistory{
		summaries: []database.ReportSummary{{ID: "a", Domain: "example.com", Status: "completed"}},
		latest:    map[string]*domain.AnalysisReport{"example.com": {ID: "a", Domain: "example.com", Status: domain.ReportStatusCompleted}},
	}
	env = setup(t, history)

	w = env.do(t, http.MethodGet, "/api/v1/analyses?limit=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 100, history.limit)

	w = env.do(t, http.MethodGet, "/api/v1/analyses?domain=https://www.example.com/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var latest domain.AnalysisReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.Equal(t, "a", latest.ID)

	w = env.do(t, http.MethodGet, "/api/v1/analyses?domain=other.org", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/analyses?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
