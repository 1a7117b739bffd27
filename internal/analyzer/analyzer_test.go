package analyzer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

func issueTitles(r *domain.AnalyzerResult) []string {
	out := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, i.Title)
	}
	return out
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := analyzer.NewDefaultRegistry()
	require.Equal(t, 7, reg.Len())

	units := reg.Units()
	assert.Equal(t, "performance", units[0].Name())
	assert.Equal(t, "competitor", units[len(units)-1].Name())

	u, ok := reg.Get("conversion")
	require.True(t, ok)
	assert.Equal(t, analyzer.CategoryForms, u.Category())

	err := reg.Register(analyzer.NewSEOUnit())
	require.ErrorIs(t, err, analyzer.ErrDuplicateUnit)

	assert.Contains(t, reg.Names(), "ai_search")
}

func TestPageFetcher_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := analyzer.NewPageFetcher(analyzer.FetcherConfig{MaxAttempts: 3, RetryDelay: time.Millisecond},
		analyzer.WithHTTPClient(srv.Client()))

	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPageFetcher_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := analyzer.NewPageFetcher(analyzer.FetcherConfig{MaxAttempts: 3, RetryDelay: time.Millisecond},
		analyzer.WithHTTPClient(srv.Client()))

	_, err := f.Fetch(context.Background(), srv.URL)
	var se *analyzer.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPageFetcher_StopsAtDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := analyzer.NewPageFetcher(analyzer.FetcherConfig{MaxAttempts: 5, RetryDelay: 10 * time.Millisecond},
		analyzer.WithHTTPClient(srv.Client()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAnalysisContext_SharedFetchStopsAtCallerDeadline(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := analyzer.NewPageFetcher(analyzer.FetcherConfig{MaxAttempts: 100, RetryDelay: 10 * time.Millisecond},
		analyzer.WithHTTPClient(srv.Client()),
		analyzer.WithURLResolver(func(_, path string) string { return srv.URL + path }))
	actx := analyzer.NewAnalysisContext(context.Background(), f, "saas", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := actx.Homepage(ctx, "acme.test")
	require.Error(t, err)

	// Give an in-flight attempt time to land, then the count must hold still.
	time.Sleep(100 * time.Millisecond)
	settled := hits.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, settled, hits.Load())
	assert.Positive(t, settled)
}

func TestAnalysisContext_FetchesHomepageOnce(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("acme.test", "/", goodPage)
	actx := web.context(context.Background(), "saas")

	units := analyzer.DefaultUnits()[:4]
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u analyzer.Unit) {
			defer wg.Done()
			_, err := u.Analyze(context.Background(), "acme.test", actx)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, web.hitCount("acme.test", "/"))
}

func TestUnits_GoodPageScoresHigh(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("acme.test", "/", goodPage)
	web.page("acme.test", "/llms.txt", "# Acme")
	actx := web.context(context.Background(), "saas")

	for _, u := range []analyzer.Unit{
		analyzer.NewSEOUnit(), analyzer.NewMobileUnit(), analyzer.NewConversionUnit(),
		analyzer.NewPricingUnit(), analyzer.NewAISearchUnit(),
	} {
		res, err := u.Analyze(context.Background(), "acme.test", actx)
		require.NoError(t, err, u.Name())
		require.NotNil(t, res.Score, u.Name())
		assert.GreaterOrEqual(t, *res.Score, 90, "%s: %v", u.Name(), issueTitles(res))
		assert.Equal(t, u.Category(), res.Category)
	}
}

func TestUnits_PoorPageFindsIssues(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("shabby.test", "/", poorPage)
	actx := web.context(context.Background(), "")

	seo, err := analyzer.NewSEOUnit().Analyze(context.Background(), "shabby.test", actx)
	require.NoError(t, err)
	assert.Contains(t, issueTitles(seo), "Missing page title")
	assert.Contains(t, issueTitles(seo), "Missing meta description")
	assert.Contains(t, issueTitles(seo), "Images missing alt text")

	mobile, err := analyzer.NewMobileUnit().Analyze(context.Background(), "shabby.test", actx)
	require.NoError(t, err)
	assert.Contains(t, issueTitles(mobile), "Page is not mobile responsive")
	assert.Contains(t, issueTitles(mobile), "Fixed-width elements overflow small screens")
	assert.Contains(t, issueTitles(mobile), "Text too small on mobile")

	forms, err := analyzer.NewConversionUnit().Analyze(context.Background(), "shabby.test", actx)
	require.NoError(t, err)
	assert.Contains(t, issueTitles(forms), "No clear call to action")
	assert.Contains(t, issueTitles(forms), "Form asks for too many fields")
	for _, i := range forms.Issues {
		assert.Equal(t, analyzer.CategoryForms, i.Category)
		assert.GreaterOrEqual(t, i.RevenueImpactMonthly, 0.0)
	}

	pricing, err := analyzer.NewPricingUnit().Analyze(context.Background(), "shabby.test", actx)
	require.NoError(t, err)
	assert.Contains(t, issueTitles(pricing), "Pricing is hard to find")
}

func TestAISearchUnit_DetectsBlockedCrawlers(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("acme.test", "/", goodPage)
	web.page("acme.test", "/robots.txt", "User-agent: GPTBot\nDisallow: /\n\nUser-agent: *\nAllow: /\n")
	actx := web.context(context.Background(), "saas")

	res, err := analyzer.NewAISearchUnit().Analyze(context.Background(), "acme.test", actx)
	require.NoError(t, err)
	assert.Contains(t, issueTitles(res), "AI crawlers are blocked")
	assert.Contains(t, issueTitles(res), "No llms.txt")

	var raw struct {
		BlockedCrawlers []string `json:"blocked_crawlers"`
	}
	require.NoError(t, json.Unmarshal(res.RawData, &raw))
	assert.Equal(t, []string{"GPTBot"}, raw.BlockedCrawlers)
}

func TestCompetitorUnit_FindsPricingGap(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("shabby.test", "/", poorPage)
	web.page("rival.test", "/", goodPage)
	actx := web.context(context.Background(), "saas", "rival.test", "gone.test")

	res, err := analyzer.NewCompetitorUnit().Analyze(context.Background(), "shabby.test", actx)
	require.NoError(t, err)
	assert.Contains(t, issueTitles(res), "Competitors show pricing, you don't")

	var payload analyzer.CompetitorPayload
	require.NoError(t, json.Unmarshal(res.RawData, &payload))
	require.Len(t, payload.Competitors, 2)
	assert.NotNil(t, payload.Competitors[0].Signals)
	assert.NotEmpty(t, payload.Competitors[1].Error)
	assert.Contains(t, payload.Gaps, "pricing_transparency")
}

func TestCompetitorUnit_NoCompetitorsLeavesScoreUnknown(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("acme.test", "/", goodPage)

	res, err := analyzer.NewCompetitorUnit().Analyze(context.Background(), "acme.test", web.context(context.Background(), ""))
	require.NoError(t, err)
	assert.Nil(t, res.Score)
}

func TestCompetitorUnit_AllCompetitorsUnreachable(t *testing.T) {
	t.Parallel()

	web := newFakeWeb(t)
	web.page("acme.test", "/", goodPage)

	_, err := analyzer.NewCompetitorUnit().Analyze(context.Background(), "acme.test",
		web.context(context.Background(), "", "down.test"))
	require.ErrorIs(t, err, analyzer.ErrNoCompetitorData)
}

func TestRevenueImpact(t *testing.T) {
	t.Parallel()

	assert.Zero(t, analyzer.RevenueImpact("saas", -0.5))
	assert.Zero(t, analyzer.RevenueImpact("saas", 0))

	saas := analyzer.RevenueImpact("SaaS", 0.1)
	def := analyzer.RevenueImpact("unknown-industry", 0.1)
	assert.InDelta(t, 11250.0, saas, 0.001)
	assert.InDelta(t, 2000.0, def, 0.001)

	assert.InDelta(t, analyzer.ProfileFor("saas").MonthlyRevenue(), analyzer.RevenueImpact("saas", 5), 0.001)
}
