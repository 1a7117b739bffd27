package aggregator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/aggregator"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

func okResult(name string, score int, issues ...domain.Issue) *domain.AnalyzerResult {
	return &domain.AnalyzerResult{
		AnalyzerName: name,
		Category:     name,
		Status:       domain.UnitStatusOK,
		Score:        domain.Score(score),
		Issues:       issues,
	}
}

func issue(category string, sev domain.Severity, title string, impact float64) domain.Issue {
	return domain.Issue{Category: category, Severity: sev, Title: title, RevenueImpactMonthly: impact}
}

func TestAggregate_OmitsFailedCategories(t *testing.T) {
	t.Parallel()

	results := []*domain.AnalyzerResult{
		okResult("seo", 80),
		{AnalyzerName: "visual", Category: "visual", Status: domain.UnitStatusTimedOut},
		{AnalyzerName: "forms", Category: "forms", Status: domain.UnitStatusFailed, Score: domain.Score(10)},
		nil,
	}

	sum := aggregator.Aggregate(results)

	assert.Equal(t, map[string]int{"seo": 80}, sum.PerCategoryScores)
	_, hasVisual := sum.PerCategoryScores["visual"]
	assert.False(t, hasVisual)
}

func TestAggregate_DedupKeepsHigherImpact(t *testing.T) {
	t.Parallel()

	results := []*domain.AnalyzerResult{
		okResult("seo", 70, issue("seo", domain.SeverityHigh, "Missing meta description", 100)),
		okResult("seo2", 60, issue("seo", domain.SeverityHigh, "Missing meta description", 250)),
	}

	sum := aggregator.Aggregate(results)

	require.Len(t, sum.Issues, 1)
	assert.InDelta(t, 250.0, sum.Issues[0].RevenueImpactMonthly, 0.001)
	assert.InDelta(t, 250.0, sum.TotalRevenueImpact, 0.001)
}

func TestAggregate_SortsBySeverityThenImpact(t *testing.T) {
	t.Parallel()

	results := []*domain.AnalyzerResult{
		okResult("perf", 50,
			issue("perf", domain.SeverityLow, "low-big", 9000),
			issue("perf", domain.SeverityCritical, "crit-small", 10),
			issue("perf", domain.SeverityHigh, "high-small", 20),
		),
		okResult("forms", 40,
			issue("forms", domain.SeverityHigh, "high-big", 500),
			issue("forms", domain.SeverityCritical, "crit-big", 1000),
		),
	}

	sum := aggregator.Aggregate(results)

	titles := make([]string, 0, len(sum.Issues))
	for _, i := range sum.Issues {
		titles = append(titles, i.Title)
	}
	assert.Equal(t, []string{"crit-big", "crit-small", "high-big", "high-small", "low-big"}, titles)
	assert.InDelta(t, 10530.0, sum.TotalRevenueImpact, 0.001)
}

func TestAggregate_SkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	r := okResult("pricing", 55,
		issue("pricing", domain.SeverityHigh, "", 10),
		issue("pricing", domain.Severity("urgent"), "bad severity", 10),
		issue("pricing", domain.SeverityMedium, "negative", -5),
		issue("pricing", domain.SeverityMedium, "nan", math.NaN()),
		issue("", domain.SeverityMedium, "inherits category", 30),
	)
	r.QuickWins = []domain.QuickWin{
		{Title: "", RevenueImpactMonthly: 5},
		{Title: "Show prices", RevenueImpactMonthly: 50},
	}

	sum := aggregator.Aggregate([]*domain.AnalyzerResult{r})

	require.Len(t, sum.Issues, 1)
	assert.Equal(t, "pricing", sum.Issues[0].Category)
	require.Len(t, sum.QuickWins, 1)
	assert.Equal(t, "pricing", sum.QuickWins[0].Category)
	assert.Equal(t, 5, sum.Skipped)
}

func TestAggregate_QuickWinsSortedAndExactDedup(t *testing.T) {
	t.Parallel()

	a := okResult("seo", 70)
	a.QuickWins = []domain.QuickWin{
		{Title: "Add H1", RevenueImpactMonthly: 10},
		{Title: "Add alt text", RevenueImpactMonthly: 40},
	}
	b := okResult("forms", 70)
	b.QuickWins = []domain.QuickWin{
		{Title: "Add H1", RevenueImpactMonthly: 99},
		{Category: "seo", Title: "Add H1", RevenueImpactMonthly: 77},
	}

	sum := aggregator.Aggregate([]*domain.AnalyzerResult{a, b})

	require.Len(t, sum.QuickWins, 3)
	assert.InDelta(t, 99.0, sum.QuickWins[0].RevenueImpactMonthly, 0.001)
	assert.Equal(t, "forms", sum.QuickWins[0].Category)
	assert.InDelta(t, 40.0, sum.QuickWins[1].RevenueImpactMonthly, 0.001)
	assert.InDelta(t, 10.0, sum.QuickWins[2].RevenueImpactMonthly, 0.001)
}

func TestAggregate_LastSuccessWinsOnSharedCategory(t *testing.T) {
	t.Parallel()

	first := okResult("a", 30)
	first.Category = "seo"
	second := okResult("b", 90)
	second.Category = "seo"

	sum := aggregator.Aggregate([]*domain.AnalyzerResult{first, second})
	assert.Equal(t, 90, sum.PerCategoryScores["seo"])
}

func TestAggregate_EmptyInputYieldsEmptyLists(t *testing.T) {
	t.Parallel()

	sum := aggregator.Aggregate(nil)
	assert.NotNil(t, sum.Issues)
	assert.NotNil(t, sum.QuickWins)
	assert.Empty(t, sum.PerCategoryScores)
	assert.Zero(t, sum.TotalRevenueImpact)
}

func TestResolveStatus(t *testing.T) {
	t.Parallel()

	ok := okResult("seo", 1)
	bad := &domain.AnalyzerResult{Status: domain.UnitStatusFailed}
	late := &domain.AnalyzerResult{Status: domain.UnitStatusTimedOut}

	tests := []struct {
		name    string
		results []*domain.AnalyzerResult
		want    domain.ReportStatus
	}{
		{name: "all ok", results: []*domain.AnalyzerResult{ok, ok}, want: domain.ReportStatusCompleted},
		{name: "some ok", results: []*domain.AnalyzerResult{ok, late}, want: domain.ReportStatusPartial},
		{name: "none ok", results: []*domain.AnalyzerResult{bad, late}, want: domain.ReportStatusFailed},
		{name: "no units", results: nil, want: domain.ReportStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, aggregator.ResolveStatus(tt.results))
		})
	}
}
