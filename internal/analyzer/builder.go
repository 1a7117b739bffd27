package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// resultBuilder accumulates findings and deducts from a starting score of 100.
type resultBuilder struct {
	category  string
	industry  string
	score     int
	issues    []domain.Issue
	quickWins []domain.QuickWin
}

func newResultBuilder(category, industry string) *resultBuilder {
	return &resultBuilder{category: category, industry: industry, score: 100}
}

// issue records a finding priced at lostFraction of baseline revenue and
// deducts penalty points.
func (b *resultBuilder) issue(penalty int, sev domain.Severity, diff domain.Difficulty, lostFraction float64, title, desc, fix, fixTime string) {
	b.score -= penalty
	b.issues = append(b.issues, domain.Issue{
		Category:             b.category,
		Severity:             sev,
		Title:                title,
		Description:          desc,
		RevenueImpactMonthly: RevenueImpact(b.industry, lostFraction),
		FixDifficulty:        diff,
		FixDescription:       fix,
		EstimatedFixTime:     fixTime,
	})
}

func (b *resultBuilder) quickWin(lostFraction float64, title, current, recommended, timeNeeded string, steps ...string) {
	b.quickWins = append(b.quickWins, domain.QuickWin{
		Category:             b.category,
		Title:                title,
		CurrentState:         current,
		RecommendedState:     recommended,
		RevenueImpactMonthly: RevenueImpact(b.industry, lostFraction),
		ImplementationTime:   timeNeeded,
		ImplementationSteps:  steps,
	})
}

func (b *resultBuilder) build(raw any) (*domain.AnalyzerResult, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal raw data: %w", err)
	}
	return &domain.AnalyzerResult{
		Category:  b.category,
		Status:    domain.UnitStatusOK,
		Score:     domain.Score(b.score),
		Issues:    b.issues,
		QuickWins: b.quickWins,
		RawData:   data,
	}, nil
}
