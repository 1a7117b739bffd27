// Package aggregator merges per-unit analyzer results into one scored report.
package aggregator

import (
	"math"
	"sort"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// Summary is the merged view of a run.
type Summary struct {
	PerCategoryScores  map[string]int
	Issues             []domain.Issue
	QuickWins          []domain.QuickWin
	TotalRevenueImpact float64
	Skipped            int // malformed issues and quick wins dropped
}

type mergeKey struct {
	category string
	title    string
}

// Aggregate merges the successful results. Results that are nil or not ok
// contribute nothing: their category is omitted from the scores rather than
// scored zero. When two successful results share a category, the later one
// in results wins.
func Aggregate(results []*domain.AnalyzerResult) Summary {
	sum := Summary{PerCategoryScores: make(map[string]int)}

	issueIdx := make(map[mergeKey]int)
	winIdx := make(map[mergeKey]int)

	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		category := categoryOf(r)

		if r.Score != nil {
			sum.PerCategoryScores[category] = *domain.Score(*r.Score)
		}

		for _, issue := range r.Issues {
			if issue.Category == "" {
				issue.Category = category
			}
			if !validIssue(issue) {
				sum.Skipped++
				continue
			}
			k := mergeKey{issue.Category, issue.Title}
			if i, seen := issueIdx[k]; seen {
				if issue.RevenueImpactMonthly > sum.Issues[i].RevenueImpactMonthly {
					sum.Issues[i] = issue
				}
				continue
			}
			issueIdx[k] = len(sum.Issues)
			sum.Issues = append(sum.Issues, issue)
		}

		for _, win := range r.QuickWins {
			if win.Category == "" {
				win.Category = category
			}
			if !validQuickWin(win) {
				sum.Skipped++
				continue
			}
			k := mergeKey{win.Category, win.Title}
			if _, seen := winIdx[k]; seen {
				continue
			}
			winIdx[k] = len(sum.QuickWins)
			sum.QuickWins = append(sum.QuickWins, win)
		}
	}

	SortIssues(sum.Issues)
	sort.SliceStable(sum.QuickWins, func(i, j int) bool {
		return sum.QuickWins[i].RevenueImpactMonthly > sum.QuickWins[j].RevenueImpactMonthly
	})

	for _, issue := range sum.Issues {
		sum.TotalRevenueImpact += issue.RevenueImpactMonthly
	}
	if sum.Issues == nil {
		sum.Issues = []domain.Issue{}
	}
	if sum.QuickWins == nil {
		sum.QuickWins = []domain.QuickWin{}
	}
	return sum
}

// SortIssues orders by severity rank, then monthly revenue impact, both
// descending. Equal issues keep their input order.
func SortIssues(issues []domain.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := issues[i].Severity.Rank(), issues[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return issues[i].RevenueImpactMonthly > issues[j].RevenueImpactMonthly
	})
}

// ResolveStatus maps the count of successful units to the report status.
func ResolveStatus(results []*domain.AnalyzerResult) domain.ReportStatus {
	ok := 0
	for _, r := range results {
		if r.Succeeded() {
			ok++
		}
	}
	switch {
	case ok == 0:
		return domain.ReportStatusFailed
	case ok == len(results):
		return domain.ReportStatusCompleted
	default:
		return domain.ReportStatusPartial
	}
}

func categoryOf(r *domain.AnalyzerResult) string {
	if r.Category != "" {
		return r.Category
	}
	return r.AnalyzerName
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validIssue(i domain.Issue) bool {
	return i.Title != "" && i.Severity.Rank() > 0 && validAmount(i.RevenueImpactMonthly)
}

func validQuickWin(w domain.QuickWin) bool {
	return w.Title != "" && validAmount(w.RevenueImpactMonthly)
}
