package nlp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const (
	maxTemplateIssues    = 3
	maxTemplateQuickWins = 3
)

// TemplateTier renders answers by substituting report data into fixed
// text. It has no external dependencies and does not fail.
type TemplateTier struct{}

func NewTemplateTier() *TemplateTier { return &TemplateTier{} }

func (*TemplateTier) Name() string { return LevelTemplate }

func (*TemplateTier) Respond(_ context.Context, p Prompt) (string, error) {
	var b strings.Builder

	domainName := "your site"
	if p.Report != nil && p.Report.Domain != "" {
		domainName = p.Report.Domain
	}

	switch p.Intent {
	case domain.IntentQuickWins:
		writeQuickWins(&b, domainName, p.Slice.QuickWins)
	case domain.IntentGeneral, "":
		writeSummary(&b, domainName, p)
	default:
		writeCategory(&b, domainName, p.Intent, p.Slice)
	}
	return strings.TrimSpace(b.String()), nil
}

func writeCategory(b *strings.Builder, site string, intent domain.Intent, s Slice) {
	label := intentLabel(intent)
	if len(s.Issues) == 0 {
		fmt.Fprintf(b, "I didn't find any %s problems on %s.", label, site)
		if score, ok := s.Scores[s.Category]; ok {
			fmt.Fprintf(b, " The %s score is %d/100.", label, score)
		}
		return
	}

	fmt.Fprintf(b, "Here is what I found about %s on %s:\n", label, site)
	writeIssues(b, s.Issues)
	if score, ok := s.Scores[s.Category]; ok {
		fmt.Fprintf(b, "\nCurrent %s score: %d/100.", label, score)
	}
}

func writeQuickWins(b *strings.Builder, site string, wins []domain.QuickWin) {
	if len(wins) == 0 {
		fmt.Fprintf(b, "There are no quick wins for %s right now; the remaining issues need more work.", site)
		return
	}

	fmt.Fprintf(b, "The fastest improvements for %s:\n", site)
	for i, w := range wins {
		if i == maxTemplateQuickWins {
			break
		}
		fmt.Fprintf(b, "%d. %s (%s", i+1, w.Title, w.ImplementationTime)
		if w.RevenueImpactMonthly > 0 {
			fmt.Fprintf(b, ", about $%.0f/month", w.RevenueImpactMonthly)
		}
		b.WriteString(")")
		if w.RecommendedState != "" {
			fmt.Fprintf(b, ": %s", w.RecommendedState)
		}
		b.WriteString("\n")
	}
}

func writeSummary(b *strings.Builder, site string, p Prompt) {
	r := p.Report
	if r == nil {
		fmt.Fprintf(b, "I don't have an analysis for %s yet.", site)
		return
	}

	fmt.Fprintf(b, "Analysis of %s is %s.", site, r.Status)
	if len(r.PerCategoryScores) > 0 {
		cats := make([]string, 0, len(r.PerCategoryScores))
		for c := range r.PerCategoryScores {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		parts := make([]string, 0, len(cats))
		for _, c := range cats {
			parts = append(parts, fmt.Sprintf("%s %d", c, r.PerCategoryScores[c]))
		}
		fmt.Fprintf(b, " Scores: %s.", strings.Join(parts, ", "))
	}
	if r.TotalRevenueImpact > 0 {
		fmt.Fprintf(b, " Estimated revenue at risk: $%.0f per month.", r.TotalRevenueImpact)
	}

	issues := p.Slice.Issues
	if len(issues) == 0 {
		issues = r.IssuesFound
	}
	if len(issues) == 0 {
		b.WriteString(" No issues were found.")
		return
	}
	b.WriteString("\nTop issues:\n")
	writeIssues(b, issues)
}

func writeIssues(b *strings.Builder, issues []domain.Issue) {
	for i, issue := range issues {
		if i == maxTemplateIssues {
			fmt.Fprintf(b, "...and %d more.\n", len(issues)-maxTemplateIssues)
			break
		}
		fmt.Fprintf(b, "%d. %s (%s)", i+1, issue.Title, issue.Severity)
		if issue.RevenueImpactMonthly > 0 {
			fmt.Fprintf(b, ", about $%.0f/month", issue.RevenueImpactMonthly)
		}
		if issue.FixDescription != "" {
			fmt.Fprintf(b, ". Fix: %s", issue.FixDescription)
		}
		b.WriteString("\n")
	}
}
