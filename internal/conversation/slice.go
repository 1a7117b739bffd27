package conversation

import (
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
)

// intentCategories maps an intent onto the report category it reads.
var intentCategories = map[domain.Intent]string{
	domain.IntentForms:    analyzer.CategoryForms,
	domain.IntentPricing:  analyzer.CategoryPricing,
	domain.IntentAISearch: analyzer.CategoryAISearch,
}

const maxGeneralIssues = 5

// sliceReport picks the part of report an answer about intent should see.
func sliceReport(report *domain.AnalysisReport, intent domain.Intent) nlp.Slice {
	s := nlp.Slice{Scores: report.PerCategoryScores}

	switch intent {
	case domain.IntentQuickWins:
		s.QuickWins = report.QuickWins
		for _, issue := range report.IssuesFound {
			if issue.FixDifficulty == domain.DifficultyEasy {
				s.Issues = append(s.Issues, issue)
			}
		}
	case domain.IntentForms, domain.IntentPricing, domain.IntentAISearch:
		s.Category = intentCategories[intent]
		s.Issues = report.IssuesInCategory(s.Category)
	default:
		issues := report.IssuesFound
		if len(issues) > maxGeneralIssues {
			issues = issues[:maxGeneralIssues]
		}
		s.Issues = issues
		s.QuickWins = report.QuickWins
	}
	return s
}
