package nlp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const systemPrompt = `You are Growth Copilot, a conversion-rate consultant. Answer the user's follow-up question about the website analysis below.
Only use facts from the provided findings. Name the specific issues by title, give the concrete fix, and quote monthly revenue impact in dollars when it is available.
Keep the answer under 200 words and use short paragraphs or a brief list.`

// buildMessages renders the system and user messages shared by the hosted
// model tiers.
func buildMessages(p Prompt) (system, user string) {
	var b strings.Builder

	if p.Report != nil {
		fmt.Fprintf(&b, "Website: %s\nAnalysis status: %s\n", p.Report.Domain, p.Report.Status)
		fmt.Fprintf(&b, "Total monthly revenue at risk: $%.0f\n", p.Report.TotalRevenueImpact)
	}
	fmt.Fprintf(&b, "Question topic: %s\n", p.Intent)

	slice, err := json.MarshalIndent(p.Slice, "", "  ")
	if err == nil {
		b.WriteString("Relevant findings (JSON):\n")
		b.Write(slice)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s", p.Query)

	return systemPrompt, b.String()
}

// referencedTitles lists the issue titles an answer is grounded on.
func referencedTitles(s Slice) []string {
	if len(s.Issues) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Issues))
	for _, i := range s.Issues {
		out = append(out, i.Title)
	}
	return out
}

func intentLabel(i domain.Intent) string {
	switch i {
	case domain.IntentForms:
		return "forms and lead capture"
	case domain.IntentPricing:
		return "pricing"
	case domain.IntentQuickWins:
		return "quick wins"
	case domain.IntentAISearch:
		return "AI search readiness"
	default:
		return "overall performance"
	}
}
