package analyzer

import (
	"context"
	"strings"

	"github.com/temoto/robotstxt"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// AICrawlers are the user agents of the major AI answer engines.
var AICrawlers = []string{"GPTBot", "ClaudeBot", "PerplexityBot", "Google-Extended", "CCBot"}

// AISearchUnit scores how readable the site is for AI answer engines:
// structured data, llms.txt and robots rules for AI crawlers.
type AISearchUnit struct{}

func NewAISearchUnit() *AISearchUnit { return &AISearchUnit{} }

func (*AISearchUnit) Name() string     { return "ai_search" }
func (*AISearchUnit) Category() string { return CategoryAISearch }

type aiSearchData struct {
	StructuredDataTypes []string `json:"structured_data_types"`
	FAQSchema           bool     `json:"faq_schema"`
	LLMsTxt             bool     `json:"llms_txt"`
	BlockedCrawlers     []string `json:"blocked_crawlers"`
}

func (u *AISearchUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	sig := ExtractSignals(doc)

	data := aiSearchData{
		StructuredDataTypes: sig.JSONLDTypes,
		FAQSchema:           sig.HasFAQSchema,
	}

	if _, llmsErr := actx.Fetch(ctx, host, "/llms.txt"); llmsErr == nil {
		data.LLMsTxt = true
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	blocked, err := blockedAICrawlers(ctx, host, actx)
	if err != nil {
		return nil, err
	}
	data.BlockedCrawlers = blocked

	b := newResultBuilder(u.Category(), actx.Industry)

	if len(data.BlockedCrawlers) > 0 {
		b.issue(30, domain.SeverityHigh, domain.DifficultyEasy, 0.05,
			"AI crawlers are blocked",
			"robots.txt blocks "+joinNames(data.BlockedCrawlers)+", so AI assistants cannot cite the site.",
			"Allow AI crawlers on marketing pages in robots.txt.",
			"30 minutes")
	}
	if len(data.StructuredDataTypes) == 0 {
		b.issue(25, domain.SeverityHigh, domain.DifficultyMedium, 0.04,
			"No structured data",
			"The homepage has no JSON-LD, so AI engines must guess what the business is.",
			"Add Organization and Product JSON-LD.",
			"1 day")
		b.quickWin(0.04, "Add Organization schema", "No JSON-LD", "Organization JSON-LD with name, logo and sameAs", "1 hour",
			"Generate Organization JSON-LD", "Add it to the homepage <head>", "Validate with a rich results test")
	}
	if !data.FAQSchema {
		b.issue(10, domain.SeverityMedium, domain.DifficultyEasy, 0.02,
			"No FAQ schema",
			"FAQ markup is the content AI answers quote most often.",
			"Mark up the FAQ section with FAQPage schema.",
			"2 hours")
	}
	if !data.LLMsTxt {
		b.issue(10, domain.SeverityMedium, domain.DifficultyEasy, 0.01,
			"No llms.txt",
			"There is no /llms.txt pointing language models at the key pages.",
			"Publish /llms.txt listing product, pricing and docs pages.",
			"1 hour")
		b.quickWin(0.01, "Publish llms.txt", "Missing /llms.txt", "llms.txt with the key pages", "1 hour",
			"List the five most important URLs", "Describe each in one line", "Serve it at /llms.txt")
	}

	return b.build(data)
}

// blockedAICrawlers lists AI crawlers denied "/". An unreachable or missing
// robots.txt allows everything.
func blockedAICrawlers(ctx context.Context, host string, actx *AnalysisContext) ([]string, error) {
	page, err := actx.Fetch(ctx, host, "/robots.txt")
	if err != nil {
		return nil, ctx.Err()
	}

	robots, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		return nil, nil //nolint:nilerr // unparsable robots.txt is treated as allow-all
	}

	var blocked []string
	for _, agent := range AICrawlers {
		if !robots.TestAgent("/", agent) {
			blocked = append(blocked, agent)
		}
	}
	return blocked, nil
}

func joinNames(names []string) string {
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
