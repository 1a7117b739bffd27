package analyzer

import (
	"context"
	"fmt"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const (
	minTitleLength       = 30
	maxTitleLength       = 60
	maxDescriptionLength = 160
	minAltCoverage       = 0.8
)

// SEOUnit checks on-page search fundamentals.
type SEOUnit struct{}

func NewSEOUnit() *SEOUnit { return &SEOUnit{} }

func (*SEOUnit) Name() string     { return "seo" }
func (*SEOUnit) Category() string { return CategorySEO }

type seoData struct {
	Title             string  `json:"title"`
	TitleLength       int     `json:"title_length"`
	DescriptionLength int     `json:"description_length"`
	H1Count           int     `json:"h1_count"`
	Canonical         bool    `json:"canonical"`
	AltCoverage       float64 `json:"alt_coverage"`
}

func (u *SEOUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	sig := ExtractSignals(doc)

	coverage := 1.0
	if sig.Images > 0 {
		coverage = float64(sig.ImagesWithAlt) / float64(sig.Images)
	}

	b := newResultBuilder(u.Category(), actx.Industry)
	titleLen := len([]rune(sig.Title))
	descLen := len([]rune(sig.MetaDescription))

	switch {
	case titleLen == 0:
		b.issue(25, domain.SeverityCritical, domain.DifficultyEasy, 0.06,
			"Missing page title",
			"The homepage has no <title>, so search results show a generated one.",
			"Write a 50-60 character title leading with the main keyword.",
			"30 minutes")
	case titleLen < minTitleLength || titleLen > maxTitleLength:
		b.issue(8, domain.SeverityMedium, domain.DifficultyEasy, 0.01,
			"Page title length is off",
			fmt.Sprintf("The title is %d characters; 30-60 display best.", titleLen),
			"Rewrite the title to 50-60 characters.",
			"30 minutes")
	}
	switch {
	case descLen == 0:
		b.issue(15, domain.SeverityHigh, domain.DifficultyEasy, 0.03,
			"Missing meta description",
			"Search engines will pick arbitrary page text for the snippet.",
			"Add a 150-160 character description with a clear benefit.",
			"30 minutes")
		b.quickWin(0.03, "Write a meta description", "No meta description", "150-160 character benefit-led description", "30 minutes",
			"Summarize the value proposition", "Include the primary keyword", "Add it as <meta name=\"description\">")
	case descLen > maxDescriptionLength:
		b.issue(4, domain.SeverityLow, domain.DifficultyEasy, 0.005,
			"Meta description is truncated",
			fmt.Sprintf("The description is %d characters and will be cut off.", descLen),
			"Trim it to 160 characters.",
			"15 minutes")
	}
	switch {
	case sig.H1Count == 0:
		b.issue(12, domain.SeverityHigh, domain.DifficultyEasy, 0.02,
			"No H1 heading",
			"The page has no top-level heading describing what it offers.",
			"Add one H1 stating the core offer.",
			"30 minutes")
	case sig.H1Count > 1:
		b.issue(4, domain.SeverityLow, domain.DifficultyEasy, 0.005,
			"Multiple H1 headings",
			fmt.Sprintf("Found %d H1 elements.", sig.H1Count),
			"Keep one H1 and demote the rest to H2.",
			"30 minutes")
	}
	if !sig.HasCanonical {
		b.issue(4, domain.SeverityLow, domain.DifficultyEasy, 0.005,
			"No canonical URL",
			"Duplicate URLs may split ranking signals.",
			"Add <link rel=\"canonical\"> pointing at the preferred URL.",
			"15 minutes")
	}
	if coverage < minAltCoverage {
		b.issue(8, domain.SeverityMedium, domain.DifficultyEasy, 0.01,
			"Images missing alt text",
			fmt.Sprintf("Only %d of %d images have alt text.", sig.ImagesWithAlt, sig.Images),
			"Describe every meaningful image in its alt attribute.",
			"2 hours")
	}

	return b.build(seoData{
		Title:             sig.Title,
		TitleLength:       titleLen,
		DescriptionLength: descLen,
		H1Count:           sig.H1Count,
		Canonical:         sig.HasCanonical,
		AltCoverage:       coverage,
	})
}
