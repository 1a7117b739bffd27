package analyzer

import (
	"context"
	"net/url"
	"strings"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// PricingUnit checks whether prospects can find what the product costs.
type PricingUnit struct{}

func NewPricingUnit() *PricingUnit { return &PricingUnit{} }

func (*PricingUnit) Name() string     { return "pricing" }
func (*PricingUnit) Category() string { return CategoryPricing }

type pricingData struct {
	PricingLinks       []string `json:"pricing_links"`
	PriceOnHomepage    bool     `json:"price_on_homepage"`
	PricingPageChecked bool     `json:"pricing_page_checked"`
	PriceOnPricingPage bool     `json:"price_on_pricing_page"`
}

func (u *PricingUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	sig := ExtractSignals(doc)

	data := pricingData{PricingLinks: sig.PricingLinks, PriceOnHomepage: sig.PriceVisible}

	if path, ok := sameSitePath(host, sig.PricingLinks); ok && actx.DeepAnalysis {
		data.PricingPageChecked = true
		if pp, fetchErr := actx.Fetch(ctx, host, path); fetchErr == nil {
			if pdoc, parseErr := parseDocument(pp); parseErr == nil {
				data.PriceOnPricingPage = ExtractSignals(pdoc).PriceVisible
			}
		}
	}

	b := newResultBuilder(u.Category(), actx.Industry)

	switch {
	case len(sig.PricingLinks) == 0 && !sig.PriceVisible:
		b.issue(35, domain.SeverityHigh, domain.DifficultyMedium, 0.10,
			"Pricing is hard to find",
			"The homepage neither shows prices nor links to a pricing page, so buyers leave to compare elsewhere.",
			"Add a Pricing link to the main navigation and publish at least starting prices.",
			"2-3 days")
		b.quickWin(0.10, "Add Pricing to the navigation", "No pricing link", "Pricing link in the top navigation", "1 hour",
			"Create or reuse a pricing page", "Add it to the header navigation", "Link it from the hero")
	case len(sig.PricingLinks) == 0:
		b.issue(10, domain.SeverityMedium, domain.DifficultyEasy, 0.03,
			"No dedicated pricing page",
			"Prices appear on the homepage but there is no pricing page to compare plans.",
			"Publish a pricing page with a plan comparison table.",
			"2 days")
	case !sig.PriceVisible && data.PricingPageChecked && !data.PriceOnPricingPage:
		b.issue(20, domain.SeverityHigh, domain.DifficultyMedium, 0.06,
			"Pricing page hides prices",
			"The pricing page exists but shows no actual prices.",
			"Show starting prices per plan, even if enterprise is quote-based.",
			"1-2 days")
	case !sig.PriceVisible:
		b.issue(5, domain.SeverityLow, domain.DifficultyEasy, 0.01,
			"No price anchor on the homepage",
			"Visitors must click through to learn what it costs.",
			`Mention the entry price near the main call to action (e.g. "from $29/mo").`,
			"1 hour")
	}

	return b.build(data)
}

// sameSitePath returns the path of the first pricing link that stays on host.
func sameSitePath(host string, links []string) (string, bool) {
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil {
			continue
		}
		if u.Host != "" && strings.TrimPrefix(strings.ToLower(u.Host), "www.") != host {
			continue
		}
		if u.Path == "" {
			continue
		}
		if !strings.HasPrefix(u.Path, "/") {
			return "/" + u.Path, true
		}
		return u.Path, true
	}
	return "", false
}
