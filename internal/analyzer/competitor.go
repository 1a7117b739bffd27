package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// MaxCompetitors caps how many competitor homepages one run fetches.
const MaxCompetitors = 5

// ErrNoCompetitorData is returned when every competitor fetch failed.
var ErrNoCompetitorData = errors.New("no competitor could be fetched")

// CompetitorSnapshot is what was learned about one competitor.
type CompetitorSnapshot struct {
	Domain  string   `json:"domain"`
	Signals *Signals `json:"signals,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// CompetitorPayload is the raw data of a competitor result. It is what gets
// cached per domain and industry.
type CompetitorPayload struct {
	Target      Signals              `json:"target"`
	Competitors []CompetitorSnapshot `json:"competitors"`
	Gaps        []string             `json:"gaps"`
}

// CompetitorUnit compares the target's homepage structure with each
// competitor's. It is the expensive unit whose output the orchestrator
// caches.
type CompetitorUnit struct{}

func NewCompetitorUnit() *CompetitorUnit { return &CompetitorUnit{} }

func (*CompetitorUnit) Name() string     { return "competitor" }
func (*CompetitorUnit) Category() string { return CategoryCompetitors }

func (u *CompetitorUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	payload := CompetitorPayload{Target: ExtractSignals(doc)}

	competitors := actx.Competitors
	if len(competitors) > MaxCompetitors {
		competitors = competitors[:MaxCompetitors]
	}
	payload.Competitors = u.snapshots(ctx, host, competitors, actx)

	b := newResultBuilder(u.Category(), actx.Industry)
	if len(competitors) == 0 {
		res, buildErr := b.build(payload)
		if buildErr != nil {
			return nil, buildErr
		}
		// Nothing to compare against: the category is unknown, not perfect.
		res.Score = nil
		return res, nil
	}

	var ok []*Signals
	for _, snap := range payload.Competitors {
		if snap.Signals != nil {
			ok = append(ok, snap.Signals)
		}
	}
	if len(ok) == 0 {
		return nil, ErrNoCompetitorData
	}

	target := payload.Target
	if n := countWhere(ok, func(s *Signals) bool { return s.PriceVisible || len(s.PricingLinks) > 0 }); n > 0 &&
		!target.PriceVisible && len(target.PricingLinks) == 0 {
		payload.Gaps = append(payload.Gaps, "pricing_transparency")
		b.issue(25, domain.SeverityHigh, domain.DifficultyMedium, 0.06,
			"Competitors show pricing, you don't",
			fmt.Sprintf("%d of %d competitors publish pricing; prospects comparing options will shortlist them first.", n, len(ok)),
			"Publish at least starting prices for each plan.",
			"2-3 days")
	}
	if n := countWhere(ok, func(s *Signals) bool { return len(s.JSONLDTypes) > 0 }); n > 0 && len(target.JSONLDTypes) == 0 {
		payload.Gaps = append(payload.Gaps, "structured_data")
		b.issue(15, domain.SeverityMedium, domain.DifficultyMedium, 0.02,
			"Competitors have richer search listings",
			fmt.Sprintf("%d of %d competitors use structured data.", n, len(ok)),
			"Add Organization and Product JSON-LD.",
			"1 day")
	}
	if n := countWhere(ok, func(s *Signals) bool { return s.FormCount > 0 || s.HasEmailCapture }); n > 0 &&
		target.FormCount == 0 && !target.HasEmailCapture {
		payload.Gaps = append(payload.Gaps, "lead_capture")
		b.issue(20, domain.SeverityHigh, domain.DifficultyMedium, 0.05,
			"Competitors capture leads on the homepage",
			fmt.Sprintf("%d of %d competitors have a homepage form.", n, len(ok)),
			"Add an email capture or demo form to the homepage.",
			"1-2 days")
	}
	if n := countWhere(ok, func(s *Signals) bool { return s.CTACount > target.CTACount }); n*2 > len(ok) && target.CTACount == 0 {
		payload.Gaps = append(payload.Gaps, "call_to_action")
		b.issue(15, domain.SeverityMedium, domain.DifficultyEasy, 0.04,
			"Competitors ask for the sale more clearly",
			"Most competitors have a visible call to action; the homepage has none.",
			"Add a primary call to action to the hero.",
			"2 hours")
	}

	return b.build(payload)
}

func (u *CompetitorUnit) snapshots(ctx context.Context, host string, competitors []string, actx *AnalysisContext) []CompetitorSnapshot {
	out := make([]CompetitorSnapshot, len(competitors))

	var wg sync.WaitGroup
	for i, comp := range competitors {
		out[i].Domain = comp
		if comp == host {
			out[i].Error = "competitor is the target"
			continue
		}
		wg.Add(1)
		go func(i int, comp string) {
			defer wg.Done()
			p, err := actx.Homepage(ctx, comp)
			if err != nil {
				out[i].Error = err.Error()
				return
			}
			doc, err := parseDocument(p)
			if err != nil {
				out[i].Error = err.Error()
				return
			}
			sig := ExtractSignals(doc)
			out[i].Signals = &sig
		}(i, comp)
	}
	wg.Wait()
	return out
}

func countWhere(items []*Signals, pred func(*Signals) bool) int {
	n := 0
	for _, s := range items {
		if pred(s) {
			n++
		}
	}
	return n
}
