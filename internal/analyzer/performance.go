package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const (
	heavyPageBytes    = 2 * 1024 * 1024
	largePageBytes    = 1024 * 1024
	slowTTFB          = 800 * time.Millisecond
	slowLoad          = 3 * time.Second
	manyScripts       = 20
	lossPerSlowSecond = 0.07
)

// PerformanceUnit checks response time, page weight, compression and
// caching of the homepage.
type PerformanceUnit struct{}

func NewPerformanceUnit() *PerformanceUnit { return &PerformanceUnit{} }

func (*PerformanceUnit) Name() string     { return "performance" }
func (*PerformanceUnit) Category() string { return CategoryPerformance }

type performanceData struct {
	PageBytes    int     `json:"page_bytes"`
	TTFBMs       int64   `json:"ttfb_ms"`
	LoadMs       int64   `json:"load_ms"`
	Compressed   bool    `json:"compressed"`
	CacheControl string  `json:"cache_control"`
	Scripts      int     `json:"scripts"`
	Stylesheets  int     `json:"stylesheets"`
	LoadSeconds  float64 `json:"load_seconds"`
}

func (u *PerformanceUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	sig := ExtractSignals(doc)

	data := performanceData{
		PageBytes:    len(page.Body),
		TTFBMs:       page.TTFB.Milliseconds(),
		LoadMs:       page.Duration.Milliseconds(),
		Compressed:   page.Compressed,
		CacheControl: page.Header.Get("Cache-Control"),
		Scripts:      sig.ScriptCount,
		Stylesheets:  sig.StylesheetCount,
		LoadSeconds:  page.Duration.Seconds(),
	}

	b := newResultBuilder(u.Category(), actx.Industry)

	if page.Duration > slowLoad {
		over := (page.Duration - slowLoad).Seconds()
		b.issue(25, domain.SeverityCritical, domain.DifficultyHard, lossPerSlowSecond*(1+over),
			"Homepage loads slowly",
			fmt.Sprintf("The homepage took %.1fs to download; visitors abandon pages slower than 3s.", page.Duration.Seconds()),
			"Serve the page from a CDN, trim render-blocking resources and cache server responses.",
			"1-2 weeks")
	}
	if page.TTFB > slowTTFB {
		b.issue(15, domain.SeverityHigh, domain.DifficultyMedium, lossPerSlowSecond*page.TTFB.Seconds(),
			"Slow server response time",
			fmt.Sprintf("Time to first byte is %dms.", page.TTFB.Milliseconds()),
			"Add full-page caching or move to a faster origin.",
			"2-3 days")
	}
	switch {
	case len(page.Body) > heavyPageBytes:
		b.issue(15, domain.SeverityHigh, domain.DifficultyMedium, 0.05,
			"Homepage HTML is very heavy",
			fmt.Sprintf("The HTML document alone is %d KB.", len(page.Body)/1024),
			"Remove inlined assets and lazy-load below-the-fold sections.",
			"3-5 days")
	case len(page.Body) > largePageBytes:
		b.issue(8, domain.SeverityMedium, domain.DifficultyMedium, 0.02,
			"Homepage HTML is large",
			fmt.Sprintf("The HTML document is %d KB.", len(page.Body)/1024),
			"Move inline scripts and styles into cached files.",
			"1-2 days")
	}
	if !page.Compressed {
		b.issue(10, domain.SeverityMedium, domain.DifficultyEasy, 0.02,
			"Responses are not compressed",
			"The server did not apply gzip or brotli compression.",
			"Enable gzip or brotli on the web server or CDN.",
			"1 hour")
		b.quickWin(0.02, "Turn on compression", "No Content-Encoding", "gzip or brotli enabled", "1 hour",
			"Enable compression in the web server or CDN settings",
			"Verify the Content-Encoding response header")
	}
	if data.CacheControl == "" {
		b.issue(5, domain.SeverityLow, domain.DifficultyEasy, 0.005,
			"No cache policy on the homepage",
			"The response has no Cache-Control header.",
			"Set Cache-Control with a short max-age and stale-while-revalidate.",
			"1 hour")
	}
	if sig.ScriptCount > manyScripts {
		b.issue(10, domain.SeverityMedium, domain.DifficultyMedium, 0.03,
			"Too many external scripts",
			fmt.Sprintf("The homepage loads %d external scripts.", sig.ScriptCount),
			"Audit third-party tags and defer the rest.",
			"2-3 days")
		b.quickWin(0.03, "Defer non-critical scripts",
			fmt.Sprintf("%d blocking scripts", sig.ScriptCount), "async or defer on third-party tags", "2 hours",
			"List every third-party script", "Remove unused tags", "Add defer to the remaining ones")
	}

	return b.build(data)
}
