package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const (
	maxMobileWidthPx = 480
	minFontSizePx    = 12
)

var (
	widthRe    = regexp.MustCompile(`(?i)(?:^|;|\s)(?:min-)?width\s*:\s*(\d+)px`)
	fontSizeRe = regexp.MustCompile(`(?i)font-size\s*:\s*(\d+)px`)
)

// MobileUnit looks for markup that breaks on small screens.
type MobileUnit struct{}

func NewMobileUnit() *MobileUnit { return &MobileUnit{} }

func (*MobileUnit) Name() string     { return "mobile" }
func (*MobileUnit) Category() string { return CategoryMobile }

type mobileData struct {
	Viewport       string `json:"viewport"`
	FixedWideNodes int    `json:"fixed_wide_nodes"`
	TinyFontNodes  int    `json:"tiny_font_nodes"`
	ZoomDisabled   bool   `json:"zoom_disabled"`
}

func (u *MobileUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	var data mobileData
	data.Viewport, _ = doc.Find(`meta[name="viewport"]`).Attr("content")
	vp := strings.ToLower(strings.ReplaceAll(data.Viewport, " ", ""))
	data.ZoomDisabled = strings.Contains(vp, "user-scalable=no") || strings.Contains(vp, "maximum-scale=1")

	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		for _, m := range widthRe.FindAllStringSubmatch(style, -1) {
			if px, convErr := strconv.Atoi(m[1]); convErr == nil && px > maxMobileWidthPx {
				data.FixedWideNodes++
				break
			}
		}
		if m := fontSizeRe.FindStringSubmatch(style); m != nil {
			if px, convErr := strconv.Atoi(m[1]); convErr == nil && px < minFontSizePx {
				data.TinyFontNodes++
			}
		}
	})

	b := newResultBuilder(u.Category(), actx.Industry)

	if data.Viewport == "" {
		b.issue(40, domain.SeverityCritical, domain.DifficultyEasy, 0.12,
			"Page is not mobile responsive",
			"There is no viewport meta tag, so phones render the desktop layout zoomed out.",
			`Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
			"1 hour")
		b.quickWin(0.12, "Add a viewport meta tag", "No viewport tag", "width=device-width, initial-scale=1", "15 minutes",
			"Add the viewport tag to the shared <head> template", "Check the homepage on a phone")
	}
	if data.ZoomDisabled {
		b.issue(8, domain.SeverityMedium, domain.DifficultyEasy, 0.01,
			"Pinch zoom is disabled",
			"The viewport prevents zooming, which hurts readability and accessibility.",
			"Remove user-scalable=no and maximum-scale=1 from the viewport.",
			"15 minutes")
	}
	if data.FixedWideNodes > 0 {
		b.issue(min(20, 5*data.FixedWideNodes), domain.SeverityMedium, domain.DifficultyMedium, 0.02,
			"Fixed-width elements overflow small screens",
			fmt.Sprintf("%d elements have inline widths above %dpx.", data.FixedWideNodes, maxMobileWidthPx),
			"Use max-width: 100% or responsive units instead of fixed pixel widths.",
			"1 day")
	}
	if data.TinyFontNodes > 0 {
		b.issue(min(10, 2*data.TinyFontNodes), domain.SeverityLow, domain.DifficultyEasy, 0.005,
			"Text too small on mobile",
			fmt.Sprintf("%d elements use font sizes under %dpx.", data.TinyFontNodes, minFontSizePx),
			"Use at least 16px for body text.",
			"2 hours")
	}

	return b.build(data)
}
