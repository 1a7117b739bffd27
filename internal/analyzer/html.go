package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	priceRe = regexp.MustCompile(`(?i)([$€£]\s?\d[\d,]*(\.\d{2})?)|(\d[\d,]*(\.\d{2})?\s?(usd|eur|gbp))|(/\s?(mo|month|yr|year)\b)`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

func parseDocument(p *Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// Signals are the structural facts shared by several units and by the
// competitor comparison.
type Signals struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	H1Count         int      `json:"h1_count"`
	HasCanonical    bool     `json:"has_canonical"`
	HasViewport     bool     `json:"has_viewport"`
	Images          int      `json:"images"`
	ImagesWithAlt   int      `json:"images_with_alt"`
	FormCount       int      `json:"form_count"`
	MaxFormFields   int      `json:"max_form_fields"`
	HasEmailCapture bool     `json:"has_email_capture"`
	HasPhone        bool     `json:"has_phone"`
	CTACount        int      `json:"cta_count"`
	PricingLinks    []string `json:"pricing_links,omitempty"`
	PriceVisible    bool     `json:"price_visible"`
	JSONLDTypes     []string `json:"jsonld_types,omitempty"`
	HasFAQSchema    bool     `json:"has_faq_schema"`
	ScriptCount     int      `json:"script_count"`
	StylesheetCount int      `json:"stylesheet_count"`
}

var ctaWords = []string{"get started", "sign up", "start free", "free trial", "book a demo", "request a demo", "contact us", "buy now", "try it free", "get a quote"}

// ExtractSignals reads Signals from a parsed document.
func ExtractSignals(doc *goquery.Document) Signals {
	var s Signals

	s.Title = strings.TrimSpace(doc.Find("title").First().Text())
	s.MetaDescription, _ = doc.Find(`meta[name="description"]`).Attr("content")
	s.MetaDescription = strings.TrimSpace(s.MetaDescription)
	s.H1Count = doc.Find("h1").Length()
	s.HasCanonical = doc.Find(`link[rel="canonical"]`).Length() > 0
	s.HasViewport = doc.Find(`meta[name="viewport"]`).Length() > 0

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		s.Images++
		if alt, ok := img.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			s.ImagesWithAlt++
		}
	})

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		s.FormCount++
		fields := form.Find(`input:not([type="hidden"]):not([type="submit"]):not([type="button"]), select, textarea`).Length()
		s.MaxFormFields = max(s.MaxFormFields, fields)
	})
	s.HasEmailCapture = doc.Find(`input[type="email"], input[name*="email"]`).Length() > 0

	doc.Find("a, button").Each(func(_ int, el *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(el.Text()))
		for _, w := range ctaWords {
			if strings.Contains(text, w) {
				s.CTACount++
				break
			}
		}
		if href, ok := el.Attr("href"); ok {
			lh := strings.ToLower(href)
			if strings.Contains(lh, "pricing") || strings.Contains(lh, "/plans") {
				s.PricingLinks = append(s.PricingLinks, href)
			}
			if strings.HasPrefix(lh, "tel:") {
				s.HasPhone = true
			}
		}
	})

	bodyText := doc.Find("body").Text()
	s.PriceVisible = priceRe.MatchString(bodyText)
	if !s.HasPhone {
		s.HasPhone = phoneRe.MatchString(bodyText)
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sc *goquery.Selection) {
		for _, t := range jsonLDTypes(sc.Text()) {
			s.JSONLDTypes = append(s.JSONLDTypes, t)
			if t == "FAQPage" {
				s.HasFAQSchema = true
			}
		}
	})

	s.ScriptCount = doc.Find("script[src]").Length()
	s.StylesheetCount = doc.Find(`link[rel="stylesheet"]`).Length()
	return s
}

// jsonLDTypes returns the @type values of a JSON-LD block, including those in
// an @graph. Invalid JSON yields nothing.
func jsonLDTypes(raw string) []string {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case []any:
			for _, item := range n {
				walk(item)
			}
		case map[string]any:
			switch t := n["@type"].(type) {
			case string:
				out = append(out, t)
			case []any:
				for _, x := range t {
					if s, ok := x.(string); ok {
						out = append(out, s)
					}
				}
			}
			if g, ok := n["@graph"]; ok {
				walk(g)
			}
		}
	}
	walk(v)
	return out
}
