package analyzer

import (
	"context"
	"fmt"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

const maxFriendlyFormFields = 5

// ConversionUnit inspects lead capture: forms, their length, calls to
// action and contact options.
type ConversionUnit struct{}

func NewConversionUnit() *ConversionUnit { return &ConversionUnit{} }

func (*ConversionUnit) Name() string     { return "conversion" }
func (*ConversionUnit) Category() string { return CategoryForms }

type conversionData struct {
	Forms         int  `json:"forms"`
	MaxFormFields int  `json:"max_form_fields"`
	EmailCapture  bool `json:"email_capture"`
	CTAs          int  `json:"ctas"`
	Phone         bool `json:"phone"`
}

func (u *ConversionUnit) Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error) {
	page, err := actx.Homepage(ctx, host)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}
	sig := ExtractSignals(doc)

	b := newResultBuilder(u.Category(), actx.Industry)

	if sig.CTACount == 0 {
		b.issue(30, domain.SeverityCritical, domain.DifficultyEasy, 0.15,
			"No clear call to action",
			"No button or link on the homepage asks visitors to sign up, start a trial or get in touch.",
			"Add one primary call to action above the fold and repeat it after key sections.",
			"1 day")
		b.quickWin(0.15, "Add a primary call to action", "No CTA above the fold", `A single "Start free trial" button in the hero`, "2 hours",
			"Pick the one action you want visitors to take",
			"Place it in the hero with a contrasting color",
			"Repeat it at the end of the page")
	}
	if sig.FormCount == 0 && !sig.HasEmailCapture {
		b.issue(20, domain.SeverityHigh, domain.DifficultyMedium, 0.08,
			"No lead capture on the homepage",
			"There is no form or email field, so visitors who are not ready to buy leave without a trace.",
			"Add a short email capture or demo request form.",
			"1-2 days")
	}
	if sig.MaxFormFields > maxFriendlyFormFields {
		extra := sig.MaxFormFields - maxFriendlyFormFields
		b.issue(10+2*extra, domain.SeverityHigh, domain.DifficultyEasy, 0.04*float64(extra),
			"Form asks for too many fields",
			fmt.Sprintf("The longest form has %d fields; every field past %d costs completions.", sig.MaxFormFields, maxFriendlyFormFields),
			"Ask only for email and name up front and collect the rest later.",
			"2-4 hours")
		b.quickWin(0.04*float64(extra), "Shorten the signup form",
			fmt.Sprintf("%d form fields", sig.MaxFormFields), fmt.Sprintf("%d or fewer fields", maxFriendlyFormFields), "2 hours",
			"Remove optional fields", "Move qualification questions after signup")
	}
	if !sig.HasPhone {
		b.issue(5, domain.SeverityLow, domain.DifficultyEasy, 0.01,
			"No phone number shown",
			"High-intent visitors cannot call.",
			"Show a click-to-call number in the header or footer.",
			"30 minutes")
	}

	return b.build(conversionData{
		Forms:         sig.FormCount,
		MaxFormFields: sig.MaxFormFields,
		EmailCapture:  sig.HasEmailCapture,
		CTAs:          sig.CTACount,
		Phone:         sig.HasPhone,
	})
}
