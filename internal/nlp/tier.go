// Package nlp answers follow-up questions about an analysis through an
// ordered chain of tiers that always ends in a template tier that cannot
// fail.
package nlp

import (
	"context"
	"errors"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// Tier levels in priority order.
const (
	LevelEnhanced = "enhanced"
	LevelStandard = "standard"
	LevelTemplate = "template"
)

var (
	// ErrTierUnavailable is returned by constructors when a tier cannot be
	// built, typically for a missing API key.
	ErrTierUnavailable = errors.New("nlp tier unavailable")
	// ErrEmptyResponse is returned when a tier produced no text.
	ErrEmptyResponse = errors.New("nlp tier returned an empty response")
	// ErrRateLimited is returned when a tier's rate limit is exhausted.
	ErrRateLimited = errors.New("nlp tier rate limited")
)

// Slice is the part of a report relevant to one query.
type Slice struct {
	Category  string            `json:"category,omitempty"`
	Issues    []domain.Issue    `json:"issues"`
	QuickWins []domain.QuickWin `json:"quick_wins"`
	Scores    map[string]int    `json:"scores,omitempty"`
}

// Prompt is everything a tier may use to answer. Report is the full report
// for context and must be treated as read-only.
type Prompt struct {
	Query  string
	Intent domain.Intent
	Slice  Slice
	Report *domain.AnalysisReport
}

// Tier produces an answer. Implementations must be safe for concurrent use
// and keep no per-request state between calls.
type Tier interface {
	Name() string
	Respond(ctx context.Context, p Prompt) (string, error)
}

// RequestContext carries per-call routing inputs.
type RequestContext struct {
	Identity string
	Intent   domain.Intent
	Slice    Slice
}

// Response is the router's answer. Tier names the tier that produced Text.
type Response struct {
	Text             string        `json:"text"`
	Tier             string        `json:"tier"`
	Intent           domain.Intent `json:"intent"`
	ReferencedIssues []string      `json:"referenced_issues,omitempty"`
	Fallbacks        []Fallback    `json:"fallbacks,omitempty"`
}

// Fallback records a tier that was skipped or failed.
type Fallback struct {
	Tier   string `json:"tier"`
	Reason string `json:"reason"`
}
