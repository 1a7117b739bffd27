// Package domain holds the analysis and conversation data model shared by
// the orchestrator, aggregator, NLP router and HTTP API.
package domain

import (
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidDomain is returned by NormalizeDomain for anything that is not a
// bare host name.
var ErrInvalidDomain = errors.New("invalid domain")

// ErrReportNotFound is returned by report stores for an unknown id.
var ErrReportNotFound = errors.New("analysis report not found")

var hostLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

const maxHostLength = 253

// AnalysisRequest is immutable once submitted.
type AnalysisRequest struct {
	Domain         string   `json:"domain"`
	ConversationID string   `json:"conversation_id"`
	DeepAnalysis   bool     `json:"deep_analysis"`
	Industry       string   `json:"industry,omitempty"`    // e.g. "saas", "ecommerce"
	Competitors    []string `json:"competitors,omitempty"` // bare hosts
	Identity       string   `json:"identity,omitempty"`    // feature rollout identity
}

// NormalizeDomain strips scheme, path, port and a leading "www." and
// lowercases the rest. The result must be a dotted host name.
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return "", ErrInvalidDomain
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", ErrInvalidDomain
		}
		s = u.Host
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "www."), ".")

	if len(s) == 0 || len(s) > maxHostLength || !strings.Contains(s, ".") {
		return "", ErrInvalidDomain
	}
	if net.ParseIP(s) != nil {
		return "", ErrInvalidDomain
	}
	for _, label := range strings.Split(s, ".") {
		if !hostLabel.MatchString(label) {
			return "", ErrInvalidDomain
		}
	}
	return s, nil
}

// UnitStatus is the outcome of one analyzer invocation.
type UnitStatus string

const (
	UnitStatusOK       UnitStatus = "ok"
	UnitStatusTimedOut UnitStatus = "timed_out"
	UnitStatusFailed   UnitStatus = "failed"
)

// Severity of an issue. Rank orders them for sorting.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns 4 for critical down to 1 for low, 0 for anything unknown.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Difficulty of fixing an issue.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Issue is one detected problem.
type Issue struct {
	Category             string     `json:"category"`
	Severity             Severity   `json:"severity"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	RevenueImpactMonthly float64    `json:"revenue_impact_monthly"` // >= 0
	FixDifficulty        Difficulty `json:"fix_difficulty"`
	FixDescription       string     `json:"fix_description"`
	EstimatedFixTime     string     `json:"estimated_fix_time"`
}

// QuickWin is a cheap, high-value recommendation.
type QuickWin struct {
	Category             string   `json:"category"`
	Title                string   `json:"title"`
	CurrentState         string   `json:"current_state"`
	RecommendedState     string   `json:"recommended_state"`
	RevenueImpactMonthly float64  `json:"revenue_impact_monthly"`
	ImplementationTime   string   `json:"implementation_time"`
	ImplementationSteps  []string `json:"implementation_steps"`
}

// AnalyzerResult is produced exactly once per unit invocation.
type AnalyzerResult struct {
	AnalyzerName string          `json:"analyzer_name"`
	Category     string          `json:"category"`
	Status       UnitStatus      `json:"status"`
	Score        *int            `json:"score,omitempty"` // 0-100
	Issues       []Issue         `json:"issues"`
	QuickWins    []QuickWin      `json:"quick_wins"`
	RawData      json.RawMessage `json:"raw_data,omitempty"`
	ElapsedMs    int64           `json:"elapsed_ms"`
	Error        string          `json:"error,omitempty"`
}

// Succeeded reports whether the unit finished with status ok.
func (r *AnalyzerResult) Succeeded() bool {
	return r != nil && r.Status == UnitStatusOK
}

// Score returns a pointer to score clamped into [0,100].
func Score(score int) *int {
	switch {
	case score < 0:
		score = 0
	case score > 100:
		score = 100
	}
	return &score
}

// ReportStatus is the lifecycle state of an AnalysisReport.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusAnalyzing ReportStatus = "analyzing"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
	ReportStatusPartial   ReportStatus = "partial"
)

// Terminal reports whether the status is final.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed || s == ReportStatusPartial
}

// AnalysisReport is the aggregate root of one analysis run.
type AnalysisReport struct {
	ID                 string                     `json:"id"`
	Domain             string                     `json:"domain"`
	ConversationID     string                     `json:"conversation_id,omitempty"`
	Industry           string                     `json:"industry,omitempty"`
	Status             ReportStatus               `json:"status"`
	StartedAt          time.Time                  `json:"started_at"`
	CompletedAt        *time.Time                 `json:"completed_at,omitempty"`
	DurationSeconds    float64                    `json:"duration_seconds"`
	PerCategoryScores  map[string]int             `json:"per_category_scores"`
	TotalRevenueImpact float64                    `json:"total_revenue_impact"`
	IssuesFound        []Issue                    `json:"issues_found"`
	QuickWins          []QuickWin                 `json:"quick_wins"`
	RawResults         map[string]*AnalyzerResult `json:"raw_results"`
}

// Clone returns a deep enough copy for read-only handoff: the slices and maps
// are copied so the caller cannot observe later mutation.
func (r *AnalysisReport) Clone() *AnalysisReport {
	if r == nil {
		return nil
	}
	out := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	out.PerCategoryScores = make(map[string]int, len(r.PerCategoryScores))
	for k, v := range r.PerCategoryScores {
		out.PerCategoryScores[k] = v
	}
	out.IssuesFound = append([]Issue(nil), r.IssuesFound...)
	out.QuickWins = append([]QuickWin(nil), r.QuickWins...)
	out.RawResults = make(map[string]*AnalyzerResult, len(r.RawResults))
	for k, v := range r.RawResults {
		out.RawResults[k] = v
	}
	return &out
}

// IssuesInCategory returns the issues whose category matches, in report order.
func (r *AnalysisReport) IssuesInCategory(category string) []Issue {
	var out []Issue
	for _, issue := range r.IssuesFound {
		if issue.Category == category {
			out = append(out, issue)
		}
	}
	return out
}
