package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/aggregator"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// run is the state of one analysis. Its report is mutated only by the
// goroutine executing the run and is frozen once terminal.
type run struct {
	id       string
	req      domain.AnalysisRequest
	progress *progressLog

	cancelled atomic.Bool

	mu         sync.RWMutex
	report     *domain.AnalysisReport
	cancel     context.CancelFunc
	finishedAt time.Time
}

func newRun(id string, req domain.AnalysisRequest, now time.Time) *run {
	return &run{
		id:       id,
		req:      req,
		progress: newProgressLog(),
		report: &domain.AnalysisReport{
			ID:                id,
			Domain:            req.Domain,
			ConversationID:    req.ConversationID,
			Industry:          req.Industry,
			Status:            domain.ReportStatusPending,
			StartedAt:         now,
			PerCategoryScores: map[string]int{},
			IssuesFound:       []domain.Issue{},
			QuickWins:         []domain.QuickWin{},
			RawResults:        map[string]*domain.AnalyzerResult{},
		},
	}
}

// identity is the rollout identity of the request.
func (r *run) identity() string {
	if r.req.Identity != "" {
		return r.req.Identity
	}
	return r.req.ConversationID
}

func (r *run) snapshot() *domain.AnalysisReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report.Clone()
}

func (r *run) setStatus(status domain.ReportStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Status = status
}

// recordResult exposes a settled unit result on the in-flight report.
func (r *run) recordResult(res *domain.AnalyzerResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.RawResults[res.AnalyzerName] = res
}

// setCancel installs the run's cancel func. A cancellation requested before
// the run started takes effect immediately.
func (r *run) setCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	if r.cancelled.Load() {
		cancel()
	}
}

func (r *run) requestCancel() {
	r.cancelled.Store(true)

	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (r *run) finish(sum aggregator.Summary, status domain.ReportStatus, now time.Time) *domain.AnalysisReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Status = status
	r.report.PerCategoryScores = sum.PerCategoryScores
	r.report.IssuesFound = sum.Issues
	r.report.QuickWins = sum.QuickWins
	r.report.TotalRevenueImpact = sum.TotalRevenueImpact
	completed := now
	r.report.CompletedAt = &completed
	r.report.DurationSeconds = now.Sub(r.report.StartedAt).Seconds()
	r.finishedAt = now
	return r.report.Clone()
}

// finished reports when the report became terminal.
func (r *run) finished() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finishedAt, !r.finishedAt.IsZero()
}
