package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/aggregator"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/cache"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
)

const progressComplete = 100

// settled is a unit result delivered to the fan-in loop.
type settled struct {
	index  int
	result *domain.AnalyzerResult
}

// execute drives r to a terminal state. It always returns a report.
func (o *Orchestrator) execute(ctx context.Context, r *run) *domain.AnalysisReport {
	defer o.release()

	started := time.Now()
	log := o.logger.With(
		infralogger.String("analysis_id", r.id),
		infralogger.String("domain", r.req.Domain),
	)

	ctx, span := o.telemetry.StartSpan(ctx, "analysis.run",
		attribute.String("analysis_id", r.id),
		attribute.String("domain", r.req.Domain),
	)
	defer span.End()
	o.telemetry.RecordRunStarted(ctx)

	deep := r.req.DeepAnalysis && o.gate.IsEnabled(features.DeepAnalysis, r.identity())
	globalTimeout, unitTimeout := o.cfg.timeouts(deep)

	runCtx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()
	r.setCancel(cancel)

	actx := analyzer.NewAnalysisContext(runCtx, o.fetcher, r.req.Industry, r.req.Competitors)
	actx.DeepAnalysis = deep

	units := o.registry.Units()
	total := len(units)
	results := make([]*domain.AnalyzerResult, total)
	completed := 0

	// Cache lookups finish before any unit starts so units can read cached
	// competitor data from the context.
	var launch []int
	for i, u := range units {
		cached, ok := o.cachedResult(runCtx, r, u, deep)
		if !ok {
			launch = append(launch, i)
			continue
		}
		results[i] = cached
		if u.Name() == o.cfg.CompetitorUnit {
			actx.CachedCompetitors = cached.RawData
		}
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		completed++
		r.recordResult(res)
		o.emit(r, domain.ProgressEvent{
			Status:          domain.ReportStatusAnalyzing,
			Category:        res.Category,
			Message:         fmt.Sprintf("Reused cached %s results", units[i].Name()),
			ProgressPercent: percent(completed, total),
		})
	}

	log.Info("Analysis started",
		infralogger.Int("units", total),
		infralogger.Int("cached", total-len(launch)),
		infralogger.Bool("deep", deep),
		infralogger.Duration("unit_timeout", unitTimeout),
	)

	pending := make(chan settled, len(launch))
	for _, i := range launch {
		go func(i int, u analyzer.Unit) {
			pending <- settled{index: i, result: o.launchUnit(runCtx, r, u, actx, unitTimeout, log)}
		}(i, units[i])
	}

	for range launch {
		s := <-pending
		res := s.result
		results[s.index] = res
		completed++
		r.recordResult(res)
		o.writeBack(runCtx, r, units[s.index], res, deep)

		if r.cancelled.Load() {
			continue
		}
		o.emit(r, domain.ProgressEvent{
			Status:          domain.ReportStatusAnalyzing,
			Category:        res.Category,
			Message:         unitMessage(res),
			ProgressPercent: percent(completed, total),
		})
	}

	sum, status := o.aggregate(results, log)
	report := r.finish(sum, status, o.now().UTC())

	o.emit(r, o.terminalEvent(r, report, results))

	o.persist(context.WithoutCancel(ctx), report, log)

	o.telemetry.RecordRunFinished(ctx, string(status), time.Since(started))
	log.Info("Analysis finished",
		infralogger.String("status", string(status)),
		infralogger.Int("issues", len(report.IssuesFound)),
		infralogger.Float64("revenue_impact", report.TotalRevenueImpact),
		infralogger.Bool("cancelled", r.cancelled.Load()),
		infralogger.Duration("duration", time.Since(started)),
	)
	return report
}

// launchUnit runs u. With a cache configured, the competitor unit goes
// through the loader so concurrent runs for one domain and industry share a
// single computation.
func (o *Orchestrator) launchUnit(
	ctx context.Context,
	r *run,
	u analyzer.Unit,
	actx *analyzer.AnalysisContext,
	timeout time.Duration,
	log infralogger.Logger,
) *domain.AnalyzerResult {
	if o.loader == nil || u.Name() != o.cfg.CompetitorUnit {
		return o.runUnit(ctx, r, u, actx, timeout, log)
	}

	key, ttl, _ := o.cacheKey(r, u, false)
	start := time.Now()
	data, _, err := o.loader.GetOrLoad(ctx, key, ttl, func(loadCtx context.Context) ([]byte, error) {
		res := o.runUnit(loadCtx, r, u, actx, timeout, log)
		if !res.Succeeded() || res.Score == nil {
			return nil, &uncachedResult{res: res}
		}
		return json.Marshal(res)
	})

	var uncached *uncachedResult
	switch {
	case errors.As(err, &uncached):
		res := *uncached.res
		return &res
	case err != nil:
		res := o.classify(ctx, r, nil, err)
		res.AnalyzerName = u.Name()
		res.Category = u.Category()
		res.ElapsedMs = time.Since(start).Milliseconds()
		return res
	}

	var res domain.AnalyzerResult
	if err := json.Unmarshal(data, &res); err != nil {
		return &domain.AnalyzerResult{
			AnalyzerName: u.Name(),
			Category:     u.Category(),
			Status:       domain.UnitStatusFailed,
			Error:        fmt.Sprintf("decode shared result: %v", err),
		}
	}
	res.AnalyzerName = u.Name()
	if res.Category == "" {
		res.Category = u.Category()
	}
	return &res
}

// uncachedResult carries a competitor result that is shared with concurrent
// waiters but never written to the cache.
type uncachedResult struct {
	res *domain.AnalyzerResult
}

func (e *uncachedResult) Error() string {
	return fmt.Sprintf("%s result not cached", e.res.Status)
}

// runUnit invokes u under its own deadline. It returns by the deadline even
// if the unit does not, and converts panics into failed results.
func (o *Orchestrator) runUnit(
	ctx context.Context,
	r *run,
	u analyzer.Unit,
	actx *analyzer.AnalysisContext,
	timeout time.Duration,
	log infralogger.Logger,
) *domain.AnalyzerResult {
	unitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	unitCtx, span := o.telemetry.StartSpan(unitCtx, "analysis.unit", attribute.String("unit", u.Name()))
	defer span.End()

	type outcome struct {
		res *domain.AnalyzerResult
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("analyzer panicked: %v", p)}
			}
		}()
		res, err := u.Analyze(unitCtx, r.req.Domain, actx)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-unitCtx.Done():
		select {
		case out = <-done:
		default:
			out = outcome{err: unitCtx.Err()}
		}
	}

	res := o.classify(unitCtx, r, out.res, out.err)
	res.AnalyzerName = u.Name()
	if res.Category == "" {
		res.Category = u.Category()
	}
	elapsed := time.Since(start)
	res.ElapsedMs = elapsed.Milliseconds()

	o.telemetry.RecordUnit(ctx, u.Name(), string(res.Status), elapsed)
	if !res.Succeeded() {
		log.Warn("Analyzer did not succeed",
			infralogger.String("unit", u.Name()),
			infralogger.String("status", string(res.Status)),
			infralogger.String("error", res.Error),
			infralogger.Duration("elapsed", elapsed),
		)
	}
	return res
}

// classify maps a unit's return values onto a result status.
func (o *Orchestrator) classify(unitCtx context.Context, r *run, res *domain.AnalyzerResult, err error) *domain.AnalyzerResult {
	switch {
	case err == nil && res != nil:
		res.Status = domain.UnitStatusOK
		if res.Score != nil {
			res.Score = domain.Score(*res.Score)
		}
		return res
	case err == nil:
		return &domain.AnalyzerResult{Status: domain.UnitStatusFailed, Error: "analyzer returned no result"}
	case r.cancelled.Load() || errors.Is(unitCtx.Err(), context.Canceled):
		return &domain.AnalyzerResult{Status: domain.UnitStatusTimedOut, Error: "analysis cancelled"}
	case errors.Is(err, context.DeadlineExceeded) || unitCtx.Err() != nil:
		return &domain.AnalyzerResult{Status: domain.UnitStatusTimedOut, Error: "deadline exceeded"}
	default:
		return &domain.AnalyzerResult{Status: domain.UnitStatusFailed, Error: err.Error()}
	}
}

// aggregate merges results. A panic in aggregation fails the run rather than
// the process.
func (o *Orchestrator) aggregate(results []*domain.AnalyzerResult, log infralogger.Logger) (sum aggregator.Summary, status domain.ReportStatus) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("Aggregation panicked", infralogger.Any("panic", p))
			sum = aggregator.Summary{PerCategoryScores: map[string]int{}}
			status = domain.ReportStatusFailed
		}
	}()

	sum = aggregator.Aggregate(results)
	if sum.Skipped > 0 {
		log.Warn("Skipped malformed findings", infralogger.Int("skipped", sum.Skipped))
	}
	return sum, aggregator.ResolveStatus(results)
}

func (o *Orchestrator) terminalEvent(r *run, report *domain.AnalysisReport, results []*domain.AnalyzerResult) domain.ProgressEvent {
	ev := domain.ProgressEvent{Status: report.Status, Terminal: true, ProgressPercent: progressComplete}

	failed := 0
	for _, res := range results {
		if !res.Succeeded() {
			failed++
		}
	}

	switch {
	case r.cancelled.Load():
		ev.Message = "Analysis cancelled"
		ev.ProgressPercent = 0 // held at the last emitted value
	case report.Status == domain.ReportStatusFailed:
		ev.Message = "Analysis failed: no analyzer succeeded"
		ev.ProgressPercent = 0
	case report.Status == domain.ReportStatusPartial:
		ev.Message = fmt.Sprintf("Analysis complete: %d of %d analyzers did not finish", failed, len(results))
	default:
		ev.Message = fmt.Sprintf("Analysis complete: found %d issues", len(report.IssuesFound))
	}
	return ev
}

// cachedResult returns a fresh cached result for u. The competitor unit is
// keyed by domain and industry; other units by domain and are skipped for
// deep analysis.
func (o *Orchestrator) cachedResult(ctx context.Context, r *run, u analyzer.Unit, deep bool) (*domain.AnalyzerResult, bool) {
	key, _, ok := o.cacheKey(r, u, deep)
	if !ok {
		return nil, false
	}
	data, hit := o.loader.Lookup(ctx, key)
	if !hit {
		return nil, false
	}

	var res domain.AnalyzerResult
	if err := json.Unmarshal(data, &res); err != nil || !res.Succeeded() {
		o.logger.Warn("Discarding unreadable cache entry", infralogger.String("key", key))
		return nil, false
	}
	res.AnalyzerName = u.Name()
	if res.Category == "" {
		res.Category = u.Category()
	}
	return &res, true
}

// writeBack caches a successful result. The competitor unit is cached by
// launchUnit.
func (o *Orchestrator) writeBack(ctx context.Context, r *run, u analyzer.Unit, res *domain.AnalyzerResult, deep bool) {
	if !res.Succeeded() || ctx.Err() != nil || u.Name() == o.cfg.CompetitorUnit {
		return
	}
	key, ttl, ok := o.cacheKey(r, u, deep)
	if !ok {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		o.logger.Warn("Failed to encode result for cache", infralogger.String("unit", u.Name()), infralogger.Error(err))
		return
	}
	o.loader.Store(ctx, key, data, ttl)
}

func (o *Orchestrator) cacheKey(r *run, u analyzer.Unit, deep bool) (string, time.Duration, bool) {
	if o.loader == nil {
		return "", 0, false
	}
	if u.Name() == o.cfg.CompetitorUnit {
		return cache.CompetitorKey(r.req.Domain, r.req.Industry), o.cfg.CompetitorTTL, true
	}
	if o.cfg.AnalysisTTL <= 0 || deep {
		return "", 0, false
	}
	return cache.AnalysisKey(r.req.Domain, u.Name()), o.cfg.AnalysisTTL, true
}

// emit appends to the run's progress log and forwards the event to the
// request's conversation stream.
func (o *Orchestrator) emit(r *run, ev domain.ProgressEvent) {
	ev.AnalysisID = r.id
	ev.Timestamp = o.now().UTC()

	ev, ok := r.progress.append(ev)
	if !ok {
		return
	}
	o.telemetry.RecordProgressEvent()

	if o.events == nil || r.req.ConversationID == "" {
		return
	}
	err := o.events.Publish(context.Background(), sse.Event{
		Type:  string(domain.EventTypeAnalysisUpdate),
		Topic: r.req.ConversationID,
		Data:  domain.NewAnalysisUpdate(ev),
		ID:    fmt.Sprintf("%s-%d", r.id, ev.Sequence),
	})
	if err != nil {
		o.logger.Debug("Progress event not forwarded",
			infralogger.String("analysis_id", r.id),
			infralogger.Error(err),
		)
	}
}

// persist hands the terminal report to every sink. Failures are logged and
// never change the report.
func (o *Orchestrator) persist(ctx context.Context, report *domain.AnalysisReport, log infralogger.Logger) {
	for _, s := range o.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, o.cfg.SinkTimeout)
		err := s.sink.SaveReport(sinkCtx, report.Clone())
		cancel()
		if err != nil {
			o.telemetry.RecordSinkFailure(s.name)
			log.Warn("Report sink failed", infralogger.String("sink", s.name), infralogger.Error(err))
		}
	}
}

func percent(done, total int) int {
	if total == 0 {
		return progressComplete
	}
	return done * progressComplete / total
}

func unitMessage(res *domain.AnalyzerResult) string {
	switch res.Status {
	case domain.UnitStatusOK:
		return fmt.Sprintf("Finished %s analysis", res.Category)
	case domain.UnitStatusTimedOut:
		return fmt.Sprintf("%s analysis timed out", res.Category)
	default:
		return fmt.Sprintf("%s analysis failed", res.Category)
	}
}
