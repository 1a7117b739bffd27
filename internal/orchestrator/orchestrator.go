// Package orchestrator runs every registered analyzer unit against a domain
// concurrently, tolerates partial failure, and streams ordered progress.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/cache"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
)

var (
	// ErrRunNotFound is returned for an id with no run or stored report.
	ErrRunNotFound = errors.New("analysis run not found")
	// ErrRunFinished is returned when cancelling a run that already ended.
	ErrRunFinished = errors.New("analysis run already finished")
	// ErrTooManyRuns is returned when MaxConcurrentRuns are in flight.
	ErrTooManyRuns = errors.New("too many concurrent analysis runs")
	// ErrInvalidDomain is returned for a request whose domain is not a host.
	ErrInvalidDomain = domain.ErrInvalidDomain
)

// Orchestrator owns analysis runs from submission until they are terminal.
type Orchestrator struct {
	cfg       Config
	registry  *analyzer.Registry
	fetcher   *analyzer.PageFetcher
	loader    *cache.Loader
	gate      *features.Gate
	sinks     []namedSink
	store     ReportStore
	events    sse.Publisher
	telemetry Telemetry
	logger    infralogger.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.RWMutex
	runs  map[string]*run
	slots chan struct{}

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache enables cache-then-compute for unit results.
func WithCache(loader *cache.Loader) Option {
	return func(o *Orchestrator) { o.loader = loader }
}

// WithFeatureGate sets the gate consulted for deep analysis.
func WithFeatureGate(gate *features.Gate) Option {
	return func(o *Orchestrator) { o.gate = gate }
}

// WithReportSink adds a collaborator that receives terminal reports.
func WithReportSink(name string, sink ReportSink) Option {
	return func(o *Orchestrator) { o.sinks = append(o.sinks, namedSink{name: name, sink: sink}) }
}

// WithReportStore sets the fallback for reports evicted from memory.
func WithReportStore(store ReportStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithEventPublisher forwards progress as analysis_update events to the
// request's conversation.
func WithEventPublisher(p sse.Publisher) Option {
	return func(o *Orchestrator) { o.events = p }
}

// WithTelemetry sets the metrics and tracing hooks.
func WithTelemetry(t Telemetry) Option {
	return func(o *Orchestrator) { o.telemetry = t }
}

// WithClock overrides time.Now for report timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides report id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// New creates an Orchestrator. Close must be called to stop submitted runs.
func New(cfg Config, registry *analyzer.Registry, fetcher *analyzer.PageFetcher, log infralogger.Logger, opts ...Option) *Orchestrator {
	cfg.SetDefaults()
	if log == nil {
		log = infralogger.NewNop()
	}

	base, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		fetcher:   fetcher,
		telemetry: nopTelemetry{},
		logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
		runs:      make(map[string]*run),
		slots:     make(chan struct{}, cfg.MaxConcurrentRuns),
		baseCtx:   base,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit starts a run in the background and returns the analyzing report.
// The run is not bound to ctx; use Cancel to stop it.
func (o *Orchestrator) Submit(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisReport, error) {
	r, err := o.begin(req)
	if err != nil {
		return nil, err
	}

	runCtx := infralogger.WithContext(o.baseCtx, infralogger.FromContext(ctx))
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(runCtx, r)
	}()

	return r.snapshot(), nil
}

// RunAnalysis runs synchronously and returns the terminal report. Cancelling
// ctx cancels the run; the report is still returned.
func (o *Orchestrator) RunAnalysis(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisReport, error) {
	r, err := o.begin(req)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, r), nil
}

// Cancel stops an in-flight run. Results already captured are kept.
func (o *Orchestrator) Cancel(id string) error {
	r, ok := o.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if _, done := r.finished(); done {
		return fmt.Errorf("%w: %s", ErrRunFinished, id)
	}

	r.requestCancel()
	o.logger.Info("Analysis cancellation requested", infralogger.String("analysis_id", id))
	return nil
}

// Report returns a read-only copy of the report with id, from memory or
// from the report store.
func (o *Orchestrator) Report(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	if r, ok := o.lookup(id); ok {
		return r.snapshot(), nil
	}
	if o.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	report, err := o.store.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	return report, nil
}

// Progress returns every event emitted so far for a run.
func (o *Orchestrator) Progress(id string) ([]domain.ProgressEvent, error) {
	r, ok := o.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	events, _, _ := r.progress.since(0)
	return events, nil
}

// Subscribe streams a run's progress starting at its most recent event. The
// channel closes after the terminal event or when ctx is done; subscribing
// again resumes from the then-current position.
func (o *Orchestrator) Subscribe(ctx context.Context, id string) (<-chan domain.ProgressEvent, error) {
	r, ok := o.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	after := 0
	if last, has := r.progress.last(); has {
		after = last.Sequence - 1
	}
	return r.progress.stream(ctx, after), nil
}

// SubscribeAfter streams the events whose sequence number is greater than
// after. It lets a client resume from the last event it saw.
func (o *Orchestrator) SubscribeAfter(ctx context.Context, id string, after int) (<-chan domain.ProgressEvent, error) {
	r, ok := o.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r.progress.stream(ctx, after), nil
}

// Units lists the registered unit names.
func (o *Orchestrator) Units() []string {
	return o.registry.Names()
}

// Close cancels every submitted run and waits for them to finish.
func (o *Orchestrator) Close() {
	o.stop()
	o.wg.Wait()
}

func (o *Orchestrator) lookup(id string) (*run, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.runs[id]
	return r, ok
}

// begin validates the request, reserves a slot and registers the run in
// analyzing state.
func (o *Orchestrator) begin(req domain.AnalysisRequest) (*run, error) {
	host, err := domain.NormalizeDomain(req.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, req.Domain)
	}
	req.Domain = host
	req.Competitors = o.normalizeCompetitors(host, req.Competitors)

	select {
	case o.slots <- struct{}{}:
	default:
		return nil, ErrTooManyRuns
	}

	r := newRun(o.newID(), req, o.now().UTC())

	o.mu.Lock()
	o.evictExpiredLocked()
	o.runs[r.id] = r
	o.mu.Unlock()

	o.emit(r, domain.ProgressEvent{Status: domain.ReportStatusPending, Message: "Analysis queued"})
	r.setStatus(domain.ReportStatusAnalyzing)
	o.emit(r, domain.ProgressEvent{
		Status:  domain.ReportStatusAnalyzing,
		Message: fmt.Sprintf("Analyzing %s with %d analyzers", host, o.registry.Len()),
	})
	return r, nil
}

func (o *Orchestrator) normalizeCompetitors(target string, raw []string) []string {
	seen := map[string]bool{target: true}
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		host, err := domain.NormalizeDomain(c)
		if err != nil {
			o.logger.Debug("Dropping invalid competitor", infralogger.String("competitor", c))
			continue
		}
		if seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, host)
	}
	return out
}

func (o *Orchestrator) evictExpiredLocked() {
	cutoff := o.now().UTC().Add(-o.cfg.ReportRetention)
	for id, r := range o.runs {
		if at, done := r.finished(); done && at.Before(cutoff) {
			delete(o.runs, id)
		}
	}
}

func (o *Orchestrator) release() {
	<-o.slots
}
