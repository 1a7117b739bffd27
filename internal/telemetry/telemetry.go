// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for
// the growth-copilot service.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "growth-copilot"

// Metrics holds all service Prometheus metrics
type Metrics struct {
	// Run metrics
	RunsStarted    prometheus.Counter
	RunsFinished   *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	RunsInFlight   prometheus.Gauge
	UnitDuration   *prometheus.HistogramVec
	ProgressEvents prometheus.Counter

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Conversation metrics
	NLPResponses    *prometheus.CounterVec
	NLPTierFailures *prometheus.CounterVec
	Intents         *prometheus.CounterVec

	// Sink metrics
	SinkFailures *prometheus.CounterVec
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider registers the metrics on the default registry. Call it once
// per process.
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initRunMetrics(m)
	initCacheMetrics(m)
	initConversationMetrics(m)
	return m
}

func initRunMetrics(m *Metrics) {
	m.RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "growth_copilot_runs_started_total",
		Help: "Total analysis runs started",
	})

	m.RunsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_copilot_runs_finished_total",
		Help: "Total analysis runs finished, by terminal status",
	}, []string{"status"})

	m.RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "growth_copilot_run_duration_seconds",
		Help:    "Wall time of one analysis run",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	})

	m.RunsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "growth_copilot_runs_in_flight",
		Help: "Analysis runs currently executing",
	})

	m.UnitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "growth_copilot_unit_duration_seconds",
		Help:    "Time for one analyzer unit invocation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"unit", "status"})

	m.ProgressEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "growth_copilot_progress_events_total",
		Help: "Total progress events emitted",
	})

	m.SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_copilot_report_sink_failures_total",
		Help: "Terminal report hand-offs that failed, by sink",
	}, []string{"sink"})
}

func initCacheMetrics(m *Metrics) {
	m.CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_copilot_cache_lookups_total",
		Help: "Competitor cache lookups by outcome (hit, miss, error)",
	}, []string{"outcome"})
}

func initConversationMetrics(m *Metrics) {
	m.NLPResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_copilot_nlp_responses_total",
		Help: "Follow-up responses by the tier that produced them",
	}, []string{"tier"})

	m.NLPTierFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_copilot_nlp_tier_failures_total",
		Help: "Tier attempts that failed and fell through",
	}, []string{"tier", "reason"})

	m.Intents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_copilot_intents_total",
		Help: "Follow-up queries by classified intent",
	}, []string{"intent"})
}

// RecordRunStarted increments the run counters.
func (p *Provider) RecordRunStarted(ctx context.Context) {
	p.Metrics.RunsStarted.Inc()
	p.Metrics.RunsInFlight.Inc()
}

// RecordRunFinished records the terminal status and duration of a run.
func (p *Provider) RecordRunFinished(ctx context.Context, status string, duration time.Duration) {
	p.Metrics.RunsInFlight.Dec()
	p.Metrics.RunsFinished.WithLabelValues(status).Inc()
	p.Metrics.RunDuration.Observe(duration.Seconds())
}

// RecordUnit records one analyzer unit invocation.
func (p *Provider) RecordUnit(ctx context.Context, unit, status string, duration time.Duration) {
	p.Metrics.UnitDuration.WithLabelValues(unit, status).Observe(duration.Seconds())
}

// RecordProgressEvent counts an emitted progress event.
func (p *Provider) RecordProgressEvent() {
	p.Metrics.ProgressEvents.Inc()
}

// RecordSinkFailure counts a failed report hand-off.
func (p *Provider) RecordSinkFailure(sink string) {
	p.Metrics.SinkFailures.WithLabelValues(sink).Inc()
}

// RecordCacheLookup implements cache.Recorder.
func (p *Provider) RecordCacheLookup(outcome string) {
	p.Metrics.CacheLookups.WithLabelValues(outcome).Inc()
}

// RecordNLPResponse records which tier answered.
func (p *Provider) RecordNLPResponse(tier string) {
	p.Metrics.NLPResponses.WithLabelValues(tier).Inc()
}

// RecordNLPTierFailure records a tier that fell through.
func (p *Provider) RecordNLPTierFailure(tier, reason string) {
	p.Metrics.NLPTierFailures.WithLabelValues(tier, reason).Inc()
}

// RecordIntent counts a classified follow-up intent.
func (p *Provider) RecordIntent(intent string) {
	label := intent
	if label == "" {
		label = "unknown"
	}
	p.Metrics.Intents.WithLabelValues(label).Inc()
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
