package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// ReportSink receives every terminal report exactly once.
type ReportSink interface {
	SaveReport(ctx context.Context, report *domain.AnalysisReport) error
}

// ReportStore resolves reports that are no longer held in memory. It returns
// an error wrapping domain.ErrReportNotFound for unknown ids.
type ReportStore interface {
	GetReport(ctx context.Context, id string) (*domain.AnalysisReport, error)
}

// Telemetry receives run and unit measurements.
type Telemetry interface {
	RecordRunStarted(ctx context.Context)
	RecordRunFinished(ctx context.Context, status string, duration time.Duration)
	RecordUnit(ctx context.Context, unit, status string, duration time.Duration)
	RecordProgressEvent()
	RecordSinkFailure(sink string)
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

type namedSink struct {
	name string
	sink ReportSink
}

type nopTelemetry struct{}

func (nopTelemetry) RecordRunStarted(context.Context)                          {}
func (nopTelemetry) RecordRunFinished(context.Context, string, time.Duration)  {}
func (nopTelemetry) RecordUnit(context.Context, string, string, time.Duration) {}
func (nopTelemetry) RecordProgressEvent()                                      {}
func (nopTelemetry) RecordSinkFailure(string)                                  {}
func (nopTelemetry) StartSpan(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}
