// Package conversation answers follow-up questions about a finished
// analysis.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
)

// ReportSource resolves a report id. *orchestrator.Orchestrator satisfies it.
type ReportSource interface {
	Report(ctx context.Context, id string) (*domain.AnalysisReport, error)
}

// Responder generates the answer. *nlp.Router satisfies it.
type Responder interface {
	Respond(ctx context.Context, query string, report *domain.AnalysisReport, rc nlp.RequestContext) nlp.Response
}

// IntentRecorder counts classified intents.
type IntentRecorder interface {
	RecordIntent(intent string)
}

// Request is one follow-up question.
type Request struct {
	Query          string `json:"query"`
	ReportID       string `json:"report_id"`
	Identity       string `json:"identity,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Response is the answer to a follow-up. When NotAnalyzed or NotFound is
// set, Error carries the structured reason and no tier was invoked.
type Response struct {
	Text             string               `json:"text"`
	Intent           domain.Intent        `json:"intent"`
	Tier             string               `json:"tier,omitempty"`
	AnalysisID       string               `json:"analysis_id,omitempty"`
	ReferencedIssues []string             `json:"referenced_issues,omitempty"`
	Fallbacks        []nlp.Fallback       `json:"fallbacks,omitempty"`
	NotAnalyzed      bool                 `json:"not_analyzed,omitempty"`
	NotFound         bool                 `json:"not_found,omitempty"`
	Error            *domain.ErrorPayload `json:"error,omitempty"`
}

// Event converts the response into its wire envelope.
func (r Response) Event() domain.Event {
	if r.Error != nil {
		return domain.NewErrorEvent(r.Error.Code, r.Error.Message, r.Error.Details)
	}
	return domain.NewEvent(domain.EventTypeChat, domain.ChatPayload{
		Message:          r.Text,
		Intent:           r.Intent,
		Tier:             r.Tier,
		AnalysisID:       r.AnalysisID,
		ReferencedIssues: r.ReferencedIssues,
	})
}

// Handler classifies follow-ups, slices the referenced report and delegates
// generation to a Responder.
type Handler struct {
	reports    ReportSource
	responder  Responder
	classifier *IntentClassifier
	publisher  sse.Publisher
	recorder   IntentRecorder
	logger     infralogger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithClassifier replaces the default intent rules.
func WithClassifier(c *IntentClassifier) Option {
	return func(h *Handler) {
		h.classifier = c
	}
}

// WithEventPublisher publishes typing and chat events for requests that
// carry a conversation id.
func WithEventPublisher(p sse.Publisher) Option {
	return func(h *Handler) {
		h.publisher = p
	}
}

// WithIntentRecorder counts classified intents.
func WithIntentRecorder(r IntentRecorder) Option {
	return func(h *Handler) {
		h.recorder = r
	}
}

// NewHandler creates a Handler.
func NewHandler(reports ReportSource, responder Responder, log infralogger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = infralogger.NewNop()
	}
	h := &Handler{
		reports:   reports,
		responder: responder,
		logger:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.classifier == nil {
		h.classifier = defaultClassifier
	}
	return h
}

// HandleFollowUp answers query about the report reportID.
func (h *Handler) HandleFollowUp(ctx context.Context, query, reportID, identity string) Response {
	return h.Handle(ctx, Request{Query: query, ReportID: reportID, Identity: identity})
}

// Handle answers req. It never returns an error: an unknown or unfinished
// report yields a structured response instead.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	intent := h.classifier.Classify(req.Query)
	if h.recorder != nil {
		h.recorder.RecordIntent(string(intent))
	}

	report, resp, ok := h.resolve(ctx, req, intent)
	if !ok {
		h.publish(ctx, req.ConversationID, resp.Event())
		return resp
	}

	h.publish(ctx, req.ConversationID, domain.NewEvent(domain.EventTypeTyping, domain.TypingPayload{IsTyping: true}))

	out := h.responder.Respond(ctx, req.Query, report, nlp.RequestContext{
		Identity: req.Identity,
		Intent:   intent,
		Slice:    sliceReport(report, intent),
	})
	resp = Response{
		Text:             out.Text,
		Intent:           intent,
		Tier:             out.Tier,
		AnalysisID:       report.ID,
		ReferencedIssues: out.ReferencedIssues,
		Fallbacks:        out.Fallbacks,
	}

	h.logger.Info("Follow-up answered",
		infralogger.String("analysis_id", report.ID),
		infralogger.String("intent", string(intent)),
		infralogger.String("tier", out.Tier),
		infralogger.Int("fallbacks", len(out.Fallbacks)),
	)
	h.publish(ctx, req.ConversationID, resp.Event())
	return resp
}

// resolve loads the report. ok is false when resp already holds the answer.
func (h *Handler) resolve(ctx context.Context, req Request, intent domain.Intent) (*domain.AnalysisReport, Response, bool) {
	if strings.TrimSpace(req.ReportID) == "" {
		return nil, notAnalyzed(intent, "", "I haven't analyzed a website in this conversation yet. Share a domain and I'll start.", nil), false
	}

	report, err := h.reports.Report(ctx, req.ReportID)
	switch {
	case err == nil && report != nil:
	case err == nil, errors.Is(err, orchestrator.ErrRunNotFound), errors.Is(err, domain.ErrReportNotFound):
		return nil, Response{
			Intent:   intent,
			Text:     "I couldn't find that analysis. It may have expired; run a new one and ask again.",
			NotFound: true,
			Error: &domain.ErrorPayload{
				Code:    domain.ErrorCodeReportNotFound,
				Message: fmt.Sprintf("no analysis report with id %s", req.ReportID),
			},
		}, false
	default:
		h.logger.Warn("Report lookup failed",
			infralogger.String("analysis_id", req.ReportID),
			infralogger.Error(err),
		)
		return nil, Response{
			Intent: intent,
			Text:   "I couldn't load that analysis right now. Please try again in a moment.",
			Error: &domain.ErrorPayload{
				Code:    domain.ErrorCodeInternal,
				Message: "analysis report is temporarily unavailable",
			},
		}, false
	}

	switch report.Status {
	case domain.ReportStatusCompleted, domain.ReportStatusPartial:
		return report, Response{}, true
	case domain.ReportStatusFailed:
		return nil, notAnalyzed(intent, report.ID,
			fmt.Sprintf("The analysis of %s failed, so I have nothing to answer from. Try running it again.", report.Domain),
			map[string]any{"status": report.Status}), false
	default:
		return nil, notAnalyzed(intent, report.ID,
			fmt.Sprintf("I'm still analyzing %s. Ask again once the analysis finishes.", report.Domain),
			map[string]any{"status": report.Status}), false
	}
}

func notAnalyzed(intent domain.Intent, analysisID, text string, details any) Response {
	return Response{
		Text:        text,
		Intent:      intent,
		AnalysisID:  analysisID,
		NotAnalyzed: true,
		Error: &domain.ErrorPayload{
			Code:    domain.ErrorCodeNotAnalyzed,
			Message: text,
			Details: details,
		},
	}
}

func (h *Handler) publish(ctx context.Context, conversationID string, ev domain.Event) {
	if h.publisher == nil || conversationID == "" {
		return
	}
	err := h.publisher.Publish(ctx, sse.Event{
		Type:  string(ev.Type),
		Topic: conversationID,
		Data:  ev,
	})
	if err != nil {
		h.logger.Debug("Conversation event dropped",
			infralogger.String("conversation_id", conversationID),
			infralogger.String("type", string(ev.Type)),
			infralogger.Error(err),
		)
	}
}
