package domain

import "time"

// EventType is the wire discriminator of Event.
type EventType string

const (
	EventTypeConnection     EventType = "connection"
	EventTypeAnalysisUpdate EventType = "analysis_update"
	EventTypeChat           EventType = "chat"
	EventTypeError          EventType = "error"
	EventTypeTyping         EventType = "typing"
)

// Event is the transport-agnostic envelope every client-facing message uses.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisUpdatePayload is the analysis_update payload. Progress is omitted
// when unknown.
type AnalysisUpdatePayload struct {
	AnalysisID string       `json:"analysis_id"`
	Status     ReportStatus `json:"status"`
	Message    string       `json:"message"`
	Progress   *int         `json:"progress,omitempty"`
}

// ErrorPayload is the error payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes carried by ErrorPayload.
const (
	ErrorCodeNotAnalyzed    = "not_analyzed"
	ErrorCodeReportNotFound = "report_not_found"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeRunNotFound    = "run_not_found"
	ErrorCodeInternal       = "internal_error"
)

// NewEvent stamps an envelope with the current UTC time.
func NewEvent(t EventType, payload any) Event {
	return Event{Type: t, Payload: payload, Timestamp: time.Now().UTC()}
}

// NewAnalysisUpdate converts a progress event into its wire form.
func NewAnalysisUpdate(e ProgressEvent) Event {
	progress := e.ProgressPercent
	return Event{
		Type: EventTypeAnalysisUpdate,
		Payload: AnalysisUpdatePayload{
			AnalysisID: e.AnalysisID,
			Status:     e.Status,
			Message:    e.Message,
			Progress:   &progress,
		},
		Timestamp: e.Timestamp,
	}
}

// NewErrorEvent builds an error envelope.
func NewErrorEvent(code, message string, details any) Event {
	return NewEvent(EventTypeError, ErrorPayload{Code: code, Message: message, Details: details})
}

// Intent is the classified purpose of a follow-up query.
type Intent string

const (
	IntentForms     Intent = "forms"
	IntentPricing   Intent = "pricing"
	IntentQuickWins Intent = "quick_wins"
	IntentAISearch  Intent = "ai_search_readiness"
	IntentGeneral   Intent = "general"
)

// ChatPayload is the chat payload.
type ChatPayload struct {
	Message          string   `json:"message"`
	Intent           Intent   `json:"intent"`
	Tier             string   `json:"tier"`
	AnalysisID       string   `json:"analysis_id,omitempty"`
	ReferencedIssues []string `json:"referenced_issues,omitempty"`
}

// TypingPayload is the typing payload.
type TypingPayload struct {
	IsTyping bool `json:"is_typing"`
}
