package api

import (
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/database"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// SubmitRequest represents a request to start an analysis.
type SubmitRequest struct {
	Domain         string   `json:"domain"          binding:"required"`
	ConversationID string   `json:"conversation_id"`
	DeepAnalysis   bool     `json:"deep_analysis"`
	Industry       string   `json:"industry"`
	Competitors    []string `json:"competitors"     binding:"max=5"`
	Identity       string   `json:"identity"`
}

func (r SubmitRequest) toDomain() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Domain:         r.Domain,
		ConversationID: r.ConversationID,
		DeepAnalysis:   r.DeepAnalysis,
		Industry:       r.Industry,
		Competitors:    r.Competitors,
		Identity:       r.Identity,
	}
}

// ChatRequest represents a follow-up question.
type ChatRequest struct {
	Query          string `json:"query"           binding:"required"`
	ReportID       string `json:"report_id"`
	Identity       string `json:"identity"`
	ConversationID string `json:"conversation_id"`
}

// CancelResponse acknowledges a cancellation.
type CancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListResponse represents a list of stored reports.
type ListResponse struct {
	Reports []database.ReportSummary `json:"reports"`
	Total   int                      `json:"total"`
}

func errorBody(code, message string) domain.Event {
	return domain.NewErrorEvent(code, message, nil)
}
