// Package api exposes analyses, progress streams and follow-up chat over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/conversation"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/database"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/nlp"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ReportHistory serves reports that have left the in-memory registry.
// *database.ReportRepository satisfies it.
type ReportHistory interface {
	ListRecent(ctx context.Context, limit int) ([]database.ReportSummary, error)
	LatestForDomain(ctx context.Context, host string) (*domain.AnalysisReport, error)
}

// Handler handles HTTP requests for the analysis API
type Handler struct {
	orchestrator  *orchestrator.Orchestrator
	conversations *conversation.Handler
	router        *nlp.Router
	gate          *features.Gate
	broker        sse.Broker
	history       ReportHistory
	logger        infralogger.Logger
}

// Deps groups the Handler collaborators. History and Broker are optional.
type Deps struct {
	Orchestrator  *orchestrator.Orchestrator
	Conversations *conversation.Handler
	Router        *nlp.Router
	Gate          *features.Gate
	Broker        sse.Broker
	History       ReportHistory
	Logger        infralogger.Logger
}

// NewHandler creates a new API handler
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Handler{
		orchestrator:  deps.Orchestrator,
		conversations: deps.Conversations,
		router:        deps.Router,
		gate:          deps.Gate,
		broker:        deps.Broker,
		history:       deps.History,
		logger:        log,
	}
}

// SubmitAnalysis handles POST /api/v1/analyses
func (h *Handler) SubmitAnalysis(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(domain.ErrorCodeInvalidRequest, err.Error()))
		return
	}

	report, err := h.orchestrator.Submit(c.Request.Context(), req.toDomain())
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrInvalidDomain):
		c.JSON(http.StatusBadRequest, errorBody(domain.ErrorCodeInvalidRequest, err.Error()))
		return
	case errors.Is(err, orchestrator.ErrTooManyRuns):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	default:
		h.requestLogger(c).Error("Failed to submit analysis",
			infralogger.String("domain", req.Domain),
			infralogger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start analysis"})
		return
	}

	c.JSON(http.StatusAccepted, report)
}

// GetAnalysis handles GET /api/v1/analyses/:id
func (h *Handler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	report, err := h.orchestrator.Report(c.Request.Context(), id)
	if err != nil {
		h.reportError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListAnalyses handles GET /api/v1/analyses. With ?domain= it returns the
// newest report for that domain instead of a listing.
func (h *Handler) ListAnalyses(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report history is not configured"})
		return
	}

	if raw := c.Query("domain"); raw != "" {
		host, err := domain.NormalizeDomain(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(domain.ErrorCodeInvalidRequest, err.Error()))
			return
		}
		report, err := h.history.LatestForDomain(c.Request.Context(), host)
		if err != nil {
			h.reportError(c, host, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorBody(domain.ErrorCodeInvalidRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	reports, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.requestLogger(c).Error("Failed to list reports", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, ListResponse{Reports: reports, Total: len(reports)})
}

// CancelAnalysis handles DELETE /api/v1/analyses/:id
func (h *Handler) CancelAnalysis(c *gin.Context) {
	id := c.Param("id")

	err := h.orchestrator.Cancel(id)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, CancelResponse{ID: id, Status: "cancelling"})
	case errors.Is(err, orchestrator.ErrRunNotFound):
		c.JSON(http.StatusNotFound, errorBody(domain.ErrorCodeRunNotFound, err.Error()))
	case errors.Is(err, orchestrator.ErrRunFinished):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Chat handles POST /api/v1/chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(domain.ErrorCodeInvalidRequest, err.Error()))
		return
	}

	resp := h.conversations.Handle(c.Request.Context(), conversation.Request{
		Query:          req.Query,
		ReportID:       req.ReportID,
		Identity:       req.Identity,
		ConversationID: req.ConversationID,
	})

	status := http.StatusOK
	switch {
	case resp.NotFound:
		status = http.StatusNotFound
	case resp.Error != nil && resp.Error.Code == domain.ErrorCodeInternal:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp.Event())
}

// NLPStatus handles GET /api/v1/nlp/status
func (h *Handler) NLPStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.router.Capabilities()})
}

// FeatureDecision handles GET /api/v1/features/:name
func (h *Handler) FeatureDecision(c *gin.Context) {
	c.JSON(http.StatusOK, h.gate.Decide(c.Param("name"), c.Query("identity")))
}

func (h *Handler) reportError(c *gin.Context, id string, err error) {
	if errors.Is(err, orchestrator.ErrRunNotFound) || errors.Is(err, domain.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, errorBody(domain.ErrorCodeReportNotFound, "no analysis report for "+id))
		return
	}
	h.requestLogger(c).Error("Failed to load report",
		infralogger.String("analysis_id", id),
		infralogger.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
}

// requestLogger prefers the request-scoped logger set by the middleware.
func (h *Handler) requestLogger(c *gin.Context) infralogger.Logger {
	if _, ok := c.Get("request_id"); ok {
		return infralogger.FromContext(c.Request.Context())
	}
	return h.logger
}
