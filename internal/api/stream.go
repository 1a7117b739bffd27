package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/sse"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/orchestrator"
)

const lastEventIDHeader = "Last-Event-ID"

// StreamProgress handles GET /api/v1/analyses/:id/progress. The stream
// starts at the run's current position, or after Last-Event-ID when the
// client is resuming, and ends after the terminal event.
func (h *Handler) StreamProgress(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	var (
		events <-chan domain.ProgressEvent
		err    error
	)
	if raw := c.GetHeader(lastEventIDHeader); raw != "" {
		after, convErr := strconv.Atoi(raw)
		if convErr != nil || after < 0 {
			c.JSON(http.StatusBadRequest, errorBody(domain.ErrorCodeInvalidRequest, "Last-Event-ID must be a sequence number"))
			return
		}
		events, err = h.orchestrator.SubscribeAfter(ctx, id, after)
	} else {
		events, err = h.orchestrator.Subscribe(ctx, id)
	}
	if err != nil {
		if errors.Is(err, orchestrator.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, errorBody(domain.ErrorCodeRunNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sse.SetSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for ev := range events {
		err = sse.WriteEventDirect(c.Writer, sse.Event{
			Type: string(domain.EventTypeAnalysisUpdate),
			Data: domain.NewAnalysisUpdate(ev),
			ID:   strconv.Itoa(ev.Sequence),
		})
		if err != nil {
			h.requestLogger(c).Debug("Progress stream closed by client",
				infralogger.String("analysis_id", id),
				infralogger.Error(err),
			)
			return
		}
	}
}

// ConversationEvents handles GET /api/v1/conversations/:id/events.
func (h *Handler) ConversationEvents(c *gin.Context) {
	if h.broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event streaming is not configured"})
		return
	}
	sse.Handler(h.broker, h.logger, sse.WithTopicFilter(c.Param("id")))(c)
}
