package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

const (
	headerContentType     = "Content-Type"
	headerCacheControl    = "Cache-Control"
	headerConnection      = "Connection"
	headerXAccelBuffering = "X-Accel-Buffering"

	sseContentType = "text/event-stream"
)

type heartbeater interface {
	heartbeat() time.Duration
}

// Handler streams broker events to the client until it disconnects or the
// broker shuts down. The first event is always a connection event.
func Handler(broker Broker, logger infralogger.Logger, opts ...ClientOption) gin.HandlerFunc {
	interval := DefaultHeartbeatInterval
	if hb, ok := broker.(heartbeater); ok {
		interval = hb.heartbeat()
	}

	return func(c *gin.Context) {
		SetSSEHeaders(c.Writer)
		c.Writer.Flush()

		eventChan, cleanup := broker.Subscribe(c.Request.Context(), opts...)
		defer cleanup()

		if !checkSubscriptionValid(eventChan, c, logger) {
			return
		}

		if err := WriteEventDirect(c.Writer, ConnectionEvent("stream connected")); err != nil {
			logger.Error("Failed to write connection event", infralogger.Error(err))
			return
		}

		logger.Debug("SSE client connected", infralogger.String("remote_addr", c.ClientIP()))

		streamEvents(c, eventChan, interval, logger)
	}
}

// ConnectionEvent builds the wire connection envelope.
func ConnectionEvent(message string) Event {
	return Event{
		Type: EventTypeConnection,
		Data: map[string]any{
			"type":      EventTypeConnection,
			"payload":   map[string]any{"message": message},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

func checkSubscriptionValid(eventChan <-chan Event, c *gin.Context, logger infralogger.Logger) bool {
	select {
	case _, ok := <-eventChan:
		if !ok {
			logger.Warn("SSE subscription rejected (max clients reached)")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many connections"})
			return false
		}
	default:
	}
	return true
}

func streamEvents(c *gin.Context, eventChan <-chan Event, interval time.Duration, logger infralogger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				logger.Debug("SSE event channel closed")
				return
			}
			if err := WriteEventDirect(c.Writer, event); err != nil {
				logger.Debug("SSE write failed (client likely disconnected)",
					infralogger.Error(err),
					infralogger.String("event_type", event.Type),
				)
				return
			}
		case <-ticker.C:
			if err := WriteHeartbeat(c.Writer); err != nil {
				logger.Debug("SSE heartbeat failed (client disconnected)")
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEventToWriter(w io.Writer, event Event) error {
	if event.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
			return fmt.Errorf("write event type: %w", err)
		}
	}
	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return fmt.Errorf("write event id: %w", err)
		}
	}
	if event.Retry > 0 {
		if _, err := fmt.Fprintf(w, "retry: %d\n", event.Retry); err != nil {
			return fmt.Errorf("write retry: %w", err)
		}
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err = fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event data: %w", err)
	}
	return nil
}

// WriteEventDirect writes one event and flushes when the writer supports it.
func WriteEventDirect(w http.ResponseWriter, event Event) error {
	if err := writeEventToWriter(w, event); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// WriteHeartbeat writes an SSE comment line to keep proxies from closing an
// idle stream.
func WriteHeartbeat(w http.ResponseWriter) error {
	if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// SetSSEHeaders sets the streaming headers for custom SSE handlers.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set(headerContentType, sseContentType)
	w.Header().Set(headerCacheControl, "no-cache")
	w.Header().Set(headerConnection, "keep-alive")
	w.Header().Set(headerXAccelBuffering, "no")
}
