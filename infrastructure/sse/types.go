// Package sse provides Server-Sent Events fan-out for live analysis and
// conversation updates.
package sse

import (
	"context"
)

// Event is one message on the stream.
// Format: event: <Type>\ndata: <JSON of Data>\n\n
type Event struct {
	// Type is the SSE event name (e.g. "analysis_update", "chat").
	Type string `json:"type"`
	// Topic routes the event to subscribers filtering on it, typically a
	// conversation id. It is not written to the wire.
	Topic string `json:"-"`
	// Data is the JSON payload.
	Data any `json:"data"`
	// ID is an optional event id for client-side resume.
	ID string `json:"id,omitempty"`
	// Retry tells the client how long to wait before reconnecting (ms).
	Retry int `json:"retry,omitempty"`
}

// Publisher sends events to the broker.
type Publisher interface {
	// Publish queues an event for every matching client. It fails when the
	// publish buffer is full or ctx is done.
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the broker.
type Subscriber interface {
	// Subscribe returns a channel closed when the subscription ends.
	Subscribe(ctx context.Context, opts ...ClientOption) (<-chan Event, func())
}

// Broker manages SSE connections and event distribution.
type Broker interface {
	Publisher
	Subscriber
	Start(ctx context.Context) error
	Stop() error
	ClientCount() int
}

// EventFilter reports whether a client should receive event.
type EventFilter func(event Event) bool

// ClientOptions configures a single subscription.
type ClientOptions struct {
	// Topic restricts the subscription to events published for it. Empty
	// means every topic.
	Topic      string
	Filter     EventFilter
	BufferSize int
}

// EventTypeConnection is the first event written on every stream.
const EventTypeConnection = "connection"
