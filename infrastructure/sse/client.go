package sse

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

var clientSeq atomic.Int64

// client is one subscription. close and send share a mutex so an event is
// never sent on a closed channel.
type client struct {
	id     string
	topic  string
	filter EventFilter
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func newClient(ctx context.Context, opts ClientOptions) *client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &client{
		id:     "sse-client-" + strconv.FormatInt(clientSeq.Add(1), 10),
		topic:  opts.Topic,
		filter: opts.Filter,
		events: make(chan Event, opts.BufferSize),
		ctx:    clientCtx,
		cancel: cancel,
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.events)
}

// send returns false only when the buffer is full. Events the filter rejects
// and events for a closed client count as delivered.
func (c *client) send(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || (c.filter != nil && !c.filter(event)) {
		return true
	}
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}
