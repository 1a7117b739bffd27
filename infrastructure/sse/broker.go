package sse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

// ErrBufferFull is returned by Publish when the broker cannot keep up.
var ErrBufferFull = errors.New("sse: publish buffer full")

// broker routes events by topic. Clients subscribed to a topic only see that
// topic's events; clients without a topic see every event their filter
// accepts.
type broker struct {
	logger infralogger.Logger

	mu      sync.RWMutex
	clients map[string]*client            // every client by id
	topics  map[string]map[string]*client // topic -> id -> client
	global  map[string]*client            // clients without a topic

	publish  chan Event
	cancel   context.CancelFunc
	loopDone chan struct{}
	stopOnce sync.Once

	eventBufferSize   int
	clientBufferSize  int
	heartbeatInterval time.Duration
	shutdownTimeout   time.Duration
	maxClients        int
}

// NewBroker creates a broker. Call Start before publishing.
func NewBroker(logger infralogger.Logger, opts ...BrokerOption) Broker {
	b := &broker{
		logger:            logger,
		clients:           make(map[string]*client),
		topics:            make(map[string]map[string]*client),
		global:            make(map[string]*client),
		loopDone:          make(chan struct{}),
		eventBufferSize:   DefaultEventBufferSize,
		clientBufferSize:  DefaultClientBufferSize,
		heartbeatInterval: DefaultHeartbeatInterval,
		shutdownTimeout:   DefaultShutdownTimeout,
		maxClients:        DefaultMaxClients,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.publish = make(chan Event, b.eventBufferSize)
	return b
}

// Start runs the routing loop until Stop is called or ctx is done.
func (b *broker) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go b.run(loopCtx)

	b.logger.Info("SSE broker started",
		infralogger.Int("event_buffer_size", b.eventBufferSize),
		infralogger.Int("client_buffer_size", b.clientBufferSize),
		infralogger.Int("max_clients", b.maxClients),
	)
	return nil
}

// Stop closes every client and waits up to the shutdown timeout for the loop
// to exit. It is safe to call more than once.
func (b *broker) Stop() error {
	b.stopOnce.Do(func() {
		if b.cancel == nil {
			return
		}
		b.cancel()
		select {
		case <-b.loopDone:
			b.logger.Info("SSE broker stopped")
		case <-time.After(b.shutdownTimeout):
			b.logger.Warn("SSE broker shutdown timeout exceeded")
		}
	})
	return nil
}

// Publish never blocks: a full buffer drops the event with an error.
func (b *broker) Publish(ctx context.Context, event Event) error {
	select {
	case b.publish <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish cancelled: %w", ctx.Err())
	default:
		return fmt.Errorf("%w: dropped %s", ErrBufferFull, event.Type)
	}
}

// Subscribe registers a client. When the broker is at capacity it returns an
// already closed channel. The subscription ends when ctx is done or cleanup
// is called.
func (b *broker) Subscribe(ctx context.Context, opts ...ClientOption) (events <-chan Event, cleanup func()) {
	clientOpts := ClientOptions{BufferSize: b.clientBufferSize}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	c := newClient(ctx, clientOpts)

	b.mu.Lock()
	if b.maxClients > 0 && len(b.clients) >= b.maxClients {
		count := len(b.clients)
		b.mu.Unlock()
		b.logger.Warn("Max SSE clients reached, rejecting new connection",
			infralogger.Int("max_clients", b.maxClients),
			infralogger.Int("current_clients", count),
		)
		c.close()
		return c.events, func() {}
	}
	b.addLocked(c)
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.Debug("Client subscribed",
		infralogger.String("client_id", c.id),
		infralogger.String("topic", c.topic),
		infralogger.Int("total_clients", count),
	)

	stopWatch := context.AfterFunc(c.ctx, func() { b.remove(c.id) })
	return c.events, func() {
		stopWatch()
		b.remove(c.id)
	}
}

// ClientCount returns the number of connected clients.
func (b *broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *broker) run(ctx context.Context) {
	defer close(b.loopDone)
	for {
		select {
		case event := <-b.publish:
			b.route(event)
		case <-ctx.Done():
			b.disconnectAll()
			return
		}
	}
}

// route delivers event to the topic's subscribers and to every client
// without a topic. A client whose buffer is full is disconnected rather than
// slowing the loop down.
func (b *broker) route(event Event) {
	b.mu.RLock()
	targets := make([]*client, 0, len(b.global)+len(b.topics[event.Topic]))
	for _, c := range b.global {
		targets = append(targets, c)
	}
	if event.Topic != "" {
		for _, c := range b.topics[event.Topic] {
			targets = append(targets, c)
		}
	}
	b.mu.RUnlock()

	var slow []string
	for _, c := range targets {
		if !c.send(event) {
			slow = append(slow, c.id)
		}
	}
	for _, id := range slow {
		b.logger.Warn("Client buffer full, closing slow connection",
			infralogger.String("client_id", id),
			infralogger.String("event_type", event.Type),
		)
		b.remove(id)
	}

	if len(targets) > 0 {
		b.logger.Debug("Event routed",
			infralogger.String("event_type", event.Type),
			infralogger.String("topic", event.Topic),
			infralogger.Int("targets", len(targets)),
			infralogger.Int("dropped", len(slow)),
		)
	}
}

func (b *broker) addLocked(c *client) {
	b.clients[c.id] = c
	if c.topic == "" {
		b.global[c.id] = c
		return
	}
	subs, ok := b.topics[c.topic]
	if !ok {
		subs = make(map[string]*client)
		b.topics[c.topic] = subs
	}
	subs[c.id] = c
}

// remove unregisters and closes a client. Unknown ids are ignored.
func (b *broker) remove(id string) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
		delete(b.global, id)
		if subs := b.topics[c.topic]; subs != nil {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.topics, c.topic)
			}
		}
	}
	count := len(b.clients)
	b.mu.Unlock()

	if ok {
		c.close()
		b.logger.Debug("Client disconnected",
			infralogger.String("client_id", id),
			infralogger.Int("total_clients", count),
		)
	}
}

func (b *broker) disconnectAll() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*client)
	b.topics = make(map[string]map[string]*client)
	b.global = make(map[string]*client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	b.logger.Info("All SSE clients disconnected", infralogger.Int("count", len(clients)))
}

func (b *broker) heartbeat() time.Duration {
	return b.heartbeatInterval
}
