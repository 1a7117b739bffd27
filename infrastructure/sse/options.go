package sse

import "time"

// Default configuration values.
const (
	DefaultEventBufferSize   = 1000
	DefaultClientBufferSize  = 100
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultMaxClients        = 1000
)

// Config holds broker configuration.
type Config struct {
	EventBufferSize   int           `yaml:"event_buffer_size"   env:"SSE_EVENT_BUFFER_SIZE"`
	ClientBufferSize  int           `yaml:"client_buffer_size"  env:"SSE_CLIENT_BUFFER_SIZE"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"  env:"SSE_HEARTBEAT_INTERVAL"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SSE_SHUTDOWN_TIMEOUT"`
	// MaxClients caps concurrent subscribers. Negative means unlimited.
	MaxClients int `yaml:"max_clients" env:"SSE_MAX_CLIENTS"`
}

// DefaultConfig returns the broker defaults.
func DefaultConfig() Config {
	return Config{
		EventBufferSize:   DefaultEventBufferSize,
		ClientBufferSize:  DefaultClientBufferSize,
		HeartbeatInterval: DefaultHeartbeatInterval,
		ShutdownTimeout:   DefaultShutdownTimeout,
		MaxClients:        DefaultMaxClients,
	}
}

// BrokerOption configures a broker.
type BrokerOption func(*broker)

func WithEventBufferSize(size int) BrokerOption {
	return func(b *broker) {
		if size > 0 {
			b.eventBufferSize = size
		}
	}
}

func WithClientBufferSize(size int) BrokerOption {
	return func(b *broker) {
		if size > 0 {
			b.clientBufferSize = size
		}
	}
}

func WithMaxClients(maxClients int) BrokerOption {
	return func(b *broker) {
		b.maxClients = maxClients
	}
}

// WithConfig applies every non-zero field of cfg.
func WithConfig(cfg Config) BrokerOption {
	return func(b *broker) {
		if cfg.EventBufferSize > 0 {
			b.eventBufferSize = cfg.EventBufferSize
		}
		if cfg.ClientBufferSize > 0 {
			b.clientBufferSize = cfg.ClientBufferSize
		}
		if cfg.HeartbeatInterval > 0 {
			b.heartbeatInterval = cfg.HeartbeatInterval
		}
		if cfg.ShutdownTimeout > 0 {
			b.shutdownTimeout = cfg.ShutdownTimeout
		}
		if cfg.MaxClients != 0 {
			b.maxClients = cfg.MaxClients
		}
	}
}

// ClientOption configures a client subscription.
type ClientOption func(*ClientOptions)

func WithFilter(filter EventFilter) ClientOption {
	return func(opts *ClientOptions) {
		opts.Filter = filter
	}
}

func WithBufferSize(size int) ClientOption {
	return func(opts *ClientOptions) {
		if size > 0 {
			opts.BufferSize = size
		}
	}
}

// WithTopicFilter subscribes to the events published for topic only.
func WithTopicFilter(topic string) ClientOption {
	return func(opts *ClientOptions) {
		opts.Topic = topic
	}
}
