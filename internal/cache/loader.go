package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
)

// Lookup outcomes passed to a Recorder.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Recorder observes lookups, typically to export metrics.
type Recorder interface {
	RecordCacheLookup(outcome string)
}

// LoadFunc computes a value on a miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

// Loader implements cache-then-compute. A backend error is treated as a miss
// so an outage only costs a recomputation. Concurrent loads of one key within
// the process share a single computation.
type Loader struct {
	cache    Cache
	group    singleflight.Group
	logger   infralogger.Logger
	recorder Recorder
}

// NewLoader wraps c. recorder may be nil.
func NewLoader(c Cache, log infralogger.Logger, recorder Recorder) *Loader {
	return &Loader{cache: c, logger: log, recorder: recorder}
}

// Lookup returns the cached value. ok is false on a miss or a backend error.
func (l *Loader) Lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := l.cache.Get(ctx, key)
	switch {
	case err == nil:
		l.record(OutcomeHit)
		return data, true
	case errors.Is(err, ErrMiss):
		l.record(OutcomeMiss)
	default:
		l.record(OutcomeError)
		l.logger.Warn("Cache unavailable, treating as miss",
			infralogger.String("key", key),
			infralogger.Error(err),
		)
	}
	return nil, false
}

// Store writes value. Failures are logged and swallowed.
func (l *Loader) Store(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := l.cache.Put(ctx, key, value, ttl); err != nil {
		l.record(OutcomeError)
		l.logger.Warn("Cache write failed",
			infralogger.String("key", key),
			infralogger.Error(err),
		)
	}
}

// GetOrLoad returns the cached value for key, or runs load and caches its
// result for ttl. hit reports whether the value came from the cache. Errors
// from load are returned and nothing is cached.
//
// load runs detached from ctx cancellation so a caller that gives up does not
// fail the others waiting on it; load must bound its own run time. The caller
// still returns as soon as ctx is done.
func (l *Loader) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load LoadFunc) (value []byte, hit bool, err error) {
	if data, ok := l.Lookup(ctx, key); ok {
		return data, true, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		// A flight that finished after our lookup has already stored the value.
		if data, getErr := l.cache.Get(flightCtx, key); getErr == nil {
			return data, nil
		}
		data, loadErr := load(flightCtx)
		if loadErr != nil {
			return nil, loadErr
		}
		l.Store(flightCtx, key, data, ttl)
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (l *Loader) record(outcome string) {
	if l.recorder != nil {
		l.recorder.RecordCacheLookup(outcome)
	}
}
