// Package cache provides the TTL cache used to avoid recomputing expensive
// competitor lookups across runs.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a key-value store with per-entry TTL. Implementations are safe
// for concurrent use; writers to the same key race and the last write wins.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Entry is one cached value.
type Entry struct {
	Key         string
	Value       []byte
	CachedAt    time.Time
	TTL         time.Duration
	AccessCount int64
}

// Expired reports whether the entry is stale at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.CachedAt.Add(e.TTL))
}

const (
	competitorPrefix = "growth:competitor:"
	analysisPrefix   = "growth:analysis:"
)

// CompetitorKey is the cache key for competitor data of domain within an
// industry. An empty industry is its own bucket.
func CompetitorKey(domain, industry string) string {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if industry == "" {
		industry = "_"
	}
	return competitorPrefix + domain + ":" + industry
}

// AnalysisKey is the cache key for a general per-domain analysis payload.
func AnalysisKey(domain, unit string) string {
	return analysisPrefix + domain + ":" + unit
}
