package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// AnalysisContext carries the inputs shared by every unit of one run. It is
// safe for concurrent use and lives only as long as the run.
type AnalysisContext struct {
	Industry     string
	Competitors  []string
	DeepAnalysis bool

	// CachedCompetitors is a fresh competitor payload from the cache, or nil.
	CachedCompetitors json.RawMessage

	runCtx  context.Context
	fetcher *PageFetcher
	group   singleflight.Group

	mu    sync.Mutex
	pages map[string]*Page
}

// NewAnalysisContext binds fetches to runCtx so that one unit giving up does
// not cancel a fetch other units are waiting on.
func NewAnalysisContext(runCtx context.Context, fetcher *PageFetcher, industry string, competitors []string) *AnalysisContext {
	return &AnalysisContext{
		Industry:    industry,
		Competitors: append([]string(nil), competitors...),
		runCtx:      runCtx,
		fetcher:     fetcher,
		pages:       make(map[string]*Page),
	}
}

// Fetch returns the page at path on host, fetching it at most once per run.
// Failed fetches are not remembered. The wait is bounded by ctx, and the
// shared fetch with its retries stops at the deadline of the caller that
// started it.
func (c *AnalysisContext) Fetch(ctx context.Context, host, path string) (*Page, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("no page fetcher configured")
	}
	key := host + path

	c.mu.Lock()
	if p, ok := c.pages[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := c.flightContext(ctx)
		defer cancel()
		p, err := c.fetcher.Fetch(fetchCtx, c.fetcher.URLFor(host, path))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.pages[key] = p
		c.mu.Unlock()
		return p, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Page), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// flightContext detaches from ctx cancellation but keeps its deadline.
func (c *AnalysisContext) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(c.runCtx, deadline)
	}
	return context.WithCancel(c.runCtx)
}

// Homepage is Fetch(ctx, host, "/").
func (c *AnalysisContext) Homepage(ctx context.Context, host string) (*Page, error) {
	return c.Fetch(ctx, host, "/")
}
