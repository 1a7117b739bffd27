// Package analyzer defines the contract every website analyzer implements
// and ships the built-in analyzer set.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// Categories produced by the built-in units.
const (
	CategoryPerformance = "performance"
	CategoryForms       = "forms"
	CategorySEO         = "seo"
	CategoryMobile      = "mobile"
	CategoryPricing     = "pricing"
	CategoryAISearch    = "ai_search"
	CategoryCompetitors = "competitors"
)

// ErrDuplicateUnit is returned by Register for a name already taken.
var ErrDuplicateUnit = errors.New("analyzer already registered")

// Unit analyzes one aspect of a domain.
//
// Analyze must return before ctx is done. It may retry idempotent fetches,
// but never past the deadline. Implementations keep no mutable state shared
// between invocations for different domains. The returned result's name,
// category, status and elapsed time are filled in by the caller.
type Unit interface {
	Name() string
	Category() string
	Analyze(ctx context.Context, host string, actx *AnalysisContext) (*domain.AnalyzerResult, error)
}

// Registry is the set of units run for every analysis, in registration
// order.
type Registry struct {
	mu    sync.RWMutex
	units []Unit
	index map[string]Unit
}

// NewRegistry registers units in order. It panics on duplicate names, which
// is a wiring error.
func NewRegistry(units ...Unit) *Registry {
	r := &Registry{index: make(map[string]Unit)}
	for _, u := range units {
		if err := r.Register(u); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds u.
func (r *Registry) Register(u Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[u.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.Name())
	}
	r.index[u.Name()] = u
	r.units = append(r.units, u)
	return nil
}

// Units returns a snapshot in registration order.
func (r *Registry) Units() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Unit(nil), r.units...)
}

// Get looks up a unit by name.
func (r *Registry) Get(name string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.index[name]
	return u, ok
}

// Names returns the sorted unit names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.index))
	for n := range r.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
