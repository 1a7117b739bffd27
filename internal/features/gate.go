// Package features decides per-identity rollout of optional behaviour.
package features

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// Well-known feature names.
const (
	EnhancedNLP  = "enhanced_nlp"
	StandardNLP  = "standard_nlp"
	DeepAnalysis = "deep_analysis"
)

// Mode is how a feature is rolled out.
type Mode string

const (
	ModeOn         Mode = "on"
	ModeOff        Mode = "off"
	ModePercentage Mode = "percentage"
)

// Flag configures one feature.
type Flag struct {
	Mode       Mode    `yaml:"mode"`
	Percentage float64 `yaml:"percentage"` // 0-100, used by ModePercentage
}

// Gate is an immutable snapshot of flag configuration. It needs no locking.
type Gate struct {
	flags map[string]Flag
	roll  func() float64
}

// Option configures a Gate.
type Option func(*Gate)

// WithSampler replaces the anonymous-traffic sampler. It must return values
// in [0,100).
func WithSampler(roll func() float64) Option {
	return func(g *Gate) {
		g.roll = roll
	}
}

// NewGate copies flags so later changes to the map have no effect.
func NewGate(flags map[string]Flag, opts ...Option) *Gate {
	g := &Gate{
		flags: make(map[string]Flag, len(flags)),
		roll:  func() float64 { return rand.Float64() * 100 },
	}
	for name, f := range flags {
		g.flags[name] = f
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsEnabled reports whether feature is on for identity. Unknown features are
// off. Percentage rollouts are stable per identity; without an identity each
// call samples independently.
func (g *Gate) IsEnabled(feature, identity string) bool {
	if g == nil {
		return false
	}
	f, ok := g.flags[feature]
	if !ok {
		return false
	}

	switch f.Mode {
	case ModeOn:
		return true
	case ModePercentage:
		if f.Percentage <= 0 {
			return false
		}
		if f.Percentage >= 100 {
			return true
		}
		if identity == "" {
			return g.roll() < f.Percentage
		}
		return Bucket(feature, identity) < f.Percentage
	default:
		return false
	}
}

// Decide wraps IsEnabled in a FeatureDecision.
func (g *Gate) Decide(feature, identity string) domain.FeatureDecision {
	return domain.FeatureDecision{
		Feature:  feature,
		Identity: identity,
		Enabled:  g.IsEnabled(feature, identity),
	}
}

// Flags returns a copy of the configuration.
func (g *Gate) Flags() map[string]Flag {
	out := make(map[string]Flag, len(g.flags))
	for k, v := range g.flags {
		out[k] = v
	}
	return out
}

const bucketResolution = 10000

// Bucket maps (feature, identity) to [0,100) with two decimals of
// resolution. Salting with the feature name keeps rollouts of different
// features independent for the same identity.
func Bucket(feature, identity string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(identity))
	// FNV only mixes low bits upward, so the high half carries the entropy.
	return float64((h.Sum64()>>32)%bucketResolution) / (bucketResolution / 100)
}

// Validate checks every flag's mode and percentage.
func Validate(flags map[string]Flag) error {
	for name, f := range flags {
		switch f.Mode {
		case ModeOn, ModeOff:
		case ModePercentage:
			if f.Percentage < 0 || f.Percentage > 100 {
				return fmt.Errorf("feature %s: percentage %.2f outside [0,100]", name, f.Percentage)
			}
		default:
			return fmt.Errorf("feature %s: unknown mode %q", name, f.Mode)
		}
	}
	return nil
}
