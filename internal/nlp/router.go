package nlp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/circuitbreaker"
	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/features"
)

// Fallthrough reasons.
const (
	ReasonGatedOff    = "gated_off"
	ReasonUnavailable = "unavailable"
	ReasonRateLimited = "rate_limited"
	ReasonCircuitOpen = "circuit_open"
	ReasonTimeout     = "timeout"
	ReasonPanic       = "panic"
	ReasonError       = "error"
)

// unreachableText is returned only if the template tier breaks its contract.
const unreachableText = "Sorry, I couldn't put an answer together just now. Please try again."

// Recorder observes which tier answered and which fell through.
type Recorder interface {
	RecordNLPResponse(tier string)
	RecordNLPTierFailure(tier, reason string)
}

// Capability is the probe result for one tier.
type Capability struct {
	Tier      string `json:"tier"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Circuit   string `json:"circuit,omitempty"`
}

// guardedTier is a hosted tier behind its gate, breaker and limiter.
type guardedTier struct {
	level        string
	feature      string
	tier         Tier
	constructErr error
	breaker      *circuitbreaker.Breaker
	limiter      *rate.Limiter
}

// Router tries tiers in priority order and falls back to the template tier.
// Its tier set is fixed at construction.
type Router struct {
	chain    []*guardedTier
	template Tier
	gate     *features.Gate
	timeout  time.Duration
	recorder Recorder
	logger   infralogger.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) RouterOption {
	return func(rt *Router) { rt.recorder = r }
}

// WithTemplateTier replaces the floor tier. Intended for tests.
func WithTemplateTier(t Tier) RouterOption {
	return func(rt *Router) { rt.template = t }
}

// Tiers are the hosted tiers and their construction outcome. A nil tier or a
// non-nil error marks that tier unavailable.
type Tiers struct {
	Enhanced    Tier
	EnhancedErr error
	Standard    Tier
	StandardErr error
}

// BuildTiers constructs the hosted tiers from cfg. Construction failures are
// recorded, not returned, so the router can still serve from the template.
func BuildTiers(cfg Config) Tiers {
	var tiers Tiers
	if t, err := NewAnthropicTier(cfg.Anthropic); err != nil {
		tiers.EnhancedErr = err
	} else {
		tiers.Enhanced = t
	}
	if t, err := NewOpenAITier(cfg.OpenAI); err != nil {
		tiers.StandardErr = err
	} else {
		tiers.Standard = t
	}
	return tiers
}

// NewRouter builds the chain enhanced, standard, template.
func NewRouter(cfg Config, gate *features.Gate, log infralogger.Logger, tiers Tiers, opts ...RouterOption) *Router {
	cfg.SetDefaults()
	if log == nil {
		log = infralogger.NewNop()
	}

	breaker := func(level string) *circuitbreaker.Breaker {
		return circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailures,
			Timeout:          cfg.BreakerOpenTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				log.Warn("NLP tier circuit changed",
					infralogger.String("tier", level),
					infralogger.String("from", from.String()),
					infralogger.String("to", to.String()),
				)
			},
		})
	}

	r := &Router{
		chain: []*guardedTier{
			{
				level:        LevelEnhanced,
				feature:      features.EnhancedNLP,
				tier:         tiers.Enhanced,
				constructErr: constructError(tiers.Enhanced, tiers.EnhancedErr),
				breaker:      breaker(LevelEnhanced),
				limiter:      rate.NewLimiter(rate.Limit(cfg.EnhancedRPS), cfg.EnhancedBurst),
			},
			{
				level:        LevelStandard,
				feature:      features.StandardNLP,
				tier:         tiers.Standard,
				constructErr: constructError(tiers.Standard, tiers.StandardErr),
				breaker:      breaker(LevelStandard),
			},
		},
		template: NewTemplateTier(),
		gate:     gate,
		timeout:  cfg.TierTimeout,
		logger:   log,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, g := range r.chain {
		if g.constructErr != nil {
			log.Info("NLP tier disabled", infralogger.String("tier", g.level), infralogger.Error(g.constructErr))
		}
	}
	return r
}

func constructError(t Tier, err error) error {
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTierUnavailable
	}
	return nil
}

// Respond answers query from report. It never fails: any tier above the
// template tier that is gated off, unavailable or failing is skipped.
func (r *Router) Respond(ctx context.Context, query string, report *domain.AnalysisReport, rc RequestContext) Response {
	p := Prompt{Query: query, Intent: rc.Intent, Slice: rc.Slice, Report: report}
	resp := Response{Intent: rc.Intent, ReferencedIssues: referencedTitles(rc.Slice)}

	for _, g := range r.chain {
		reason, err := r.attempt(ctx, g, rc.Identity, p, &resp)
		if reason == "" {
			r.recordResponse(g.level)
			return resp
		}
		resp.Fallbacks = append(resp.Fallbacks, Fallback{Tier: g.level, Reason: reason})
		r.recordFailure(g.level, reason)
		if err != nil {
			r.logger.Warn("NLP tier failed, falling through",
				infralogger.String("tier", g.level),
				infralogger.String("reason", reason),
				infralogger.Error(err),
			)
		}
	}

	text, err := r.invokeTemplate(ctx, p)
	if err != nil {
		r.logger.Error("Template tier failed", infralogger.Error(err))
		r.recordFailure(LevelTemplate, ReasonError)
		resp.Text, resp.Tier = unreachableText, LevelTemplate
		return resp
	}
	resp.Text, resp.Tier = text, LevelTemplate
	r.recordResponse(LevelTemplate)
	return resp
}

// attempt tries one hosted tier. An empty reason means resp was filled in.
func (r *Router) attempt(ctx context.Context, g *guardedTier, identity string, p Prompt, resp *Response) (reason string, err error) {
	if g.constructErr != nil {
		return ReasonUnavailable, nil
	}
	if !r.gate.IsEnabled(g.feature, identity) {
		return ReasonGatedOff, nil
	}
	if g.limiter != nil && !g.limiter.Allow() {
		return ReasonRateLimited, ErrRateLimited
	}

	text, err := r.invoke(ctx, g, p)
	switch {
	case err == nil:
		resp.Text, resp.Tier = text, g.level
		return "", nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return ReasonCircuitOpen, err
	case errors.Is(err, errTierPanic):
		return ReasonPanic, err
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, err
	default:
		return ReasonError, err
	}
}

var errTierPanic = errors.New("nlp tier panicked")

// invoke calls the tier through its breaker under the tier timeout. A panic
// counts as a failure.
func (r *Router) invoke(ctx context.Context, g *guardedTier, p Prompt) (text string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = g.breaker.Execute(callCtx, func() (callErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				callErr = fmt.Errorf("%w: %v", errTierPanic, rec)
			}
		}()
		text, callErr = g.tier.Respond(callCtx, p)
		if callErr == nil && text == "" {
			callErr = ErrEmptyResponse
		}
		return callErr
	})
	return text, err
}

func (r *Router) invokeTemplate(ctx context.Context, p Prompt) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errTierPanic, rec)
		}
	}()
	text, err = r.template.Respond(ctx, p)
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	return text, err
}

// Capabilities reports which tiers could currently serve a request, ignoring
// feature gates.
func (r *Router) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.chain)+1)
	for _, g := range r.chain {
		c := Capability{Tier: g.level, Available: g.constructErr == nil}
		switch {
		case g.constructErr != nil:
			c.Reason = g.constructErr.Error()
		case !g.breaker.Allowed():
			c.Available = false
			c.Reason = ReasonCircuitOpen
		}
		if g.constructErr == nil {
			c.Circuit = g.breaker.State().String()
		}
		out = append(out, c)
	}
	return append(out, Capability{Tier: LevelTemplate, Available: true})
}

func (r *Router) recordResponse(tier string) {
	if r.recorder != nil {
		r.recorder.RecordNLPResponse(tier)
	}
}

func (r *Router) recordFailure(tier, reason string) {
	if r.recorder != nil {
		r.recorder.RecordNLPTierFailure(tier, reason)
	}
}
