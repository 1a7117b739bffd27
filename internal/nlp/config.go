package nlp

import "time"

const (
	defaultAnthropicModel     = "claude-sonnet-4-5"
	defaultOpenAIModel        = "gpt-4o-mini"
	defaultMaxTokens          = 600
	defaultTierTimeout        = 20 * time.Second
	defaultBreakerFailures    = 3
	defaultBreakerOpenTimeout = 30 * time.Second
	defaultEnhancedRPS        = 5
	defaultEnhancedBurst      = 10
)

// AnthropicConfig configures the enhanced tier.
type AnthropicConfig struct {
	APIKey    string `env:"ANTHROPIC_API_KEY"  yaml:"api_key"`
	Model     string `env:"ANTHROPIC_MODEL"    yaml:"model"`
	MaxTokens int    `env:"ANTHROPIC_MAX_TOKENS" yaml:"max_tokens"`
	BaseURL   string `env:"ANTHROPIC_BASE_URL" yaml:"base_url"`
}

// OpenAIConfig configures the standard tier.
type OpenAIConfig struct {
	APIKey    string `env:"OPENAI_API_KEY"    yaml:"api_key"`
	Model     string `env:"OPENAI_MODEL"      yaml:"model"`
	MaxTokens int    `env:"OPENAI_MAX_TOKENS" yaml:"max_tokens"`
	BaseURL   string `env:"OPENAI_BASE_URL"   yaml:"base_url"`
}

// Config holds tier credentials and isolation settings.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`

	// TierTimeout bounds one call to a hosted tier.
	TierTimeout time.Duration `env:"NLP_TIER_TIMEOUT" yaml:"tier_timeout"`
	// BreakerFailures consecutive failures open a tier's circuit.
	BreakerFailures    int           `env:"NLP_BREAKER_FAILURES"     yaml:"breaker_failures"`
	BreakerOpenTimeout time.Duration `env:"NLP_BREAKER_OPEN_TIMEOUT" yaml:"breaker_open_timeout"`
	// EnhancedRPS and EnhancedBurst shape the token bucket in front of the
	// enhanced tier.
	EnhancedRPS   float64 `env:"NLP_ENHANCED_RPS"   yaml:"enhanced_rps"`
	EnhancedBurst int     `env:"NLP_ENHANCED_BURST" yaml:"enhanced_burst"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = defaultAnthropicModel
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = defaultMaxTokens
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaultOpenAIModel
	}
	if c.OpenAI.MaxTokens <= 0 {
		c.OpenAI.MaxTokens = defaultMaxTokens
	}
	if c.TierTimeout <= 0 {
		c.TierTimeout = defaultTierTimeout
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = defaultBreakerFailures
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = defaultBreakerOpenTimeout
	}
	if c.EnhancedRPS <= 0 {
		c.EnhancedRPS = defaultEnhancedRPS
	}
	if c.EnhancedBurst <= 0 {
		c.EnhancedBurst = defaultEnhancedBurst
	}
}
