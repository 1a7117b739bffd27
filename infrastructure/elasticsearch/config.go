package elasticsearch

import (
	"time"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/retry"
)

const (
	defaultURL         = "http://localhost:9200"
	defaultMaxRetries  = 3
	defaultPingTimeout = 5 * time.Second
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Enabled  bool   `yaml:"enabled"  env:"ELASTICSEARCH_ENABLED"`
	URL      string `yaml:"url"      env:"ELASTICSEARCH_URL"`
	Username string `yaml:"username" env:"ELASTICSEARCH_USERNAME"`
	Password string `yaml:"password" env:"ELASTICSEARCH_PASSWORD"`
	APIKey   string `yaml:"api_key"  env:"ELASTICSEARCH_API_KEY"`

	// ReportIndex receives terminal analysis report summaries.
	ReportIndex string `yaml:"report_index" env:"ELASTICSEARCH_REPORT_INDEX"`

	InsecureSkipVerify bool `yaml:"insecure_skip_verify" env:"ELASTICSEARCH_INSECURE_SKIP_VERIFY"`

	MaxRetries  int           `yaml:"max_retries"  env:"ELASTICSEARCH_MAX_RETRIES"`
	PingTimeout time.Duration `yaml:"ping_timeout" env:"ELASTICSEARCH_PING_TIMEOUT"`

	// RetryConfig drives connection verification at startup.
	RetryConfig *retry.Config `yaml:"-"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.ReportIndex == "" {
		c.ReportIndex = "analysis_reports"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.RetryConfig == nil {
		c.RetryConfig = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}
