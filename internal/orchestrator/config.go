package orchestrator

import "time"

const (
	defaultGlobalTimeout      = 2 * time.Minute
	defaultUnitTimeout        = 45 * time.Second
	defaultDeepAnalysisFactor = 2.0
	defaultCompetitorUnit     = "competitor"
	defaultCompetitorTTL      = 24 * time.Hour
	defaultAnalysisTTL        = 15 * time.Minute
	defaultMaxConcurrentRuns  = 50
	defaultReportRetention    = time.Hour
	defaultSinkTimeout        = 10 * time.Second
)

// Config holds orchestration limits.
type Config struct {
	// GlobalTimeout is the ceiling for a whole run. Units still running at
	// the ceiling are recorded as timed out.
	GlobalTimeout time.Duration `env:"ORCHESTRATOR_GLOBAL_TIMEOUT" yaml:"global_timeout"`
	// UnitTimeout bounds each unit. It is capped at GlobalTimeout.
	UnitTimeout time.Duration `env:"ORCHESTRATOR_UNIT_TIMEOUT" yaml:"unit_timeout"`
	// DeepAnalysisFactor scales both timeouts when deep analysis is granted.
	DeepAnalysisFactor float64 `env:"ORCHESTRATOR_DEEP_ANALYSIS_FACTOR" yaml:"deep_analysis_factor"`
	// CompetitorUnit names the unit whose results use CompetitorTTL.
	CompetitorUnit string        `env:"ORCHESTRATOR_COMPETITOR_UNIT" yaml:"competitor_unit"`
	CompetitorTTL  time.Duration `env:"CACHE_COMPETITOR_TTL" yaml:"competitor_ttl"`
	// AnalysisTTL is the short TTL for other unit results. A negative value
	// disables reuse of non-competitor results.
	AnalysisTTL       time.Duration `env:"CACHE_ANALYSIS_TTL" yaml:"analysis_ttl"`
	MaxConcurrentRuns int           `env:"ORCHESTRATOR_MAX_CONCURRENT_RUNS" yaml:"max_concurrent_runs"`
	// ReportRetention is how long finished runs stay addressable in memory.
	ReportRetention time.Duration `env:"ORCHESTRATOR_REPORT_RETENTION" yaml:"report_retention"`
	SinkTimeout     time.Duration `env:"ORCHESTRATOR_SINK_TIMEOUT" yaml:"sink_timeout"`
}

// SetDefaults fills unset fields. AnalysisTTL is left alone when negative.
func (c *Config) SetDefaults() {
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = defaultGlobalTimeout
	}
	if c.UnitTimeout <= 0 {
		c.UnitTimeout = defaultUnitTimeout
	}
	if c.DeepAnalysisFactor < 1 {
		c.DeepAnalysisFactor = defaultDeepAnalysisFactor
	}
	if c.CompetitorUnit == "" {
		c.CompetitorUnit = defaultCompetitorUnit
	}
	if c.CompetitorTTL <= 0 {
		c.CompetitorTTL = defaultCompetitorTTL
	}
	if c.AnalysisTTL == 0 {
		c.AnalysisTTL = defaultAnalysisTTL
	}
	if c.MaxConcurrentRuns <= 0 {
		c.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
	if c.ReportRetention <= 0 {
		c.ReportRetention = defaultReportRetention
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = defaultSinkTimeout
	}
}

// timeouts returns the run ceiling and per-unit bound, scaled for deep
// analysis.
func (c Config) timeouts(deep bool) (global, unit time.Duration) {
	global, unit = c.GlobalTimeout, c.UnitTimeout
	if deep {
		global = time.Duration(float64(global) * c.DeepAnalysisFactor)
		unit = time.Duration(float64(unit) * c.DeepAnalysisFactor)
	}
	return global, min(unit, global)
}
