package gin

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the coarse health of a service or dependency.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /health body.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one dependency's outcome.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker probes one dependency.
type HealthChecker func() CheckResult

// RegisterHealthRoutes mounts GET/HEAD /health and GET /health/memory.
func RegisterHealthRoutes(router *gin.Engine, service, version string, checks map[string]HealthChecker) {
	started := time.Now()

	router.GET("/health", func(c *gin.Context) {
		resp := HealthResponse{
			Status:  HealthStatusHealthy,
			Service: service,
			Version: version,
			Uptime:  time.Since(started).Truncate(time.Second).String(),
		}

		if len(checks) > 0 {
			resp.Checks = make(map[string]CheckResult, len(checks))
			for name, check := range checks {
				result := check()
				resp.Checks[name] = result
				resp.Status = worse(resp.Status, result.Status)
			}
		}

		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	})

	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/health/memory", func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		c.JSON(http.StatusOK, gin.H{
			"heap_alloc_bytes": m.HeapAlloc,
			"heap_inuse_bytes": m.HeapInuse,
			"sys_bytes":        m.Sys,
			"num_gc":           m.NumGC,
			"goroutines":       runtime.NumGoroutine(),
		})
	})
}

func worse(current, next HealthStatus) HealthStatus {
	switch {
	case current == HealthStatusUnhealthy || next == HealthStatusUnhealthy:
		return HealthStatusUnhealthy
	case current == HealthStatusDegraded || next == HealthStatusDegraded:
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}

// PingChecker wraps ping into a HealthChecker. A failing critical dependency
// makes the service unhealthy, a non-critical one only degraded.
func PingChecker(name string, critical bool, ping func() error) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		err := ping()
		latency := time.Since(start).String()

		if err == nil {
			return CheckResult{Status: HealthStatusHealthy, Message: name + " connection OK", Latency: latency}
		}

		status := HealthStatusDegraded
		if critical {
			status = HealthStatusUnhealthy
		}
		return CheckResult{Status: status, Message: name + " connection failed", Latency: latency}
	}
}
