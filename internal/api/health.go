package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hirehound/search/pkg/perf"
)

// CheckFunc probes one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	name     string
	required bool
	check    CheckFunc
}

// HealthChecker aggregates component health for the readiness and
// health routes. Required components gate readiness; optional ones
// only show up in the report.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  []healthCheck
	ready   bool
	tracker *perf.Tracker

	checkTimeout time.Duration
}

// NewHealthChecker builds an empty checker. The perf tracker is
// optional and feeds the metrics block of the detailed report.
func NewHealthChecker(tracker *perf.Tracker) *HealthChecker {
	return &HealthChecker{
		tracker:      tracker,
		checkTimeout: 2 * time.Second,
	}
}

// RegisterCheck adds a component probe. Required components make the
// service unready while unhealthy.
func (h *HealthChecker) RegisterCheck(name string, required bool, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, healthCheck{name: name, required: required, check: check})
}

// SetReady flips the readiness gate once startup wiring completes.
func (h *HealthChecker) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports the startup gate state.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// report runs all checks and returns the overall status plus the
// per-component breakdown. degraded is true when a required component
// is unhealthy.
func (h *HealthChecker) report(ctx context.Context) (string, map[string]componentStatus, bool) {
	h.mu.RLock()
	checks := make([]healthCheck, len(h.checks))
	copy(checks, h.checks)
	ready := h.ready
	timeout := h.checkTimeout
	h.mu.RUnlock()

	components := make(map[string]componentStatus, len(checks))
	degraded := !ready

	for _, hc := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := hc.check(checkCtx)
		cancel()

		if err != nil {
			components[hc.name] = componentStatus{Status: "unhealthy", Error: err.Error()}
			if hc.required {
				degraded = true
			}
			continue
		}
		components[hc.name] = componentStatus{Status: "healthy"}
	}

	status := "healthy"
	if degraded {
		status = "degraded"
	}
	return status, components, degraded
}

// LivenessHandler answers process liveness. Always 200 while the
// process can serve requests at all.
func (h *HealthChecker) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadinessHandler gates traffic: 503 until startup completes and
// while any required dependency is unhealthy, so the load balancer can
// shed traffic.
func (h *HealthChecker) ReadinessHandler(c *gin.Context) {
	status, components, degraded := h.report(c.Request.Context())
	code := http.StatusOK
	if degraded {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "components": components})
}

// HealthHandler returns the aggregate component health summary.
func (h *HealthChecker) HealthHandler(c *gin.Context) {
	status, components, degraded := h.report(c.Request.Context())
	code := http.StatusOK
	if degraded {
		code = http.StatusServiceUnavailable
	}
	body := gin.H{"status": status}
	for name, cs := range components {
		body[name] = cs.Status
	}
	c.JSON(code, body)
}

// DetailedHealthHandler adds per-component errors and the rolling
// latency percentiles to the health report.
func (h *HealthChecker) DetailedHealthHandler(c *gin.Context) {
	status, components, degraded := h.report(c.Request.Context())
	code := http.StatusOK
	if degraded {
		code = http.StatusServiceUnavailable
	}
	body := gin.H{
		"status":     status,
		"components": components,
	}
	if h.tracker != nil {
		body["metrics"] = h.tracker.Stats()
	}
	c.JSON(code, body)
}
