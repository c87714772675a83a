package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/perf"
)

func healthEngine(h *HealthChecker) *gin.Engine {
	engine := gin.New()
	engine.GET("/healthz", h.LivenessHandler)
	engine.GET("/readyz", h.ReadinessHandler)
	engine.GET("/health", h.HealthHandler)
	engine.GET("/health/detailed", h.DetailedHealthHandler)
	return engine
}

func getJSON(t *testing.T, engine *gin.Engine, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLivenessAlwaysOK(t *testing.T) {
	h := NewHealthChecker(nil)
	engine := healthEngine(h)

	code, body := getJSON(t, engine, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessGatedOnStartup(t *testing.T) {
	h := NewHealthChecker(nil)
	engine := healthEngine(h)

	code, _ := getJSON(t, engine, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	h.SetReady(true)
	code, body := getJSON(t, engine, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestRequiredCheckFailureDegrades(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(true)
	h.RegisterCheck("pgvector", true, func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	h.RegisterCheck("rerank", false, func(ctx context.Context) error { return nil })
	engine := healthEngine(h)

	code, body := getJSON(t, engine, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])

	components := body["components"].(map[string]interface{})
	pg := components["pgvector"].(map[string]interface{})
	assert.Equal(t, "unhealthy", pg["status"])
	assert.Contains(t, pg["error"], "connection refused")
}

func TestOptionalCheckFailureStaysHealthy(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(true)
	h.RegisterCheck("pgvector", true, func(ctx context.Context) error { return nil })
	h.RegisterCheck("trajectory", false, func(ctx context.Context) error {
		return errors.New("service down")
	})
	engine := healthEngine(h)

	code, body := getJSON(t, engine, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthHandlerFlattensStatuses(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(true)
	h.RegisterCheck("pgvector", true, func(ctx context.Context) error { return nil })
	h.RegisterCheck("redis", false, func(ctx context.Context) error { return nil })
	engine := healthEngine(h)

	code, body := getJSON(t, engine, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "healthy", body["pgvector"])
	assert.Equal(t, "healthy", body["redis"])
}

func TestDetailedHealthIncludesMetrics(t *testing.T) {
	tracker := perf.NewTracker(16)
	h := NewHealthChecker(tracker)
	h.SetReady(true)
	engine := healthEngine(h)

	code, body := getJSON(t, engine, "/health/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "metrics")
	assert.Contains(t, body, "components")
}
