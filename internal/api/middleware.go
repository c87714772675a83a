package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
)

// RequestIDMiddleware accepts an inbound X-Request-ID or mints one, and
// propagates it through the request context and the response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Request = c.Request.WithContext(auth.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// TenantMiddleware resolves the tenant from the X-Tenant-ID header and
// stores it on the request context. Every downstream cache key and
// store query is scoped by this ID.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Tenant-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("MISSING_TENANT", "X-Tenant-ID header is required", nil))
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("INVALID_TENANT", "X-Tenant-ID must be a UUID", nil))
			return
		}
		ctx := auth.WithTenantID(c.Request.Context(), tenantID)
		if userHash := c.GetHeader("X-User-Hash"); userHash != "" {
			ctx = auth.WithUserIDHash(ctx, userHash)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLoggerMiddleware logs one line per request with the
// correlation ID.
func RequestLoggerMiddleware(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":  c.ClientIP(),
			"request_id": auth.GetRequestID(c.Request.Context()),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
			logger.Warn("HTTP request failed", fields)
			return
		}
		logger.Info("HTTP request", fields)
	}
}

// MetricsMiddleware records request count and duration labeled by
// route, method, and status class.
func MetricsMiddleware(metrics observability.MetricsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := map[string]string{
			"route":  route,
			"method": c.Request.Method,
			"status": fmt.Sprintf("%d", c.Writer.Status()),
		}
		metrics.RecordCounter("http_requests_total", 1, labels)
		metrics.RecordDuration("http_request_duration_seconds", time.Since(start), labels)
	}
}

// tenantLimiter tracks one token bucket per tenant with lazy expiry.
type tenantLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware applies a per-tenant token bucket. Stale
// buckets are dropped on a background sweep so the map stays bounded.
func RateLimiterMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RPS) * 2
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*tenantLimiter)
	)

	go func() {
		ticker := time.NewTicker(cfg.TTL)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			for key, tl := range limiters {
				if time.Since(tl.lastSeen) > cfg.TTL {
					delete(limiters, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		key := c.GetHeader("X-Tenant-ID")
		if key == "" {
			key = c.ClientIP()
		}

		mu.Lock()
		tl, ok := limiters[key]
		if !ok {
			tl = &tenantLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			limiters[key] = tl
		}
		tl.lastSeen = time.Now()
		mu.Unlock()

		if !tl.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("RATE_LIMITED", "too many requests", nil))
			return
		}
		c.Next()
	}
}

// CORSMiddleware handles cross-origin requests for the configured
// origins. An empty origin list allows any origin.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(o)] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (len(allowed) == 0 || allowed[strings.ToLower(origin)]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, X-Request-ID")
			c.Header("Access-Control-Max-Age", "3600")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RecoveryMiddleware converts panics into 500 responses with the
// correlation ID, without killing the process.
func RecoveryMiddleware(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Handler panicked", map[string]interface{}{
					"panic":      fmt.Sprintf("%v", r),
					"path":       c.Request.URL.Path,
					"request_id": auth.GetRequestID(c.Request.Context()),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errorBody("INTERNAL_ERROR", "internal server error", nil))
			}
		}()
		c.Next()
	}
}

func errorBody(code, message string, details interface{}) gin.H {
	body := gin.H{"code": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	return body
}
