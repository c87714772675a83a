// Package api exposes the public HTTP contract of the candidate search
// service: the hybrid search routes, health and readiness, metrics,
// and the admin maintenance routes.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hirehound/search/pkg/cache"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
)

// Server wires the gin engine, middleware chain, and handlers.
type Server struct {
	engine   *gin.Engine
	cfg      config.ServerConfig
	searcher Searcher
	admin    AdminStore
	cache    cache.Cache
	health   *HealthChecker
	logger   observability.Logger
	metrics  observability.MetricsClient
}

// NewServer builds the HTTP server. searcher and health are required;
// admin and cache gate their routes when absent.
func NewServer(cfg config.ServerConfig, searcher Searcher, admin AdminStore, cacheLayer cache.Cache, health *HealthChecker, logger observability.Logger, metrics observability.MetricsClient) *Server {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	if cacheLayer == nil {
		cacheLayer = cache.NewNoopCache()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:   engine,
		cfg:      cfg,
		searcher: searcher,
		admin:    admin,
		cache:    cacheLayer,
		health:   health,
		logger:   logger.WithPrefix("api"),
		metrics:  metrics,
	}
	s.registerMiddleware()
	s.registerRoutes()
	return s
}

func (s *Server) registerMiddleware() {
	s.engine.Use(RecoveryMiddleware(s.logger))
	s.engine.Use(RequestIDMiddleware())
	s.engine.Use(RequestLoggerMiddleware(s.logger))
	s.engine.Use(MetricsMiddleware(s.metrics))
	if s.cfg.EnableCORS {
		s.engine.Use(CORSMiddleware(s.cfg.CORSOrigins))
	}
	s.engine.Use(RateLimiterMiddleware(s.cfg.RateLimit))
}

func (s *Server) registerRoutes() {
	// Health and metrics stay outside the tenant guard so probes need
	// no headers.
	s.engine.GET("/healthz", s.health.LivenessHandler)
	s.engine.GET("/readyz", s.health.ReadinessHandler)
	s.engine.GET("/health", s.health.HealthHandler)
	s.engine.GET("/health/detailed", s.health.DetailedHealthHandler)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1", TenantMiddleware())
	v1.POST("/search/hybrid", s.SearchHybridHandler)
	v1.POST("/search/candidates", s.SearchCandidatesHandler)

	admin := s.engine.Group("/admin", TenantMiddleware())
	admin.POST("/migrate-fts", s.MigrateFTSHandler)
	admin.POST("/cache/invalidate", s.CacheInvalidateHandler)
}

// Handler returns the root http.Handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}
