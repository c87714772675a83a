package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/cache"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/search"
)

// Searcher is the pipeline surface the handlers call.
type Searcher interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

// AdminStore exposes the store maintenance operations behind the admin
// routes.
type AdminStore interface {
	MigrateFTS(ctx context.Context) (int64, error)
}

// SearchHybridHandler serves POST /v1/search/hybrid.
func (s *Server) SearchHybridHandler(c *gin.Context) {
	start := time.Now()

	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", "request body is not valid JSON", err.Error()))
		return
	}

	resp, err := s.searcher.Search(c.Request.Context(), &req)
	if err != nil {
		s.writeSearchError(c, err)
		return
	}

	writeTimingHeaders(c, resp, time.Since(start))
	c.JSON(http.StatusOK, resp)
}

// candidatesRequest is the simplified wrapper body.
type candidatesRequest struct {
	Query           string               `json:"query"`
	Limit           int                  `json:"limit,omitempty"`
	IncludeMetadata bool                 `json:"includeMetadata,omitempty"`
	Filters         models.SearchFilters `json:"filters,omitempty"`
}

// flatCandidate is one entry of the simplified candidate list.
type flatCandidate struct {
	CandidateID string   `json:"candidateId"`
	Name        string   `json:"name,omitempty"`
	Title       string   `json:"title,omitempty"`
	Location    string   `json:"location,omitempty"`
	Score       float64  `json:"score"`
	Skills      []string `json:"skills,omitempty"`
	Reasons     []string `json:"reasons,omitempty"`
}

// SearchCandidatesHandler serves POST /v1/search/candidates, a
// flattened view over the same pipeline.
func (s *Server) SearchCandidatesHandler(c *gin.Context) {
	start := time.Now()

	var req candidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", "request body is not valid JSON", err.Error()))
		return
	}

	resp, err := s.searcher.Search(c.Request.Context(), &models.SearchRequest{
		Query:   req.Query,
		Limit:   req.Limit,
		Filters: req.Filters,
	})
	if err != nil {
		s.writeSearchError(c, err)
		return
	}

	candidates := make([]flatCandidate, 0, len(resp.Results))
	for _, item := range resp.Results {
		candidates = append(candidates, flatCandidate{
			CandidateID: item.CandidateID,
			Name:        item.FullName,
			Title:       item.Title,
			Location:    item.Location,
			Score:       item.Score,
			Skills:      item.Skills,
			Reasons:     item.MatchReasons,
		})
	}

	body := gin.H{
		"candidates": candidates,
		"total":      resp.Total,
		"requestId":  resp.RequestID,
	}
	if req.IncludeMetadata {
		body["metadata"] = resp.Metadata
		body["cacheHit"] = resp.CacheHit
	}
	writeTimingHeaders(c, resp, time.Since(start))
	c.JSON(http.StatusOK, body)
}

// MigrateFTSHandler serves POST /admin/migrate-fts: rebuilds the FTS
// trigger and repopulates the search documents.
func (s *Server) MigrateFTSHandler(c *gin.Context) {
	if s.admin == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("STORE_UNAVAILABLE", "store is not configured", nil))
		return
	}
	rows, err := s.admin.MigrateFTS(c.Request.Context())
	if err != nil {
		s.logger.Error("FTS migration failed", map[string]interface{}{
			"error":      err.Error(),
			"request_id": auth.GetRequestID(c.Request.Context()),
		})
		c.JSON(http.StatusInternalServerError, errorBody("MIGRATION_FAILED", "FTS migration failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "rowsUpdated": rows})
}

// cacheInvalidateRequest selects the cache layer to drop for the
// calling tenant.
type cacheInvalidateRequest struct {
	Layer string `json:"layer" binding:"required"`
}

// CacheInvalidateHandler serves POST /admin/cache/invalidate.
func (s *Server) CacheInvalidateHandler(c *gin.Context) {
	var req cacheInvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", "layer is required", err.Error()))
		return
	}

	layer := cache.Layer(strings.ToLower(req.Layer))
	switch layer {
	case cache.LayerSearch, cache.LayerRerank, cache.LayerEmbedding, cache.LayerSpecialty:
	default:
		c.JSON(http.StatusBadRequest, errorBody("INVALID_LAYER",
			fmt.Sprintf("unknown cache layer %q", req.Layer), nil))
		return
	}

	tenantID, ok := auth.TenantFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody("MISSING_TENANT", "tenant is required", nil))
		return
	}

	deleted, err := s.cache.InvalidateTenantLayer(c.Request.Context(), tenantID, layer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INVALIDATION_FAILED", "cache invalidation failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"layer": layer, "deleted": deleted})
}

func (s *Server) writeSearchError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "VALIDATION_ERROR",
			"message": verr.Message,
			"details": gin.H{"field": verr.Field},
		})
	case errors.Is(err, search.ErrEmbeddingUnavailable):
		c.JSON(http.StatusBadGateway, errorBody("EMBEDDING_UNAVAILABLE",
			"embedding service is unavailable and no cached vector exists", nil))
	default:
		s.logger.Error("Search request failed", map[string]interface{}{
			"error":      err.Error(),
			"request_id": auth.GetRequestID(c.Request.Context()),
		})
		c.JSON(http.StatusInternalServerError, errorBody("SEARCH_FAILED", "search request failed", nil))
	}
}

// writeTimingHeaders emits the Server-Timing stage breakdown plus the
// cache status headers.
func writeTimingHeaders(c *gin.Context, resp *models.SearchResponse, elapsed time.Duration) {
	var parts []string
	for _, stage := range []string{"embedding", "retrieval", "rerank"} {
		if dur, ok := resp.Timings[stage]; ok {
			parts = append(parts, fmt.Sprintf("%s;dur=%.1f", stage, dur))
		}
	}
	if dur, ok := resp.Timings["total"]; ok {
		parts = append(parts, fmt.Sprintf("total;dur=%.1f", dur))
	}

	cacheStatus := "miss"
	if resp.CacheHit {
		cacheStatus = "hit"
	}
	parts = append(parts, fmt.Sprintf("cache;desc=%q", cacheStatus))

	c.Header("Server-Timing", strings.Join(parts, ", "))
	c.Header("X-Response-Time", fmt.Sprintf("%.1fms", float64(elapsed.Microseconds())/1000.0))
	c.Header("X-Cache-Status", cacheStatus)

	if resp.Metadata != nil && resp.Metadata.RerankUsed {
		rerankStatus := "miss"
		if resp.Metadata.RerankCached {
			rerankStatus = "hit"
		}
		c.Header("X-Rerank-Cache", rerankStatus)
	}
}
