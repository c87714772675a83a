package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
)

// Layer identifies one cache domain with its own TTL policy.
type Layer string

const (
	// LayerSearch holds full search responses. Volatile, short TTL.
	LayerSearch Layer = "search"
	// LayerRerank holds external rerank scores.
	LayerRerank Layer = "rerank"
	// LayerEmbedding holds query embeddings.
	LayerEmbedding Layer = "embedding"
	// LayerSpecialty holds specialty classification lookups.
	LayerSpecialty Layer = "specialty"
)

// ErrMissingTenant is returned when the context carries no tenant ID.
var ErrMissingTenant = errors.New("cache: tenant ID not found in context")

const (
	scanBatchSize = 100
	delBatchSize  = 100
)

// Cache is the layered cache consumed by the search pipeline. Get
// reports a miss instead of an error when the backend fails, so
// callers treat the cache as an accelerator, never a source of truth.
type Cache interface {
	Get(ctx context.Context, layer Layer, id string, dest interface{}) bool
	Set(ctx context.Context, layer Layer, id string, value interface{}) error
	SetWithJitter(ctx context.Context, layer Layer, id string, value interface{}) error
	Delete(ctx context.Context, layer Layer, id string) error
	ScanPattern(ctx context.Context, pattern string, limit int) ([]string, error)
	InvalidateTenantLayer(ctx context.Context, tenantID uuid.UUID, layer Layer) (int64, error)
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Stats() Stats
	Health(ctx context.Context) error
	Close() error
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Errors  int64 `json:"errors"`
}

// LayeredCache stores JSON values in Redis under tenant-scoped keys of
// the form prefix:layer:{tenant}:id. The tenant segment is wrapped in
// braces so all of a tenant's keys share one Redis Cluster hash slot.
type LayeredCache struct {
	redis   *ResilientRedisClient
	prefix  string
	ttls    map[Layer]time.Duration
	jitter  float64
	logger  observability.Logger
	metrics observability.MetricsClient

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errs    atomic.Int64
}

// New builds the cache from configuration. When the cache is disabled
// it returns a no-op implementation and never dials Redis.
func New(ctx context.Context, cfg config.CacheConfig, logger observability.Logger, metrics observability.MetricsClient) (Cache, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if !cfg.Enabled {
		logger.Info("cache disabled, using no-op cache", nil)
		return NewNoopCache(), nil
	}

	client, err := NewResilientRedisClient(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return NewLayeredCache(client, cfg, logger, metrics), nil
}

// NewLayeredCache wraps an already-connected client.
func NewLayeredCache(client *ResilientRedisClient, cfg config.CacheConfig, logger observability.Logger, metrics observability.MetricsClient) *LayeredCache {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "hh"
	}

	return &LayeredCache{
		redis:   client,
		prefix:  prefix,
		ttls:    layerTTLs(cfg),
		jitter:  cfg.JitterPercent,
		logger:  logger,
		metrics: metrics,
	}
}

func layerTTLs(cfg config.CacheConfig) map[Layer]time.Duration {
	ttls := map[Layer]time.Duration{
		LayerSearch:    cfg.ResultTTL,
		LayerRerank:    cfg.RerankTTL,
		LayerEmbedding: cfg.EmbeddingTTL,
		LayerSpecialty: cfg.SpecialtyTTL,
	}
	defaults := map[Layer]time.Duration{
		LayerSearch:    10 * time.Minute,
		LayerRerank:    6 * time.Hour,
		LayerEmbedding: time.Hour,
		LayerSpecialty: 24 * time.Hour,
	}
	for layer, fallback := range defaults {
		if ttls[layer] <= 0 {
			ttls[layer] = fallback
		}
	}
	return ttls
}

// key builds prefix:layer:{tenant}:id. Braces make the tenant segment
// a Redis hash tag for cluster support.
func (c *LayeredCache) key(layer Layer, tenantID uuid.UUID, id string) string {
	return fmt.Sprintf("%s:%s:{%s}:%s", c.prefix, layer, tenantID.String(), id)
}

func (c *LayeredCache) tenantLayerPattern(layer Layer, tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:{%s}:*", c.prefix, layer, tenantID.String())
}

// TTLFor returns the configured TTL for a layer.
func (c *LayeredCache) TTLFor(layer Layer) time.Duration {
	if ttl, ok := c.ttls[layer]; ok {
		return ttl
	}
	return 10 * time.Minute
}

// jitterTTL spreads expirations by up to +/- the configured fraction so
// entries written together do not expire together.
func (c *LayeredCache) jitterTTL(ttl time.Duration) time.Duration {
	if c.jitter <= 0 {
		return ttl
	}
	spread := float64(ttl) * c.jitter * (rand.Float64()*2 - 1)
	jittered := time.Duration(float64(ttl) + spread)
	if jittered <= 0 {
		return ttl
	}
	return jittered
}

// Get unmarshals the cached value for the tenant in ctx into dest and
// reports whether it was found. Backend errors and corrupt entries are
// reported as misses.
func (c *LayeredCache) Get(ctx context.Context, layer Layer, id string, dest interface{}) bool {
	tenantID := auth.GetTenantID(ctx)
	if tenantID == uuid.Nil {
		c.recordMiss(layer)
		return false
	}

	key := c.key(layer, tenantID, id)
	raw, found, err := c.redis.Get(ctx, key)
	if err != nil {
		c.recordError(layer, "get", err)
		return false
	}
	if !found {
		c.recordMiss(layer)
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{
			"layer": string(layer),
			"key":   key,
			"error": err.Error(),
		})
		_ = c.redis.Del(ctx, key)
		c.recordError(layer, "get", err)
		return false
	}

	c.hits.Add(1)
	c.metrics.RecordCacheOperation(string(layer), "get", "hit")
	return true
}

// Set stores value under the layer's flat TTL. Backend errors degrade
// to a no-op; only caller mistakes (missing tenant, unmarshalable
// value) are returned.
func (c *LayeredCache) Set(ctx context.Context, layer Layer, id string, value interface{}) error {
	return c.set(ctx, layer, id, value, c.TTLFor(layer))
}

// SetWithJitter stores value with jitter applied to the layer TTL. Used
// for volatile layers where synchronized expiry would cause a
// thundering herd of recomputation.
func (c *LayeredCache) SetWithJitter(ctx context.Context, layer Layer, id string, value interface{}) error {
	return c.set(ctx, layer, id, value, c.jitterTTL(c.TTLFor(layer)))
}

func (c *LayeredCache) set(ctx context.Context, layer Layer, id string, value interface{}, ttl time.Duration) error {
	tenantID := auth.GetTenantID(ctx)
	if tenantID == uuid.Nil {
		return ErrMissingTenant
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	key := c.key(layer, tenantID, id)
	if err := c.redis.Set(ctx, key, data, ttl); err != nil {
		c.recordError(layer, "set", err)
		return nil
	}

	c.sets.Add(1)
	c.metrics.RecordCacheOperation(string(layer), "set", "ok")
	return nil
}

// Delete removes one entry. Backend errors degrade to a no-op.
func (c *LayeredCache) Delete(ctx context.Context, layer Layer, id string) error {
	tenantID := auth.GetTenantID(ctx)
	if tenantID == uuid.Nil {
		return ErrMissingTenant
	}

	key := c.key(layer, tenantID, id)
	if err := c.redis.Del(ctx, key); err != nil {
		c.recordError(layer, "delete", err)
		return nil
	}

	c.deletes.Add(1)
	c.metrics.RecordCacheOperation(string(layer), "delete", "ok")
	return nil
}

// ScanPattern returns at most limit keys matching pattern. The scan is
// cursor-based so it never blocks the server the way KEYS would.
func (c *LayeredCache) ScanPattern(ctx context.Context, pattern string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1000
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return keys, fmt.Errorf("cache scan failed: %w", err)
	}
	return keys, nil
}

// InvalidateTenantLayer removes every entry the tenant has in one
// layer, deleting in batches as the scan progresses. Returns the
// number of keys removed.
func (c *LayeredCache) InvalidateTenantLayer(ctx context.Context, tenantID uuid.UUID, layer Layer) (int64, error) {
	if tenantID == uuid.Nil {
		return 0, ErrMissingTenant
	}

	pattern := c.tenantLayerPattern(layer, tenantID)
	var removed int64
	var batch []string

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.redis.Del(ctx, batch...); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		removed += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	iter := c.redis.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= delBatchSize {
			if err := flush(); err != nil {
				c.recordError(layer, "invalidate", err)
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		c.recordError(layer, "invalidate", err)
		return removed, fmt.Errorf("cache scan failed: %w", err)
	}
	if err := flush(); err != nil {
		c.recordError(layer, "invalidate", err)
		return removed, err
	}

	c.deletes.Add(removed)
	c.metrics.RecordCacheOperation(string(layer), "invalidate", "ok")
	c.metrics.RecordCounter("cache_invalidated_keys_total", float64(removed), map[string]string{"layer": string(layer)})
	c.logger.Info("tenant cache layer invalidated", map[string]interface{}{
		"tenant_id": tenantID.String(),
		"layer":     string(layer),
		"removed":   removed,
	})
	return removed, nil
}

// InvalidateTenant removes the tenant's entries across every layer.
func (c *LayeredCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	for _, layer := range []Layer{LayerSearch, LayerRerank, LayerEmbedding, LayerSpecialty} {
		removed, err := c.InvalidateTenantLayer(ctx, tenantID, layer)
		total += removed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Stats returns a snapshot of cache activity since startup.
func (c *LayeredCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errs.Load(),
	}
}

// Health reports whether the cache backend answers a ping.
func (c *LayeredCache) Health(ctx context.Context) error {
	return c.redis.Health(ctx)
}

// Close closes the backend connection.
func (c *LayeredCache) Close() error {
	return c.redis.Close()
}

func (c *LayeredCache) recordMiss(layer Layer) {
	c.misses.Add(1)
	c.metrics.RecordCacheOperation(string(layer), "get", "miss")
}

func (c *LayeredCache) recordError(layer Layer, operation string, err error) {
	c.errs.Add(1)
	c.metrics.RecordCacheOperation(string(layer), operation, "error")
	c.logger.Warn("cache backend error", map[string]interface{}{
		"layer":     string(layer),
		"operation": operation,
		"error":     err.Error(),
	})
}
