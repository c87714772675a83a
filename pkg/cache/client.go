// Package cache implements the layered Redis cache for search
// responses, rerank scores, query embeddings, and specialty lookups.
// Keys are tenant-scoped and every operation degrades to a miss or
// no-op when the backend fails; the cache is never authoritative.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/resilience"
	"github.com/hirehound/search/pkg/retry"
)

// ResilientRedisClient wraps the Redis client with circuit breaker and
// retry protection. A key miss is reported through the found flag, not
// as an error, so cold-cache traffic never trips the breaker.
type ResilientRedisClient struct {
	client      *redis.Client
	breaker     resilience.CircuitBreaker
	retryPolicy retry.Policy
	logger      observability.Logger
	metrics     observability.MetricsClient
}

// NewResilientRedisClient connects to Redis using the cache
// configuration and verifies the connection with a ping.
func NewResilientRedisClient(ctx context.Context, cfg config.CacheConfig, logger observability.Logger, metrics observability.MetricsClient) (*ResilientRedisClient, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	logger.Info("redis cache connected", map[string]interface{}{
		"address":   cfg.Address,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
	})

	return newResilientClient(client, logger, metrics), nil
}

// NewResilientRedisClientWithRedis wraps an existing Redis client.
// Used by tests and by callers that manage the connection themselves.
func NewResilientRedisClientWithRedis(client *redis.Client, logger observability.Logger, metrics observability.MetricsClient) *ResilientRedisClient {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	return newResilientClient(client, logger, metrics)
}

func newResilientClient(client *redis.Client, logger observability.Logger, metrics observability.MetricsClient) *ResilientRedisClient {
	breaker := resilience.New(resilience.Config{
		Name:                "cache_redis",
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
	}, logger, metrics)

	retryPolicy := retry.NewExponentialBackoff(retry.Config{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  5 * time.Second,
		MaxRetries:      3,
	})

	return &ResilientRedisClient{
		client:      client,
		breaker:     breaker,
		retryPolicy: retryPolicy,
		logger:      logger,
		metrics:     metrics,
	}
}

// Get retrieves a value. The found flag is false for a key miss; an
// error means the backend itself failed.
func (r *ResilientRedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	var val string
	var found bool

	_, err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, r.retryPolicy.Execute(ctx, func(ctx context.Context) error {
			v, err := r.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				found = false
				return nil
			}
			if err != nil {
				return err
			}
			val = v
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}

	return val, found, nil
}

// Set stores a value with the given expiration.
func (r *ResilientRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_, err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, r.retryPolicy.Execute(ctx, func(ctx context.Context) error {
			return r.client.Set(ctx, key, value, expiration).Err()
		})
	})
	return err
}

// Del deletes keys. Deleting a key that does not exist is not an error.
func (r *ResilientRedisClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, r.retryPolicy.Execute(ctx, func(ctx context.Context) error {
			return r.client.Del(ctx, keys...).Err()
		})
	})
	return err
}

// Scan returns a scan iterator. Scans go straight to the client: the
// iterator surfaces its own errors and must not hold the breaker open
// across a long keyspace walk.
func (r *ResilientRedisClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	return r.client.Scan(ctx, cursor, match, count)
}

// TTL returns the remaining time to live of a key.
func (r *ResilientRedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	result, err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		var ttl time.Duration
		err := r.retryPolicy.Execute(ctx, func(ctx context.Context) error {
			v, err := r.client.TTL(ctx, key).Result()
			if err != nil {
				return err
			}
			ttl = v
			return nil
		})
		return ttl, err
	})
	if err != nil {
		return 0, err
	}
	return result.(time.Duration), nil
}

// GetClient returns the underlying Redis client for operations not
// covered by the wrapper.
func (r *ResilientRedisClient) GetClient() *redis.Client {
	return r.client
}

// IsOpen reports whether the breaker is currently rejecting calls.
func (r *ResilientRedisClient) IsOpen() bool {
	return r.breaker.IsOpen()
}

// Health checks whether Redis answers a ping.
func (r *ResilientRedisClient) Health(ctx context.Context) error {
	_, err := r.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, r.client.Ping(ctx).Err()
	})
	return err
}

// Close closes the Redis connection.
func (r *ResilientRedisClient) Close() error {
	return r.client.Close()
}
