// Package store implements the Postgres access layer: pool management,
// the fused vector + full-text retrieval query, selection event
// persistence, and schema migrations. All queries are tenant-scoped; the
// tenant ID is taken from the request context, never from caller input.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"

	// Postgres driver
	_ "github.com/lib/pq"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/resilience"
)

// Common errors.
var (
	ErrMissingDSN    = errors.New("store: dsn is required")
	ErrMissingTenant = errors.New("store: tenant ID not found in context")
	ErrNoSearchInput = errors.New("store: query requires an embedding or query text")
)

// degradedWaitThreshold marks the pool degraded when more than this many
// requests waited for a connection since the previous health check.
const degradedWaitThreshold = 10

// Store is the Postgres access layer. Queries run under a concurrency
// semaphore and a circuit breaker so a saturated or failing database
// sheds load instead of queueing unboundedly.
type Store struct {
	db      *sqlx.DB
	cfg     config.StoreConfig
	logger  observability.Logger
	metrics observability.MetricsClient
	sem     *semaphore.Weighted
	breaker resilience.CircuitBreaker

	mu            sync.Mutex
	lastWaitCount int64
}

// New connects to Postgres, configures the pool, optionally runs
// migrations, and warms the pool. Connection attempts retry with
// exponential backoff until cfg.ConnectTimeout elapses.
func New(ctx context.Context, cfg config.StoreConfig, logger observability.Logger, metrics observability.MetricsClient) (*Store, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	logger.Info("connecting to postgres", map[string]interface{}{
		"dsn": sanitizeDSN(cfg.DSN),
	})

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.ConnectContext(connectCtx, "postgres", cfg.DSN)
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("postgres connect failed, retrying", map[string]interface{}{
			"error":    err.Error(),
			"retry_in": next.String(),
		})
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(backoff.NewExponentialBackOff(), connectCtx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	s := newStore(db, cfg, logger, metrics)

	if cfg.MigrateOnStart {
		if err := s.RunMigrations(); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("failed to close database after migration error", map[string]interface{}{
					"error": closeErr.Error(),
				})
			}
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	s.warmPool(ctx)
	return s, nil
}

// NewWithConnection wraps an existing connection. Used by tests.
func NewWithConnection(db *sqlx.DB, cfg config.StoreConfig, logger observability.Logger, metrics observability.MetricsClient) *Store {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	return newStore(db, cfg, logger, metrics)
}

func newStore(db *sqlx.DB, cfg config.StoreConfig, logger observability.Logger, metrics observability.MetricsClient) *Store {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 20
	}
	breaker := resilience.New(resilience.Config{
		Name: "store_hybrid_search",
	}, logger, metrics)

	return &Store{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		sem:     semaphore.NewWeighted(maxConcurrent),
		breaker: breaker,
	}
}

// sanitizeDSN removes credentials from a DSN for safe logging.
func sanitizeDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		parts := strings.Split(dsn, " ")
		sanitized := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				sanitized = append(sanitized, "password=***")
			} else {
				sanitized = append(sanitized, part)
			}
		}
		return strings.Join(sanitized, " ")
	}
	if idx := strings.Index(dsn, "://"); idx != -1 {
		if atIdx := strings.Index(dsn[idx:], "@"); atIdx != -1 {
			return dsn[:idx+3] + "***:***" + dsn[idx+atIdx:]
		}
	}
	return dsn
}

// warmPool opens idle connections in parallel so the first requests do
// not pay connection setup latency.
func (s *Store) warmPool(ctx context.Context) {
	n := s.cfg.MaxIdleConns
	if n <= 0 {
		return
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		conns []*sql.Conn
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := s.db.Conn(ctx)
			if err != nil {
				s.logger.Warn("pool warmup connection failed", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			s.logger.Warn("failed to release warmup connection", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	s.logger.Debug("connection pool warmed", map[string]interface{}{
		"connections": len(conns),
	})
}

// Transaction executes fn inside a transaction. The transaction is
// rolled back on error or panic and committed otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback after panic failed", map[string]interface{}{
					"error": rbErr.Error(),
				})
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// HealthSnapshot reports pool state for the detailed health endpoint.
type HealthSnapshot struct {
	Healthy         bool   `json:"healthy"`
	Degraded        bool   `json:"degraded"`
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	WaitingRequests int64  `json:"waitingRequests"`
	Error           string `json:"error,omitempty"`
}

// Health pings the database and snapshots pool statistics. The snapshot
// is degraded when more than degradedWaitThreshold requests waited for a
// connection since the previous check.
func (s *Store) Health(ctx context.Context) HealthSnapshot {
	stats := s.db.Stats()

	s.mu.Lock()
	waited := stats.WaitCount - s.lastWaitCount
	s.lastWaitCount = stats.WaitCount
	s.mu.Unlock()

	snap := HealthSnapshot{
		Healthy:         true,
		Degraded:        waited > degradedWaitThreshold,
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitingRequests: waited,
	}
	if err := s.db.PingContext(ctx); err != nil {
		snap.Healthy = false
		snap.Error = err.Error()
	}

	if snap.Degraded {
		s.logger.Warn("connection pool degraded", map[string]interface{}{
			"waiting_requests": waited,
			"open":             stats.OpenConnections,
			"in_use":           stats.InUse,
		})
	}
	s.metrics.RecordGauge("store_pool_open_connections", float64(stats.OpenConnections), nil)
	s.metrics.RecordGauge("store_pool_in_use", float64(stats.InUse), nil)
	return snap
}

// Ping checks basic connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for callers that own their SQL.
func (s *Store) DB() *sqlx.DB {
	return s.db
}
