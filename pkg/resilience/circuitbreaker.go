// Package resilience wraps sony/gobreaker behind a small interface so
// outbound clients and the cache backend share one breaker idiom.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hirehound/search/pkg/observability"
)

// CircuitBreaker protects calls to an unreliable dependency.
type CircuitBreaker interface {
	// Execute runs fn under breaker protection.
	Execute(fn func() (interface{}, error)) (interface{}, error)

	// ExecuteContext runs fn under breaker protection, passing ctx through.
	ExecuteContext(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error)

	// IsOpen reports whether calls are currently short-circuited.
	IsOpen() bool

	// Name returns the breaker name.
	Name() string
}

// Config defines settings for one circuit breaker. The zero value gets
// sensible defaults: open after 5 consecutive failures, 30s cool-down.
type Config struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	ReadyToTrip         func(counts gobreaker.Counts) bool
	IsSuccessful        func(err error) bool
}

type breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New creates a circuit breaker. The default trip condition opens the
// breaker after Config.ConsecutiveFailures consecutive errors, matching
// the failure model of the external rerank and embedding services.
func New(config Config, logger observability.Logger, metrics observability.MetricsClient) CircuitBreaker {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 5
	}
	if config.ReadyToTrip == nil {
		threshold := config.ConsecutiveFailures
		config.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		}
	}

	settings := gobreaker.Settings{
		Name:         config.Name,
		MaxRequests:  config.MaxRequests,
		Interval:     config.Interval,
		Timeout:      config.Timeout,
		ReadyToTrip:  config.ReadyToTrip,
		IsSuccessful: config.IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.RecordGauge("circuit_breaker_open", stateGaugeValue(to), map[string]string{"name": name})
		},
	}

	return &breaker{
		cb:   gobreaker.NewCircuitBreaker(settings),
		name: config.Name,
	}
}

func stateGaugeValue(s gobreaker.State) float64 {
	if s == gobreaker.StateOpen {
		return 1
	}
	return 0
}

// Execute runs fn under breaker protection.
func (b *breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(fn)
}

// ExecuteContext runs fn under breaker protection, passing ctx through.
func (b *breaker) ExecuteContext(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
}

// IsOpen reports whether calls are currently short-circuited.
func (b *breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Name returns the breaker name.
func (b *breaker) Name() string {
	return b.name
}

// IsCircuitOpen reports whether err is the breaker's short-circuit error.
func IsCircuitOpen(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}

// Manager holds the process-wide set of named breakers.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]CircuitBreaker
	logger   observability.Logger
	metrics  observability.MetricsClient
}

// NewManager creates an empty breaker manager.
func NewManager(logger observability.Logger, metrics observability.MetricsClient) *Manager {
	return &Manager{
		breakers: make(map[string]CircuitBreaker),
		logger:   logger,
		metrics:  metrics,
	}
}

// GetOrCreate returns the named breaker, creating it from config on
// first use.
func (m *Manager) GetOrCreate(config Config) CircuitBreaker {
	m.mu.RLock()
	cb, ok := m.breakers[config.Name]
	m.mu.RUnlock()
	if ok {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok = m.breakers[config.Name]; ok {
		return cb
	}
	cb = New(config, m.logger, m.metrics)
	m.breakers[config.Name] = cb
	return cb
}

// Get returns the named breaker if registered.
func (m *Manager) Get(name string) (CircuitBreaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cb, ok := m.breakers[name]
	return cb, ok
}
