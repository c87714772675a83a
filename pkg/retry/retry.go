// Package retry provides the retry policies used by outbound clients
// and the cache backend.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines the retry policy interface.
type Policy interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	NextDelay(attempt int) time.Duration
}

// Config contains retry configuration.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Multiplier      float64
	MaxRetries      int
}

// ExponentialBackoff implements exponential backoff with jitter.
type ExponentialBackoff struct {
	config Config
}

// NewExponentialBackoff creates an exponential backoff policy, filling
// in defaults for unset fields.
func NewExponentialBackoff(config Config) Policy {
	if config.InitialInterval <= 0 {
		config.InitialInterval = 100 * time.Millisecond
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 30 * time.Second
	}
	if config.MaxElapsedTime <= 0 {
		config.MaxElapsedTime = 5 * time.Minute
	}
	if config.Multiplier <= 1.0 {
		config.Multiplier = 2.0
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 10
	}

	return &ExponentialBackoff{config: config}
}

// Execute runs fn until it succeeds, retries are exhausted, the elapsed
// budget runs out, or ctx is cancelled.
func (e *ExponentialBackoff) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	attempt := 0

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		attempt++

		if e.config.MaxRetries > 0 && attempt >= e.config.MaxRetries {
			return err
		}
		if time.Since(start) >= e.config.MaxElapsedTime {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-time.After(e.NextDelay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NextDelay returns the delay for the given attempt with +/-20% jitter.
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(e.config.InitialInterval) * math.Pow(e.config.Multiplier, float64(attempt-1))

	if delay > float64(e.config.MaxInterval) {
		delay = float64(e.config.MaxInterval)
	}

	jitter := delay * 0.2 * (rand.Float64()*2 - 1)
	delay += jitter

	return time.Duration(delay)
}

// FixedDelay implements a constant-delay retry policy.
type FixedDelay struct {
	delay      time.Duration
	maxRetries int
}

// NewFixedDelay creates a fixed delay retry policy.
func NewFixedDelay(delay time.Duration, maxRetries int) Policy {
	return &FixedDelay{
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// Execute runs fn until it succeeds, retries are exhausted, or ctx is
// cancelled.
func (f *FixedDelay) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		attempt++

		if f.maxRetries > 0 && attempt >= f.maxRetries {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NextDelay returns the fixed delay.
func (f *FixedDelay) NextDelay(attempt int) time.Duration {
	return f.delay
}

// LinearBackoff implements a linearly growing delay: attempt N waits
// N times the base delay. Used by the rerank client.
type LinearBackoff struct {
	base       time.Duration
	maxRetries int
}

// NewLinearBackoff creates a linear backoff policy.
func NewLinearBackoff(base time.Duration, maxRetries int) Policy {
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	return &LinearBackoff{
		base:       base,
		maxRetries: maxRetries,
	}
}

// Execute runs fn until it succeeds, retries are exhausted, or ctx is
// cancelled.
func (l *LinearBackoff) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		attempt++

		if l.maxRetries > 0 && attempt >= l.maxRetries {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-time.After(l.NextDelay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NextDelay returns attempt times the base delay.
func (l *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * l.base
}
