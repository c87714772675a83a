// Package observability provides the logging, metrics, and tracing
// surface shared by every component of the search service. Components
// accept the interfaces defined here and fall back to no-op
// implementations when none are supplied.
package observability

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel defines log message severity.
type LogLevel string

// Log levels, ordered.
const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// Logger is the project-wide structured logging interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Fatal(msg string, fields map[string]interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithPrefix returns a logger scoped to a component name.
	WithPrefix(prefix string) Logger
	// With returns a logger that attaches the given fields to every entry.
	With(fields map[string]interface{}) Logger
}

// MetricsClient is the metrics recording interface. Implementations must
// be safe for concurrent use.
type MetricsClient interface {
	RecordCounter(name string, value float64, labels map[string]string)
	RecordGauge(name string, value float64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	RecordDuration(name string, duration time.Duration, labels map[string]string)

	// StartTimer returns a func that records the elapsed time when called.
	StartTimer(name string, labels map[string]string) func()

	// RecordCacheOperation records one cache access for a layer.
	// result is "hit", "miss", or "error".
	RecordCacheOperation(layer, operation, result string)

	// RecordStageLatency records one search pipeline stage duration.
	RecordStageLatency(stage string, duration time.Duration)

	// RecordClientCall records one outbound client call.
	RecordClientCall(client, operation string, success bool, duration time.Duration)

	Close() error
}

// Span is the tracing facade handed to components so they do not depend
// on the OpenTelemetry API directly.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	AddEvent(name string, attributes map[string]interface{})
	RecordError(err error)
	SetStatus(code int, description string)
	SpanContext() trace.SpanContext
}

// Span status codes accepted by Span.SetStatus.
const (
	StatusOK    = 1
	StatusError = 2
)

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Endpoint    string `mapstructure:"endpoint"`
}

// LoggingConfig configures the standard logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Prefix string `mapstructure:"prefix"`
}
