package clients

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ProviderError describes a failed call to an external service with
// enough detail for the retry loop to decide whether to try again.
type ProviderError struct {
	Provider    string         `json:"provider"`
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	StatusCode  int            `json:"status_code,omitempty"`
	RetryAfter  *time.Duration `json:"retry_after,omitempty"`
	IsRetryable bool           `json:"is_retryable"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error [%s]: %s", e.Provider, e.Code, e.Message)
}

func isRetryableStatusCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isRetryableError treats network-level failures as retryable and
// defers to the provider's status code otherwise.
func isRetryableError(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable
	}
	return true
}

func parseRetryAfter(header string) *time.Duration {
	if header == "" {
		return nil
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		duration := time.Duration(seconds) * time.Second
		return &duration
	}

	if t, err := http.ParseTime(header); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return &duration
		}
	}

	return nil
}
