package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/resilience"
	"github.com/hirehound/search/pkg/retry"
)

// ErrRerankDisabled is returned when the rerank client is not
// configured to run.
var ErrRerankDisabled = errors.New("clients: rerank client is disabled")

// RerankDocument is one candidate sent to the cross-encoder.
type RerankDocument struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RerankResult is one scored document returned by the service. Reason
// is a short natural-language explanation the orchestrator merges into
// the candidate's match reasons.
type RerankResult struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

type rerankRequest struct {
	Query     string           `json:"query"`
	Documents []RerankDocument `json:"documents"`
	TopN      int              `json:"topN,omitempty"`
}

type rerankResponse struct {
	Results []RerankResult `json:"results"`
}

// RerankClient calls the external cross-encoder service to reorder the
// local top-K. A consecutive-failure breaker short-circuits calls
// while the service is down; the orchestrator keeps the local order
// whenever a call fails.
type RerankClient struct {
	cfg         config.RerankConfig
	audience    string
	tokens      TokenSource
	httpClient  *http.Client
	retryPolicy retry.Policy
	breaker     resilience.CircuitBreaker
	logger      observability.Logger
	metrics     observability.MetricsClient
}

// NewRerankClient creates the rerank client. It never fails: a
// disabled or unconfigured client simply reports ErrRerankDisabled on
// use.
func NewRerankClient(cfg config.RerankConfig, tokens TokenSource, logger observability.Logger, metrics observability.MetricsClient) *RerankClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 30
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	audience := cfg.Audience
	if audience == "" {
		audience = cfg.BaseURL
	}

	breaker := resilience.New(resilience.Config{
		Name:                "rerank",
		ConsecutiveFailures: uint32(cfg.FailureThreshold),
		Timeout:             time.Duration(cfg.CooldownPeriod) * time.Second,
	}, logger, metrics)

	return &RerankClient{
		cfg:         cfg,
		audience:    audience,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		retryPolicy: retry.NewLinearBackoff(cfg.RetryDelay, cfg.MaxRetries),
		breaker:     breaker,
		logger:      logger,
		metrics:     metrics,
	}
}

// Enabled reports whether the client is configured to run.
func (c *RerankClient) Enabled() bool {
	return c.cfg.Enabled && c.cfg.BaseURL != ""
}

// Available reports whether a rerank call would currently be attempted.
func (c *RerankClient) Available() bool {
	return c.Enabled() && !c.breaker.IsOpen()
}

// TopN returns the configured rerank window size.
func (c *RerankClient) TopN() int {
	return c.cfg.TopN
}

// Rerank scores documents against the query. One fully-retried failure
// counts once toward the breaker threshold.
func (c *RerankClient) Rerank(ctx context.Context, query string, docs []RerankDocument) ([]RerankResult, error) {
	if !c.Enabled() {
		return nil, ErrRerankDisabled
	}
	if len(docs) == 0 {
		return nil, nil
	}

	start := time.Now()
	out, err := c.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return c.rerankWithRetry(ctx, query, docs)
	})
	c.metrics.RecordClientCall("rerank", "rerank", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	return out.([]RerankResult), nil
}

func (c *RerankClient) rerankWithRetry(ctx context.Context, query string, docs []RerankDocument) ([]RerankResult, error) {
	reqBody := rerankRequest{
		Query:     query,
		Documents: docs,
		TopN:      c.cfg.TopN,
	}

	var results []RerankResult
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryPolicy.NextDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		results, lastErr = c.doRequest(ctx, reqBody)
		if lastErr == nil {
			return results, nil
		}
		if !isRetryableError(lastErr) {
			break
		}
		c.logger.Warn("rerank request failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	return nil, lastErr
}

func (c *RerankClient) doRequest(ctx context.Context, reqBody rerankRequest) ([]RerankResult, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/rerank", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if tenantID, ok := auth.TenantFromContext(ctx); ok {
		req.Header.Set("X-Tenant-ID", tenantID.String())
	}
	if requestID := auth.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx, c.audience)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain id token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{
			Provider:    "rerank",
			Code:        "REQUEST_FAILED",
			Message:     err.Error(),
			IsRetryable: true,
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:    "rerank",
			Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:     string(body),
			StatusCode:  resp.StatusCode,
			RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
			IsRetryable: isRetryableStatusCode(resp.StatusCode),
		}
	}

	var out rerankResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Results, nil
}

// Health reports the rerank service state. A disabled client is
// healthy by definition; an open breaker is not.
func (c *RerankClient) Health(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if c.breaker.IsOpen() {
		return errors.New("rerank circuit breaker is open")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank service unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rerank service unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}
