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
)

// ServiceEmbeddingClient calls the platform embedding service over
// HTTP. Requests carry the tenant, the request ID, and a bearer token
// whose audience is the service URL.
type ServiceEmbeddingClient struct {
	cfg        config.EmbeddingConfig
	audience   string
	tokens     TokenSource
	httpClient *http.Client
	logger     observability.Logger
	metrics    observability.MetricsClient
}

type embedRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type embedResponse struct {
	Embedding  []float32 `json:"embedding"`
	Model      string    `json:"model,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
}

type serviceErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServiceEmbeddingClient creates the HTTP embedding client. The
// token source may be nil when the service accepts unauthenticated
// calls or an API key is configured.
func NewServiceEmbeddingClient(cfg config.EmbeddingConfig, tokens TokenSource, logger observability.Logger, metrics observability.MetricsClient) (*ServiceEmbeddingClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding service base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
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
	if cfg.APIKey != "" {
		tokens = NewStaticTokenSource(cfg.APIKey)
	}

	return &ServiceEmbeddingClient{
		cfg:        cfg,
		audience:   audience,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// GenerateEmbedding embeds text, retrying transient failures with
// exponential backoff and honoring Retry-After on throttling.
func (c *ServiceEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	var resp *embedResponse
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt, lastErr)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, lastErr = c.doRequest(ctx, embedRequest{Text: text, Model: c.cfg.Model})
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			break
		}
		c.logger.Warn("embedding request failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	c.metrics.RecordClientCall("embedding", "generate", lastErr == nil, time.Since(start))
	if lastErr != nil {
		return nil, lastErr
	}

	return validateEmbedding("service", resp.Embedding, c.cfg.Dims)
}

func (c *ServiceEmbeddingClient) doRequest(ctx context.Context, reqBody embedRequest) (*embedResponse, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embed", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{
			Provider:    "service",
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
		return nil, c.providerError(resp, body)
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}

	return &out, nil
}

func (c *ServiceEmbeddingClient) setHeaders(ctx context.Context, req *http.Request) error {
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
			return fmt.Errorf("failed to obtain id token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *ServiceEmbeddingClient) providerError(resp *http.Response, body []byte) *ProviderError {
	provErr := &ProviderError{
		Provider:    "service",
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:     string(body),
		StatusCode:  resp.StatusCode,
		RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
		IsRetryable: isRetryableStatusCode(resp.StatusCode),
	}

	var errResp serviceErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		if errResp.Code != "" {
			provErr.Code = errResp.Code
		}
		provErr.Message = errResp.Message
	}
	return provErr
}

func (c *ServiceEmbeddingClient) retryDelay(attempt int, lastErr error) time.Duration {
	var provErr *ProviderError
	if errors.As(lastErr, &provErr) && provErr.RetryAfter != nil {
		return *provErr.RetryAfter
	}

	delay := c.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > 5*time.Second {
		delay = 5 * time.Second
	}
	return delay
}

// Health checks the embedding service health endpoint.
func (c *ServiceEmbeddingClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Close releases client resources.
func (c *ServiceEmbeddingClient) Close() error {
	return nil
}
