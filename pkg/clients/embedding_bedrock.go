package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
)

// BedrockEmbeddingClient invokes Amazon Titan text embeddings through
// the Bedrock runtime. Credentials come from the standard AWS chain.
type BedrockEmbeddingClient struct {
	cfg     config.EmbeddingConfig
	client  *bedrockruntime.Client
	logger  observability.Logger
	metrics observability.MetricsClient
}

type titanEmbeddingRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"`
}

type titanEmbeddingResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockEmbeddingClient creates the Bedrock provider. The optional
// endpoint override in config supports local stacks.
func NewBedrockEmbeddingClient(ctx context.Context, cfg config.EmbeddingConfig, logger observability.Logger, metrics observability.MetricsClient) (*BedrockEmbeddingClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Bedrock.ModelID == "" {
		cfg.Bedrock.ModelID = "amazon.titan-embed-text-v2:0"
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Bedrock.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var opts []func(*bedrockruntime.Options)
	if cfg.Bedrock.Endpoint != "" {
		opts = append(opts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.Bedrock.Endpoint)
		})
	}

	return &BedrockEmbeddingClient{
		cfg:     cfg,
		client:  bedrockruntime.NewFromConfig(awsCfg, opts...),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// GenerateEmbedding embeds text with the configured Titan model,
// retrying throttling and transient service errors.
func (c *BedrockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	titanReq := titanEmbeddingRequest{
		InputText: text,
		Normalize: true,
	}
	// Titan v2 only accepts these output sizes; other configured
	// dimensions fall back to the model default.
	switch c.cfg.Dims {
	case 256, 512, 1024:
		titanReq.Dimensions = c.cfg.Dims
	}

	requestBody, err := json.Marshal(titanReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *titanEmbeddingResponse
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, lastErr = c.invoke(ctx, requestBody)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			break
		}
		c.logger.Warn("bedrock invocation failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"model":   c.cfg.Bedrock.ModelID,
			"error":   lastErr.Error(),
		})
	}

	c.metrics.RecordClientCall("embedding", "generate", lastErr == nil, time.Since(start))
	if lastErr != nil {
		return nil, lastErr
	}

	return validateEmbedding("bedrock", resp.Embedding, c.cfg.Dims)
}

func (c *BedrockEmbeddingClient) invoke(ctx context.Context, requestBody []byte) (*titanEmbeddingResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, err := c.client.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.cfg.Bedrock.ModelID),
		ContentType: aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, &ProviderError{
			Provider:    "bedrock",
			Code:        "INVOCATION_ERROR",
			Message:     err.Error(),
			IsRetryable: isRetryableBedrockError(err),
		}
	}

	var titanResp titanEmbeddingResponse
	if err := json.Unmarshal(out.Body, &titanResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &titanResp, nil
}

// Health verifies Bedrock credentials and connectivity with a minimal
// invocation. Model-level errors are tolerated: they mean the endpoint
// answered.
func (c *BedrockEmbeddingClient) Health(ctx context.Context) error {
	requestBody, err := json.Marshal(titanEmbeddingRequest{InputText: "health"})
	if err != nil {
		return fmt.Errorf("failed to marshal health check request: %w", err)
	}

	_, err = c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.cfg.Bedrock.ModelID),
		ContentType: aws.String("application/json"),
		Body:        requestBody,
	})
	if err == nil {
		return nil
	}

	errStr := err.Error()
	for _, fatal := range []string{
		"AccessDeniedException",
		"UnauthorizedClient",
		"ExpiredToken",
		"InvalidSignature",
		"no valid credentials",
	} {
		if strings.Contains(errStr, fatal) {
			return fmt.Errorf("bedrock authentication failed: %s", errStr)
		}
	}
	for _, transient := range []string{"connection", "timeout", "network"} {
		if strings.Contains(errStr, transient) {
			return fmt.Errorf("bedrock connectivity issue: %s", errStr)
		}
	}
	return nil
}

// Close releases client resources.
func (c *BedrockEmbeddingClient) Close() error {
	return nil
}

func isRetryableBedrockError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	for _, retryable := range []string{
		"ThrottlingException",
		"ServiceUnavailable",
		"TooManyRequests",
		"RequestTimeout",
		"ModelTimeoutException",
	} {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}
