package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/resilience"
)

// DefaultRationaleTimeout bounds one rationale generation. Rationale is
// optional response garnish and must never dominate request latency.
const DefaultRationaleTimeout = 2 * time.Second

const rationaleSystemPrompt = "You are a recruiting assistant. " +
	"Write one or two sentences explaining why the candidate summary fits the job description. " +
	"Mention only facts present in the summary. Do not mention the candidate's name. " +
	"Return plain text, no markdown."

// RationaleClient generates short per-candidate match rationales via
// the LLM chat endpoint. Failures are returned to the caller, which
// substitutes a generic fallback text.
type RationaleClient struct {
	cfg     config.NLPConfig
	client  *http.Client
	breaker resilience.CircuitBreaker
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewRationaleClient builds a rationale generator on the NLP LLM
// endpoint. Returns nil when no endpoint is configured; the
// orchestrator treats a nil client as rationale-disabled.
func NewRationaleClient(cfg config.NLPConfig, logger observability.Logger, metrics observability.MetricsClient) *RationaleClient {
	if cfg.LLMBaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	return &RationaleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: DefaultRationaleTimeout},
		breaker: resilience.New(resilience.Config{
			Name: "llm-rationale",
		}, logger, metrics),
		logger:  logger,
		metrics: metrics,
	}
}

// GenerateRationale produces a short explanation of the candidate/job
// fit from the given summary text.
func (c *RationaleClient) GenerateRationale(ctx context.Context, jobDescription, candidateSummary string) (string, error) {
	start := time.Now()
	out, err := c.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return c.complete(ctx, jobDescription, candidateSummary)
	})
	c.metrics.RecordClientCall("rationale", "generate", err == nil, time.Since(start))
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *RationaleClient) complete(ctx context.Context, jobDescription, candidateSummary string) (string, error) {
	user := "Job description:\n" + jobDescription + "\n\nCandidate summary:\n" + candidateSummary
	reqBody := map[string]interface{}{
		"model": c.cfg.LLMModel,
		"messages": []map[string]string{
			{"role": "system", "content": rationaleSystemPrompt},
			{"role": "user", "content": user},
		},
		"temperature": 0.2,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.LLMBaseURL, "/")+"/chat/completions",
		bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM API returned status %d", resp.StatusCode)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("LLM response contained no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("LLM returned an empty rationale")
	}
	return text, nil
}
