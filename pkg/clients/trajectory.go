package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// TrajectoryClient fetches career-trajectory predictions for
// candidates. The service is optional: a background poller tracks its
// availability and the orchestrator omits the trajectory block while
// it is down. A trajectory failure never fails a search.
type TrajectoryClient struct {
	cfg        config.TrajectoryConfig
	httpClient *http.Client
	logger     observability.Logger
	metrics    observability.MetricsClient

	available atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

type trajectoryRequest struct {
	CandidateIDs []string `json:"candidateIds"`
}

type trajectoryResponse struct {
	Trajectories map[string]*models.MLTrajectory `json:"trajectories"`
}

// NewTrajectoryClient creates the client and, when enabled, starts the
// availability poller. Callers must Close to stop it.
func NewTrajectoryClient(cfg config.TrajectoryConfig, logger observability.Logger, metrics observability.MetricsClient) *TrajectoryClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	c := &TrajectoryClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    metrics,
		stop:       make(chan struct{}),
	}

	if c.enabled() {
		c.wg.Add(1)
		go c.pollHealth()
	}

	return c
}

func (c *TrajectoryClient) enabled() bool {
	return c.cfg.Enabled && c.cfg.BaseURL != ""
}

// Available reports whether the last health probe succeeded.
func (c *TrajectoryClient) Available() bool {
	return c.enabled() && c.available.Load()
}

func (c *TrajectoryClient) pollHealth() {
	defer c.wg.Done()

	c.checkHealth()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkHealth()
		case <-c.stop:
			return
		}
	}
}

func (c *TrajectoryClient) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PollTimeout)
	defer cancel()

	err := c.probe(ctx)
	now := err == nil
	was := c.available.Swap(now)

	if was != now {
		fields := map[string]interface{}{"available": now}
		if err != nil {
			fields["error"] = err.Error()
		}
		c.logger.Info("trajectory service availability changed", fields)
	}

	value := 0.0
	if now {
		value = 1.0
	}
	c.metrics.RecordGauge("trajectory_service_available", value, nil)
}

func (c *TrajectoryClient) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trajectory service unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trajectory service unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// GetTrajectories fetches predictions for a batch of candidates. It
// returns nil without error while the service is unavailable so the
// caller can skip the block without special-casing.
func (c *TrajectoryClient) GetTrajectories(ctx context.Context, candidateIDs []string) (map[string]*models.MLTrajectory, error) {
	if !c.Available() || len(candidateIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	out, err := c.fetch(ctx, candidateIDs)
	c.metrics.RecordClientCall("trajectory", "get_trajectories", err == nil, time.Since(start))
	if err != nil {
		c.logger.Warn("trajectory fetch failed", map[string]interface{}{
			"candidates": len(candidateIDs),
			"error":      err.Error(),
		})
		return nil, err
	}
	return out, nil
}

func (c *TrajectoryClient) fetch(ctx context.Context, candidateIDs []string) (map[string]*models.MLTrajectory, error) {
	data, err := json.Marshal(trajectoryRequest{CandidateIDs: candidateIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/trajectories", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	if tenantID, ok := auth.TenantFromContext(ctx); ok {
		req.Header.Set("X-Tenant-ID", tenantID.String())
	}
	if requestID := auth.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trajectory request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trajectory service returned %d: %s", resp.StatusCode, string(body))
	}

	var out trajectoryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Trajectories, nil
}

// Health reports the last known availability. A disabled client is
// healthy by definition.
func (c *TrajectoryClient) Health(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	if !c.available.Load() {
		return fmt.Errorf("trajectory service unavailable")
	}
	return nil
}

// Close stops the availability poller.
func (c *TrajectoryClient) Close() error {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
	return nil
}
