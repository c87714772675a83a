// Package clients holds the outbound service clients: the embedding
// provider, the rerank service, the ML trajectory service, and the
// ID-token manager that authenticates calls between services.
package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hirehound/search/pkg/observability"
)

const (
	defaultIdentityEndpoint = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/identity"

	// Tokens are refreshed this long before their stated expiry so a
	// request never goes out with a token about to lapse mid-flight.
	tokenRefreshMargin = time.Minute

	// Lifetime assumed for opaque tokens that carry no readable expiry.
	fallbackTokenLifetime = 5 * time.Minute
)

// TokenSource provides bearer tokens for service-to-service calls.
type TokenSource interface {
	Token(ctx context.Context, audience string) (string, error)
}

// StaticTokenSource returns a fixed token for every audience. Used in
// development and wherever a pre-issued service token is configured.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a source that always returns token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the fixed token.
func (s *StaticTokenSource) Token(ctx context.Context, audience string) (string, error) {
	if s.token == "" {
		return "", errors.New("clients: static token is empty")
	}
	return s.token, nil
}

type cachedToken struct {
	token  string
	expiry time.Time
}

// IDTokenManager fetches identity tokens from the instance metadata
// endpoint and caches them per audience until shortly before expiry.
// One manager is shared process-wide by all outbound clients.
type IDTokenManager struct {
	endpoint   string
	httpClient *http.Client
	logger     observability.Logger

	mu     sync.RWMutex
	tokens map[string]cachedToken
}

// NewIDTokenManager creates a token manager. An empty endpoint selects
// the platform metadata server, honoring GCE_METADATA_HOST.
func NewIDTokenManager(endpoint string, httpClient *http.Client, logger observability.Logger) *IDTokenManager {
	if endpoint == "" {
		if host := os.Getenv("GCE_METADATA_HOST"); host != "" {
			endpoint = "http://" + host + "/computeMetadata/v1/instance/service-accounts/default/identity"
		} else {
			endpoint = defaultIdentityEndpoint
		}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	return &IDTokenManager{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
		tokens:     make(map[string]cachedToken),
	}
}

// Token returns a cached ID token for the audience, fetching a fresh
// one when the cached token is absent or close to expiry.
func (m *IDTokenManager) Token(ctx context.Context, audience string) (string, error) {
	if audience == "" {
		return "", errors.New("clients: token audience is required")
	}

	m.mu.RLock()
	cached, ok := m.tokens[audience]
	m.mu.RUnlock()
	if ok && time.Now().Before(cached.expiry.Add(-tokenRefreshMargin)) {
		return cached.token, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if cached, ok := m.tokens[audience]; ok && time.Now().Before(cached.expiry.Add(-tokenRefreshMargin)) {
		return cached.token, nil
	}

	token, expiry, err := m.fetch(ctx, audience)
	if err != nil {
		return "", err
	}

	m.tokens[audience] = cachedToken{token: token, expiry: expiry}
	m.logger.Debug("id token refreshed", map[string]interface{}{
		"audience": audience,
		"expiry":   expiry.Format(time.RFC3339),
	})
	return token, nil
}

func (m *IDTokenManager) fetch(ctx context.Context, audience string) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token request: %w", err)
	}

	q := req.URL.Query()
	q.Set("audience", audience)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to fetch id token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", time.Time{}, errors.New("token endpoint returned an empty token")
	}

	return token, tokenExpiry(token), nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// token came from the trusted metadata endpoint and is consumed by the
// target service, not by us.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(fallbackTokenLifetime)
}
