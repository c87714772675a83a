package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "search-service",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStaticTokenSource(t *testing.T) {
	src := NewStaticTokenSource("fixed-token")

	token, err := src.Token(context.Background(), "https://rerank.internal")
	require.NoError(t, err)
	assert.Equal(t, "fixed-token", token)

	_, err = NewStaticTokenSource("").Token(context.Background(), "aud")
	assert.Error(t, err)
}

func TestIDTokenManagerCachesUntilExpiry(t *testing.T) {
	var fetches atomic.Int64
	raw := signedTestToken(t, time.Now().Add(time.Hour))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		assert.Equal(t, "Google", r.Header.Get("Metadata-Flavor"))
		assert.Equal(t, "https://embed.internal", r.URL.Query().Get("audience"))
		_, _ = w.Write([]byte(raw))
	}))
	defer server.Close()

	m := NewIDTokenManager(server.URL, server.Client(), nil)
	ctx := context.Background()

	token, err := m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)
	assert.Equal(t, raw, token)

	// Second call for the same audience must come from cache.
	_, err = m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())
}

func TestIDTokenManagerPerAudienceCache(t *testing.T) {
	var fetches atomic.Int64
	raw := signedTestToken(t, time.Now().Add(time.Hour))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(raw))
	}))
	defer server.Close()

	m := NewIDTokenManager(server.URL, server.Client(), nil)
	ctx := context.Background()

	_, err := m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)
	_, err = m.Token(ctx, "https://rerank.internal")
	require.NoError(t, err)

	assert.Equal(t, int64(2), fetches.Load())
}

func TestIDTokenManagerRefreshesNearExpiry(t *testing.T) {
	var fetches atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		// Expiry inside the refresh margin forces a refetch per call.
		_, _ = w.Write([]byte(signedTestToken(t, time.Now().Add(30*time.Second))))
	}))
	defer server.Close()

	m := NewIDTokenManager(server.URL, server.Client(), nil)
	ctx := context.Background()

	_, err := m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)
	_, err = m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)

	assert.Equal(t, int64(2), fetches.Load())
}

func TestIDTokenManagerOpaqueToken(t *testing.T) {
	var fetches atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte("opaque-token-value"))
	}))
	defer server.Close()

	m := NewIDTokenManager(server.URL, server.Client(), nil)
	ctx := context.Background()

	token, err := m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)
	assert.Equal(t, "opaque-token-value", token)

	// Non-JWT tokens get the fallback lifetime, so this hits the cache.
	_, err = m.Token(ctx, "https://embed.internal")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())
}

func TestIDTokenManagerEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metadata unavailable", http.StatusInternalServerError)
	}))
	defer server.Close()

	m := NewIDTokenManager(server.URL, server.Client(), nil)

	_, err := m.Token(context.Background(), "https://embed.internal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestIDTokenManagerRequiresAudience(t *testing.T) {
	m := NewIDTokenManager("http://127.0.0.1:1", nil, nil)

	_, err := m.Token(context.Background(), "")
	assert.Error(t, err)
}
