package clients

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/config"
)

func unitVector(dims int) []float32 {
	v := make([]float32, dims)
	val := float32(1.0 / math.Sqrt(float64(dims)))
	for i := range v {
		v[i] = val
	}
	return v
}

func TestServiceEmbeddingClientGenerate(t *testing.T) {
	tenantID := uuid.New()
	vector := unitVector(8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, tenantID.String(), r.Header.Get("X-Tenant-ID"))
		assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var req embedRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "engenheiro de dados", req.Text)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: vector, Model: req.Model})
	}))
	defer server.Close()

	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{
		BaseURL: server.URL,
		APIKey:  "service-key",
		Model:   "text-embedding-3-small",
		Dims:    8,
	}, nil, nil, nil)
	require.NoError(t, err)

	ctx := auth.WithRequestID(auth.WithTenantID(context.Background(), tenantID), "req-42")

	got, err := client.GenerateEmbedding(ctx, "engenheiro de dados")
	require.NoError(t, err)
	assert.Equal(t, vector, got)
}

func TestServiceEmbeddingClientRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"code":"OVERLOADED","message":"try later"}`, http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: unitVector(4)})
	}))
	defer server.Close()

	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{
		BaseURL:    server.URL,
		Dims:       4,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, nil, nil, nil)
	require.NoError(t, err)

	got, err := client.GenerateEmbedding(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, int64(2), calls.Load())
}

func TestServiceEmbeddingClientDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"code":"TEXT_TOO_LONG","message":"input exceeds limit"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, nil, nil, nil)
	require.NoError(t, err)

	_, err = client.GenerateEmbedding(context.Background(), "query")
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "TEXT_TOO_LONG", provErr.Code)
	assert.Equal(t, http.StatusBadRequest, provErr.StatusCode)
	assert.False(t, provErr.IsRetryable)
	assert.Equal(t, int64(1), calls.Load())
}

func TestServiceEmbeddingClientRenormalizesDrift(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{3, 4}})
	}))
	defer server.Close()

	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{
		BaseURL: server.URL,
		Dims:    2,
	}, nil, nil, nil)
	require.NoError(t, err)

	got, err := client.GenerateEmbedding(context.Background(), "query")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)
}

func TestServiceEmbeddingClientDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: unitVector(4)})
	}))
	defer server.Close()

	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{
		BaseURL: server.URL,
		Dims:    8,
	}, nil, nil, nil)
	require.NoError(t, err)

	_, err = client.GenerateEmbedding(context.Background(), "query")
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "DIMENSION_MISMATCH", provErr.Code)
}

func TestServiceEmbeddingClientRequiresBaseURL(t *testing.T) {
	_, err := NewServiceEmbeddingClient(config.EmbeddingConfig{}, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestServiceEmbeddingClientRetryAfterHonored(t *testing.T) {
	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{
		BaseURL:    "http://embed.internal",
		RetryDelay: 200 * time.Millisecond,
	}, nil, nil, nil)
	require.NoError(t, err)

	retryAfter := 3 * time.Second
	withHint := &ProviderError{Provider: "service", RetryAfter: &retryAfter, IsRetryable: true}
	assert.Equal(t, retryAfter, client.retryDelay(1, withHint))

	withoutHint := &ProviderError{Provider: "service", IsRetryable: true}
	assert.Equal(t, 200*time.Millisecond, client.retryDelay(1, withoutHint))
	assert.Equal(t, 400*time.Millisecond, client.retryDelay(2, withoutHint))
}

func TestServiceEmbeddingClientHealth(t *testing.T) {
	healthy := atomic.Bool{}
	healthy.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client, err := NewServiceEmbeddingClient(config.EmbeddingConfig{BaseURL: server.URL}, nil, nil, nil)
	require.NoError(t, err)

	assert.NoError(t, client.Health(context.Background()))

	healthy.Store(false)
	assert.Error(t, client.Health(context.Background()))
}

func TestNewEmbeddingClientUnknownProvider(t *testing.T) {
	_, err := NewEmbeddingClient(context.Background(), config.EmbeddingConfig{Provider: "quantum"}, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestValidateEmbedding(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := validateEmbedding("service", nil, 0)
		require.Error(t, err)
		var provErr *ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "EMPTY_EMBEDDING", provErr.Code)
	})

	t.Run("zero vector", func(t *testing.T) {
		_, err := validateEmbedding("service", []float32{0, 0, 0}, 0)
		require.Error(t, err)
		var provErr *ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "ZERO_VECTOR", provErr.Code)
	})

	t.Run("unit vector passes through", func(t *testing.T) {
		v := unitVector(16)
		got, err := validateEmbedding("service", v, 16)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("drifted vector renormalized", func(t *testing.T) {
		got, err := validateEmbedding("service", []float32{0, 2}, 2)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got[0], 1e-6)
		assert.InDelta(t, 1.0, got[1], 1e-6)
	})
}
