package clients

import (
	"context"
	"fmt"
	"math"

	"github.com/hirehound/search/pkg/common"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/observability"
)

// EmbeddingClient produces query embeddings. Implementations must
// return unit-norm vectors of the configured dimension.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Health(ctx context.Context) error
	Close() error
}

// NewEmbeddingClient selects the provider implementation from config:
// "service" talks to the platform embedding service over HTTP,
// "bedrock" invokes Titan text embeddings through AWS Bedrock.
func NewEmbeddingClient(ctx context.Context, cfg config.EmbeddingConfig, tokens TokenSource, logger observability.Logger, metrics observability.MetricsClient) (EmbeddingClient, error) {
	switch cfg.Provider {
	case "", "service":
		return NewServiceEmbeddingClient(cfg, tokens, logger, metrics)
	case "bedrock":
		return NewBedrockEmbeddingClient(ctx, cfg, logger, metrics)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// unitNormTolerance is the norm drift beyond which a provider vector is
// re-normalized before use. Cosine ordering in the store assumes unit
// vectors.
const unitNormTolerance = 1e-6

// validateEmbedding rejects empty, zero, or wrongly-sized vectors and
// re-normalizes output whose norm has drifted from unit length.
func validateEmbedding(provider string, vector []float32, wantDims int) ([]float32, error) {
	if len(vector) == 0 {
		return nil, &ProviderError{
			Provider: provider,
			Code:     "EMPTY_EMBEDDING",
			Message:  "provider returned an empty embedding",
		}
	}
	if wantDims > 0 && len(vector) != wantDims {
		return nil, &ProviderError{
			Provider: provider,
			Code:     "DIMENSION_MISMATCH",
			Message:  fmt.Sprintf("expected %d dimensions, got %d", wantDims, len(vector)),
		}
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < 1e-10 {
		return nil, &ProviderError{
			Provider: provider,
			Code:     "ZERO_VECTOR",
			Message:  "provider returned a zero vector",
		}
	}
	if math.Abs(norm-1) > unitNormTolerance {
		return common.NormalizeL2(vector), nil
	}
	return vector, nil
}
