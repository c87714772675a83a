package nlp

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hirehound/search/pkg/common"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// Embedder generates a unit-norm embedding for a text. Satisfied by the
// embedding client.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DefaultIntentThreshold is the minimum centroid similarity required to
// accept a route.
const DefaultIntentThreshold = 0.6

// intentSeeds are the utterances whose embedding centroid defines each
// route, in English and Portuguese.
var intentSeeds = map[models.Intent][]string{
	models.IntentStructuredSearch: {
		"find senior python developers in sao paulo",
		"looking for a backend engineer with 5 years of experience",
		"java developers who know kubernetes and aws",
		"hire a staff engineer for our platform team",
		"procuro desenvolvedor java pleno em sao paulo",
		"buscar engenheiro de dados senior com experiencia em spark",
		"desenvolvedores react com ingles fluente",
	},
	models.IntentSimilaritySearch: {
		"candidates similar to this profile",
		"more people like this candidate",
		"profiles matching this resume",
		"who else looks like our best engineer",
		"perfis parecidos com este candidato",
		"candidatos semelhantes a este curriculo",
	},
}

// IntentRouter classifies queries into routes by cosine similarity
// against lazily computed seed centroids.
type IntentRouter struct {
	embedder  Embedder
	threshold float64
	logger    observability.Logger

	mu        sync.RWMutex
	centroids map[models.Intent][]float32
	initGroup singleflight.Group
}

// NewIntentRouter creates a router. Centroids are computed on first use.
func NewIntentRouter(embedder Embedder, threshold float64, logger observability.Logger) *IntentRouter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultIntentThreshold
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &IntentRouter{
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

// IsInitialized reports whether centroids have been computed.
func (r *IntentRouter) IsInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.centroids != nil
}

// Initialize computes the route centroids. Idempotent; concurrent calls
// coalesce into a single embedding pass.
func (r *IntentRouter) Initialize(ctx context.Context) error {
	if r.IsInitialized() {
		return nil
	}

	_, err, _ := r.initGroup.Do("centroids", func() (interface{}, error) {
		if r.IsInitialized() {
			return nil, nil
		}

		centroids := make(map[models.Intent][]float32, len(intentSeeds))
		for intent, seeds := range intentSeeds {
			vectors := make([][]float32, 0, len(seeds))
			for _, seed := range seeds {
				v, err := r.embedder.GenerateEmbedding(ctx, seed)
				if err != nil {
					return nil, fmt.Errorf("failed to embed intent seed for %s: %w", intent, err)
				}
				vectors = append(vectors, v)
			}
			centroid, err := common.AverageEmbeddings(vectors)
			if err != nil {
				return nil, fmt.Errorf("failed to average centroid for %s: %w", intent, err)
			}
			centroids[intent] = common.NormalizeL2(centroid)
		}

		r.mu.Lock()
		r.centroids = centroids
		r.mu.Unlock()

		r.logger.Info("Intent router initialized", map[string]interface{}{
			"routes": len(centroids),
		})
		return nil, nil
	})
	return err
}

// Classify routes a query by its embedding. Returns keyword_fallback
// with confidence 0 when the embedding is missing or initialization
// fails; below-threshold matches also fall back, keeping the observed
// similarity as confidence.
func (r *IntentRouter) Classify(ctx context.Context, queryEmbedding []float32) (models.Intent, float64) {
	if len(queryEmbedding) == 0 {
		return models.IntentKeywordFallback, 0
	}
	if err := r.Initialize(ctx); err != nil {
		r.logger.Warn("Intent classification unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return models.IntentKeywordFallback, 0
	}

	r.mu.RLock()
	centroids := r.centroids
	r.mu.RUnlock()

	best := models.IntentKeywordFallback
	bestSim := float64(-1)
	for intent, centroid := range centroids {
		sim, err := common.CosineSimilarity(queryEmbedding, centroid)
		if err != nil {
			continue
		}
		if float64(sim) > bestSim {
			bestSim = float64(sim)
			best = intent
		}
	}

	if bestSim < 0 {
		return models.IntentKeywordFallback, 0
	}
	if bestSim < r.threshold {
		return models.IntentKeywordFallback, bestSim
	}
	return best, bestSim
}
