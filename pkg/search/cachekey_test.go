package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hirehound/search/pkg/models"
)

func TestCacheTokenDeterministic(t *testing.T) {
	req := &models.SearchRequest{
		Query: "senior python developer",
		Limit: 20,
		Filters: models.SearchFilters{
			Skills:    []string{"Python", "Django"},
			Countries: []string{"Brazil"},
		},
	}
	assert.Equal(t, CacheToken(req), CacheToken(req))
}

func TestCacheTokenFilterOrderInsensitive(t *testing.T) {
	a := &models.SearchRequest{
		Query:   "backend engineer",
		Filters: models.SearchFilters{Skills: []string{"Go", "Postgres", "Redis"}},
	}
	b := &models.SearchRequest{
		Query:   "backend engineer",
		Filters: models.SearchFilters{Skills: []string{"Redis", "Go", "Postgres"}},
	}
	assert.Equal(t, CacheToken(a), CacheToken(b))
}

func TestCacheTokenDistinguishesRequests(t *testing.T) {
	base := models.SearchRequest{Query: "data engineer", Limit: 10}

	variants := []func(r *models.SearchRequest){
		func(r *models.SearchRequest) { r.Query = "data scientist" },
		func(r *models.SearchRequest) { r.Limit = 50 },
		func(r *models.SearchRequest) { r.Offset = 10 },
		func(r *models.SearchRequest) { r.JobDescription = "build pipelines" },
		func(r *models.SearchRequest) { r.JDHash = "abc123" },
		func(r *models.SearchRequest) { r.Anonymize = true },
		func(r *models.SearchRequest) { r.RoleType = models.RoleTypeManager },
		func(r *models.SearchRequest) { r.SignalWeights = map[string]float64{"vectorSimilarity": 0.9} },
		func(r *models.SearchRequest) { r.Filters.Countries = []string{"Brazil"} },
	}

	baseToken := CacheToken(&base)
	for i, mutate := range variants {
		req := base
		mutate(&req)
		assert.NotEqual(t, baseToken, CacheToken(&req), "variant %d should change the token", i)
	}
}

func TestEmbeddingCacheIDNormalizes(t *testing.T) {
	assert.Equal(t, EmbeddingCacheID("  Senior Developer "), EmbeddingCacheID("senior developer"))
	assert.NotEqual(t, EmbeddingCacheID("senior developer"), EmbeddingCacheID("junior developer"))
}
