package bias

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hirehound/search/pkg/cache"
	"github.com/hirehound/search/pkg/models"
)

type fakeLayerCache struct {
	*cache.NoopCache
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeLayerCache() *fakeLayerCache {
	return &fakeLayerCache{NoopCache: cache.NewNoopCache(), data: map[string][]byte{}}
}

func (f *fakeLayerCache) Get(ctx context.Context, layer cache.Layer, id string, dest interface{}) bool {
	f.mu.Lock()
	raw, ok := f.data[string(layer)+":"+id]
	f.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (f *fakeLayerCache) Set(ctx context.Context, layer cache.Layer, id string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.data[string(layer)+":"+id] = raw
	f.mu.Unlock()
	return nil
}

func TestSpecialtyCacheMemoizes(t *testing.T) {
	ctx := context.Background()
	backing := newFakeLayerCache()
	sc := NewSpecialtyCache(backing)

	cand := &models.Candidate{
		CandidateID: "cand-1",
		Title:       "Backend Engineer",
		Skills:      []string{"go"},
	}

	assert.Equal(t, models.SpecialtyBackend, sc.Specialty(ctx, cand))

	// A second lookup serves the cached value even when the inputs
	// changed, proving the classification was not re-run.
	cand.Title = "Frontend Engineer"
	cand.Skills = []string{"react"}
	assert.Equal(t, models.SpecialtyBackend, sc.Specialty(ctx, cand))
}

func TestSpecialtyCacheNilFallsBack(t *testing.T) {
	cand := &models.Candidate{Title: "Data Engineer"}

	var sc *SpecialtyCache
	assert.Equal(t, models.SpecialtyData, sc.Specialty(context.Background(), cand))
	assert.Equal(t, models.SpecialtyData, NewSpecialtyCache(nil).Specialty(context.Background(), cand))
}

func TestSpecialtyCacheDimensions(t *testing.T) {
	sc := NewSpecialtyCache(newFakeLayerCache())
	cand := &models.Candidate{
		CandidateID:     "cand-2",
		Title:           "DevOps Engineer",
		YearsExperience: 9,
		Profile:         map[string]interface{}{models.ProfileKeyCompanyTier: "startup"},
	}

	tier, band, specialty := sc.Dimensions(context.Background(), cand)
	assert.Equal(t, models.TierStartup, tier)
	assert.Equal(t, models.Band7to15, band)
	assert.Equal(t, models.SpecialtyDevops, specialty)
}
