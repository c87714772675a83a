package perf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerPercentiles(t *testing.T) {
	tr := NewTracker(200)
	for i := 1; i <= 100; i++ {
		tr.Record(Sample{
			Total:     time.Duration(i) * time.Millisecond,
			Retrieval: time.Duration(i) * time.Millisecond / 2,
		})
	}

	stats := tr.Stats()
	assert.Equal(t, uint64(100), stats.Recorded)
	assert.Equal(t, 100, stats.Window)

	un := stats.Uncached
	assert.Equal(t, 100, un.Count)
	assert.InDelta(t, 50, un.Total.P50, 1e-9)
	assert.InDelta(t, 90, un.Total.P90, 1e-9)
	assert.InDelta(t, 95, un.Total.P95, 1e-9)
	assert.InDelta(t, 99, un.Total.P99, 1e-9)
	assert.Equal(t, 100, un.Retrieval.Count)
	assert.InDelta(t, 25, un.Retrieval.P50, 1e-9)

	assert.Zero(t, stats.CacheHit.Count)
}

func TestTrackerSeparatesCacheHits(t *testing.T) {
	tr := NewTracker(100)
	for i := 0; i < 10; i++ {
		tr.Record(Sample{Total: 2 * time.Millisecond, CacheHit: true})
		tr.Record(Sample{Total: 20 * time.Millisecond, Embedding: 5 * time.Millisecond})
	}

	stats := tr.Stats()
	assert.Equal(t, 10, stats.CacheHit.Count)
	assert.Equal(t, 10, stats.Uncached.Count)
	assert.InDelta(t, 2, stats.CacheHit.Total.P50, 1e-9)
	assert.InDelta(t, 20, stats.Uncached.Total.P50, 1e-9)

	// Cache hits never ran the embedding stage.
	assert.Zero(t, stats.CacheHit.Embedding.Count)
	assert.Equal(t, 10, stats.Uncached.Embedding.Count)
}

func TestTrackerRingOverwrite(t *testing.T) {
	tr := NewTracker(5)
	for i := 1; i <= 8; i++ {
		tr.Record(Sample{Total: time.Duration(i) * time.Millisecond})
	}

	stats := tr.Stats()
	assert.Equal(t, uint64(8), stats.Recorded)
	assert.Equal(t, 5, stats.Window)

	// Window holds samples 4..8 after wrap-around.
	assert.InDelta(t, 6, stats.Uncached.Total.P50, 1e-9)
	assert.InDelta(t, 8, stats.Uncached.Total.P99, 1e-9)
}

func TestTrackerRerankOnlyCountsRerankedSamples(t *testing.T) {
	tr := NewTracker(100)
	tr.Record(Sample{Total: 30 * time.Millisecond, Reranked: true, Rerank: 12 * time.Millisecond})
	tr.Record(Sample{Total: 10 * time.Millisecond})
	tr.Record(Sample{Total: 11 * time.Millisecond})

	stats := tr.Stats()
	assert.Equal(t, 3, stats.Uncached.Count)
	assert.Equal(t, 1, stats.Uncached.Rerank.Count)
	assert.InDelta(t, 12, stats.Uncached.Rerank.P95, 1e-9)
}

func TestTrackerStageBreakdown(t *testing.T) {
	tr := NewTracker(100)
	for i := 1; i <= 4; i++ {
		tr.Record(Sample{
			Total: 10 * time.Millisecond,
			Stages: map[string]time.Duration{
				"parse":   time.Duration(i) * time.Millisecond,
				"scoring": 2 * time.Millisecond,
			},
		})
	}

	stats := tr.Stats()
	require.Contains(t, stats.Uncached.Stages, "parse")
	parse := stats.Uncached.Stages["parse"]
	assert.Equal(t, 4, parse.Count)
	assert.InDelta(t, 2, parse.P50, 1e-9)
	assert.InDelta(t, 4, parse.P99, 1e-9)
}

func TestTrackerDefaultCapacity(t *testing.T) {
	tr := NewTracker(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		tr.Record(Sample{Total: time.Millisecond})
	}

	stats := tr.Stats()
	assert.Equal(t, DefaultCapacity, stats.Window)
	assert.Equal(t, uint64(DefaultCapacity+10), stats.Recorded)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(Sample{Total: time.Millisecond})
	tr.Reset()

	stats := tr.Stats()
	assert.Zero(t, stats.Recorded)
	assert.Zero(t, stats.Window)
}

func TestTrackerConcurrentRecord(t *testing.T) {
	tr := NewTracker(50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.Record(Sample{Total: time.Millisecond})
				_ = tr.Stats()
			}
		}()
	}
	wg.Wait()

	stats := tr.Stats()
	assert.Equal(t, uint64(800), stats.Recorded)
	assert.Equal(t, 50, stats.Window)
}
