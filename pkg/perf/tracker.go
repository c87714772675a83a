// Package perf tracks end-to-end search latency in a bounded ring
// buffer and reports percentile statistics per pipeline stage,
// separating cache hits from full pipeline runs.
package perf

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the ring buffer size when none is configured.
const DefaultCapacity = 500

// Sample is one completed search request.
type Sample struct {
	Total     time.Duration
	Embedding time.Duration
	Retrieval time.Duration
	Rerank    time.Duration

	CacheHit bool
	Reranked bool

	// Stages holds the optional fine-grained breakdown beyond the
	// three fixed stages, keyed by stage name.
	Stages map[string]time.Duration

	At time.Time
}

// MetricStats are percentile latencies in milliseconds over the
// samples that exercised the metric.
type MetricStats struct {
	Count int     `json:"count"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// ClassStats aggregates one sample class.
type ClassStats struct {
	Count     int                    `json:"count"`
	Total     MetricStats            `json:"total"`
	Embedding MetricStats            `json:"embedding"`
	Retrieval MetricStats            `json:"retrieval"`
	Rerank    MetricStats            `json:"rerank"`
	Stages    map[string]MetricStats `json:"stages,omitempty"`
}

// Stats is the tracker report.
type Stats struct {
	Recorded uint64     `json:"recorded"`
	Window   int        `json:"window"`
	CacheHit ClassStats `json:"cacheHit"`
	Uncached ClassStats `json:"uncached"`
}

// Tracker keeps the most recent samples in a fixed-size ring buffer.
// Recording is cheap enough for the request path; Stats sorts copies
// and is meant for diagnostics endpoints.
type Tracker struct {
	mu       sync.RWMutex
	samples  []Sample
	next     int
	filled   bool
	recorded uint64
}

// NewTracker creates a tracker. A non-positive capacity falls back to
// DefaultCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{samples: make([]Sample, capacity)}
}

// Record adds one sample, overwriting the oldest when the buffer is
// full.
func (t *Tracker) Record(sample Sample) {
	if sample.At.IsZero() {
		sample.At = time.Now()
	}

	t.mu.Lock()
	t.samples[t.next] = sample
	t.next++
	if t.next == len(t.samples) {
		t.next = 0
		t.filled = true
	}
	t.recorded++
	t.mu.Unlock()
}

// Recorded returns the cumulative sample count, including samples that
// have rotated out of the window.
func (t *Tracker) Recorded() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recorded
}

// Reset drops all samples.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.next = 0
	t.filled = false
	t.recorded = 0
	t.mu.Unlock()
}

// Stats computes percentile statistics over the current window.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	n := t.next
	if t.filled {
		n = len(t.samples)
	}
	window := make([]Sample, n)
	copy(window, t.samples[:n])
	recorded := t.recorded
	t.mu.RUnlock()

	var hits, misses []Sample
	for _, s := range window {
		if s.CacheHit {
			hits = append(hits, s)
		} else {
			misses = append(misses, s)
		}
	}

	return Stats{
		Recorded: recorded,
		Window:   len(window),
		CacheHit: classStats(hits),
		Uncached: classStats(misses),
	}
}

// classStats computes per-metric percentiles for one class. Stage
// metrics only include samples that actually ran the stage, so a
// request that skipped rerank does not drag the rerank percentiles
// toward zero.
func classStats(samples []Sample) ClassStats {
	cs := ClassStats{Count: len(samples)}
	if len(samples) == 0 {
		return cs
	}

	totals := make([]float64, 0, len(samples))
	var embeddings, retrievals, reranks []float64
	stageValues := make(map[string][]float64)

	for _, s := range samples {
		totals = append(totals, millis(s.Total))
		if s.Embedding > 0 {
			embeddings = append(embeddings, millis(s.Embedding))
		}
		if s.Retrieval > 0 {
			retrievals = append(retrievals, millis(s.Retrieval))
		}
		if s.Reranked && s.Rerank > 0 {
			reranks = append(reranks, millis(s.Rerank))
		}
		for name, d := range s.Stages {
			if d > 0 {
				stageValues[name] = append(stageValues[name], millis(d))
			}
		}
	}

	cs.Total = metricStats(totals)
	cs.Embedding = metricStats(embeddings)
	cs.Retrieval = metricStats(retrievals)
	cs.Rerank = metricStats(reranks)
	if len(stageValues) > 0 {
		cs.Stages = make(map[string]MetricStats, len(stageValues))
		for name, values := range stageValues {
			cs.Stages[name] = metricStats(values)
		}
	}
	return cs
}

func metricStats(values []float64) MetricStats {
	if len(values) == 0 {
		return MetricStats{}
	}
	sort.Float64s(values)
	return MetricStats{
		Count: len(values),
		P50:   percentile(values, 50),
		P90:   percentile(values, 90),
		P95:   percentile(values, 95),
		P99:   percentile(values, 99),
	}
}

// percentile picks the nearest-rank value from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
