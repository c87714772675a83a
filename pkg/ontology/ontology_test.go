package ontology

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOntology(t *testing.T) *Ontology {
	t.Helper()
	o, err := New(nil)
	require.NoError(t, err)
	return o
}

func TestResolveCaseInsensitive(t *testing.T) {
	o := newTestOntology(t)

	tests := []struct {
		input string
		want  string
	}{
		{"python", "python"},
		{"Python", "python"},
		{"PY", "python"},
		{"K8s", "kubernetes"},
		{"golang", "go"},
		{"Postgres", "postgresql"},
		{"  React.JS  ", "react"},
	}
	for _, tt := range tests {
		s, ok := o.Resolve(tt.input)
		require.True(t, ok, "expected %q to resolve", tt.input)
		assert.Equal(t, tt.want, s.ID)
	}

	_, ok := o.Resolve("cobol-mainframe-2000")
	assert.False(t, ok)
}

func TestCanonicalName(t *testing.T) {
	o := newTestOntology(t)

	assert.Equal(t, "javascript", o.CanonicalName("JS"))
	assert.Equal(t, "react", o.CanonicalName("ReactJS"))
	// Unknown skills pass through lowercased.
	assert.Equal(t, "cobol", o.CanonicalName("COBOL"))
}

func TestExpandDirectNeighbors(t *testing.T) {
	o := newTestOntology(t)

	results := o.Expand("python", 1, DefaultMinConfidence)
	require.NotEmpty(t, results)

	byName := make(map[string]Expansion, len(results))
	for _, e := range results {
		byName[e.Skill] = e
	}

	for _, want := range []string{"django", "flask", "fastapi"} {
		e, ok := byName[want]
		require.True(t, ok, "expected %s in expansion of python", want)
		assert.Greater(t, e.Confidence, 0.8)
		assert.Less(t, e.Confidence, 1.0)
		assert.Equal(t, 1, e.Hops)
	}

	// jupyter is related at 0.7, below the default threshold.
	_, ok := byName["jupyter"]
	assert.False(t, ok, "low-confidence neighbor should be dropped")
}

func TestExpandThresholdApplied(t *testing.T) {
	o := newTestOntology(t)

	loose := o.Expand("python", 1, 0.5)
	strict := o.Expand("python", 1, 0.9)

	assert.Greater(t, len(loose), len(strict))
	for _, e := range strict {
		assert.GreaterOrEqual(t, e.Confidence, 0.9)
	}

	names := make(map[string]bool)
	for _, e := range loose {
		names[e.Skill] = true
	}
	assert.True(t, names["jupyter"], "0.5 threshold should keep jupyter")
}

func TestExpandMultiPathKeepsMax(t *testing.T) {
	o := newTestOntology(t)

	// numpy is reachable directly (0.82) and via pandas (0.84*0.90=0.756).
	results := o.Expand("python", 2, 0.5)
	var numpy *Expansion
	for i := range results {
		if results[i].Skill == "numpy" {
			numpy = &results[i]
		}
	}
	require.NotNil(t, numpy)
	assert.InDelta(t, 0.82, numpy.Confidence, 1e-9)
	assert.Equal(t, 1, numpy.Hops)
}

func TestExpandDepthTwoProducts(t *testing.T) {
	o := newTestOntology(t)

	// nextjs is only reachable from javascript via react: 0.90*0.90=0.81.
	results := o.Expand("javascript", 2, 0.5)
	var next *Expansion
	for i := range results {
		if results[i].Skill == "nextjs" {
			next = &results[i]
		}
	}
	require.NotNil(t, next)
	assert.InDelta(t, 0.81, next.Confidence, 1e-9)
	assert.Equal(t, 2, next.Hops)

	// Depth 1 must not reach it.
	for _, e := range o.Expand("javascript", 1, 0.5) {
		assert.NotEqual(t, "nextjs", e.Skill)
	}
}

func TestExpandViaAlias(t *testing.T) {
	o := newTestOntology(t)

	fromAlias := o.Expand("py", 1, DefaultMinConfidence)
	fromCanonical := o.Expand("python", 1, DefaultMinConfidence)
	assert.Equal(t, fromCanonical, fromAlias)
}

func TestExpandUnknownSkill(t *testing.T) {
	o := newTestOntology(t)
	assert.Empty(t, o.Expand("underwater-basket-weaving", 1, 0.8))
}

func TestExpandSortedByConfidence(t *testing.T) {
	o := newTestOntology(t)

	results := o.Expand("javascript", 1, 0.5)
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence)
	}
}

func TestExpandCachedPerSkillAndDepth(t *testing.T) {
	o := newTestOntology(t)

	first := o.Expand("python", 1, DefaultMinConfidence)
	assert.Equal(t, 1, o.cache.Len())

	// A different threshold reuses the same cache entry.
	second := o.Expand("python", 1, 0.5)
	assert.Equal(t, 1, o.cache.Len())
	assert.GreaterOrEqual(t, len(second), len(first))

	o.Expand("python", 2, DefaultMinConfidence)
	assert.Equal(t, 2, o.cache.Len())
}

func TestExpandCacheTTLExpiry(t *testing.T) {
	o := newTestOntology(t)
	o.cacheTTL = 0

	o.Expand("python", 1, DefaultMinConfidence)
	entry, ok := o.cache.Get("python:1")
	require.True(t, ok)

	// An expired entry is recomputed, not served.
	results := o.Expand("python", 1, DefaultMinConfidence)
	assert.NotEmpty(t, results)
	refreshed, ok := o.cache.Get("python:1")
	require.True(t, ok)
	assert.False(t, refreshed.cachedAt.Before(entry.cachedAt))
}

func TestNewFromJSONRejectsBadEdges(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "unknown target",
			data: `{"skills":[{"id":"a","aliases":[],"category":"x"}],"edges":[{"from":"a","to":"ghost","confidence":0.9}]}`,
		},
		{
			name: "unknown source",
			data: `{"skills":[{"id":"a","aliases":[],"category":"x"}],"edges":[{"from":"ghost","to":"a","confidence":0.9}]}`,
		},
		{
			name: "confidence out of range",
			data: `{"skills":[{"id":"a","aliases":[],"category":"x"},{"id":"b","aliases":[],"category":"x"}],"edges":[{"from":"a","to":"b","confidence":1.5}]}`,
		},
		{
			name: "malformed json",
			data: `{"skills":`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromJSON([]byte(tt.data), nil)
			assert.Error(t, err)
		})
	}
}

func TestExpandCycleBounded(t *testing.T) {
	data := `{
		"skills": [
			{"id":"a","aliases":[],"category":"x"},
			{"id":"b","aliases":[],"category":"x"}
		],
		"edges": [
			{"from":"a","to":"b","confidence":0.9},
			{"from":"b","to":"a","confidence":0.9}
		]
	}`
	o, err := NewFromJSON([]byte(data), nil)
	require.NoError(t, err)

	for depth := 1; depth <= 5; depth++ {
		results := o.Expand("a", depth, 0.1)
		require.Len(t, results, 1, "depth %d", depth)
		assert.Equal(t, "b", results[0].Skill)
		assert.InDelta(t, 0.9, results[0].Confidence, 1e-9, "cycle must not inflate confidence")
	}
}

func ExampleOntology_Expand() {
	o, _ := New(nil)
	for _, e := range o.Expand("python", 1, 0.85) {
		fmt.Printf("%s %.2f\n", e.Skill, e.Confidence)
	}
	// Output:
	// django 0.90
	// flask 0.88
	// fastapi 0.86
}
