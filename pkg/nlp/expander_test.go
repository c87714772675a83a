package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/ontology"
)

func newTestExpander(t *testing.T, config ExpanderConfig) *QueryExpander {
	t.Helper()
	ont, err := ontology.New(nil)
	require.NoError(t, err)
	return NewQueryExpander(ont, config)
}

func TestExpandSkillsAppliesDecay(t *testing.T) {
	expander := newTestExpander(t, ExpanderConfig{})

	expanded := expander.ExpandSkills([]string{"python"})
	require.NotEmpty(t, expanded)

	byName := make(map[string]float64, len(expanded))
	for _, e := range expanded {
		byName[e.Name] = e.Confidence
		assert.Equal(t, "ontology", e.Source)
		assert.Equal(t, 1, e.Hops)
	}

	// Ontology confidence 0.9 decayed by 0.6.
	assert.InDelta(t, 0.54, byName["django"], 1e-9)
	assert.InDelta(t, 0.528, byName["flask"], 1e-9)
	assert.InDelta(t, 0.516, byName["fastapi"], 1e-9)
}

func TestExpandSkillsExcludesInputs(t *testing.T) {
	expander := newTestExpander(t, ExpanderConfig{})

	expanded := expander.ExpandSkills([]string{"python", "django"})
	for _, e := range expanded {
		assert.NotEqual(t, "python", e.Name)
		assert.NotEqual(t, "django", e.Name)
	}
}

func TestExpandSkillsInputAliasesExcluded(t *testing.T) {
	expander := newTestExpander(t, ExpanderConfig{})

	// "js" canonicalizes to javascript, which typescript expands to.
	expanded := expander.ExpandSkills([]string{"typescript", "js"})
	for _, e := range expanded {
		assert.NotEqual(t, "javascript", e.Name)
	}
}

func TestExpandSkillsDeduplicatesKeepingMax(t *testing.T) {
	expander := newTestExpander(t, ExpanderConfig{})

	// react is reachable from javascript (0.90) and typescript (0.88).
	expanded := expander.ExpandSkills([]string{"javascript", "typescript"})

	count := 0
	var confidence float64
	for _, e := range expanded {
		if e.Name == "react" {
			count++
			confidence = e.Confidence
		}
	}
	require.Equal(t, 1, count, "react must appear once")
	assert.InDelta(t, 0.9*0.6, confidence, 1e-9)
}

func TestExpandSkillsCap(t *testing.T) {
	expander := newTestExpander(t, ExpanderConfig{MaxExpansions: 2, MinConfidence: 0.5})

	expanded := expander.ExpandSkills([]string{"javascript", "python", "java"})
	assert.Len(t, expanded, 2)
	// Capping keeps the highest-confidence expansions.
	for i := 1; i < len(expanded); i++ {
		assert.GreaterOrEqual(t, expanded[i-1].Confidence, expanded[i].Confidence)
	}
}

func TestExpandSkillsEmptyAndUnknown(t *testing.T) {
	expander := newTestExpander(t, ExpanderConfig{})

	assert.Nil(t, expander.ExpandSkills(nil))
	assert.Nil(t, expander.ExpandSkills([]string{}))
	assert.Nil(t, expander.ExpandSkills([]string{"underwater-basket-weaving"}))
}
