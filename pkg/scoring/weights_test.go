package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hirehound/search/pkg/models"
)

func TestWeightPresetsSumToOne(t *testing.T) {
	for roleType, preset := range weightPresets {
		t.Run(roleType, func(t *testing.T) {
			assert.InDelta(t, 1.0, preset.Sum(), weightSumTolerance)
		})
	}
}

func TestPresetFor(t *testing.T) {
	assert.Equal(t, weightPresets[RoleTypeExecutive], PresetFor(RoleTypeExecutive))
	assert.Equal(t, weightPresets[RoleTypeDefault], PresetFor("something-else"))
	assert.Equal(t, weightPresets[RoleTypeDefault], PresetFor(""))

	// Returned configs are copies.
	preset := PresetFor(RoleTypeDefault)
	preset[SignalVectorSimilarity] = 0.99
	assert.InDelta(t, 0.25, PresetFor(RoleTypeDefault)[SignalVectorSimilarity], 1e-9)
}

func TestResolveWeights(t *testing.T) {
	t.Run("no overrides keeps preset", func(t *testing.T) {
		got := ResolveWeights(RoleTypeIC, nil, nil)
		assert.Equal(t, weightPresets[RoleTypeIC], got)
	})

	t.Run("balanced overrides are kept verbatim", func(t *testing.T) {
		overrides := models.WeightConfig{
			SignalVectorSimilarity: 0.20,
			SignalSkillsExactMatch: 0.20,
		}
		got := ResolveWeights(RoleTypeDefault, overrides, nil)
		assert.InDelta(t, 0.20, got[SignalVectorSimilarity], 1e-9)
		assert.InDelta(t, 0.20, got[SignalSkillsExactMatch], 1e-9)
		assert.InDelta(t, 1.0, got.Sum(), weightSumTolerance)
	})

	t.Run("drifting overrides are normalized", func(t *testing.T) {
		overrides := models.WeightConfig{SignalVectorSimilarity: 0.50}
		got := ResolveWeights(RoleTypeDefault, overrides, nil)
		assert.InDelta(t, 1.0, got.Sum(), weightSumTolerance)
		assert.InDelta(t, 0.50/1.25, got[SignalVectorSimilarity], 1e-9)
	})

	t.Run("zero-sum overrides fall back to preset", func(t *testing.T) {
		overrides := models.WeightConfig{}
		for name := range weightPresets[RoleTypeDefault] {
			overrides[name] = 0
		}
		got := ResolveWeights(RoleTypeDefault, overrides, nil)
		assert.Equal(t, weightPresets[RoleTypeDefault], got)
	})
}
