package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileScore(t *testing.T) {
	profile := map[string]interface{}{
		"float":    0.7,
		"int":      1,
		"too_big":  42.0,
		"negative": -0.5,
		"string":   "high",
		"number":   json.Number("0.25"),
	}

	assert.InDelta(t, 0.7, ProfileScore(profile, "float", 0.5), 1e-9)
	assert.InDelta(t, 1.0, ProfileScore(profile, "int", 0.5), 1e-9)
	assert.InDelta(t, 1.0, ProfileScore(profile, "too_big", 0.5), 1e-9)
	assert.InDelta(t, 0.0, ProfileScore(profile, "negative", 0.5), 1e-9)
	assert.InDelta(t, 0.5, ProfileScore(profile, "string", 0.5), 1e-9)
	assert.InDelta(t, 0.25, ProfileScore(profile, "number", 0.5), 1e-9)
	assert.InDelta(t, 0.5, ProfileScore(profile, "missing", 0.5), 1e-9)
	assert.InDelta(t, 0.5, ProfileScore(nil, "missing", 0.5), 1e-9)
}

func TestExperiencesFromProfile(t *testing.T) {
	t.Run("decodes entries", func(t *testing.T) {
		var profile map[string]interface{}
		raw := `{
			"experiences": [
				{"title": "Senior Engineer", "company": "Nubank", "skills": ["go"], "isCurrent": true},
				{"title": "Engineer", "company": "Acme", "yearsSinceEnd": 3.5}
			]
		}`
		require.NoError(t, json.Unmarshal([]byte(raw), &profile))

		exps := ExperiencesFromProfile(profile)
		require.Len(t, exps, 2)
		assert.Equal(t, "Senior Engineer", exps[0].Title)
		assert.True(t, exps[0].IsCurrent)
		assert.Equal(t, []string{"go"}, exps[0].Skills)
		assert.InDelta(t, 3.5, exps[1].YearsSinceEnd, 1e-9)
	})

	t.Run("absent or malformed", func(t *testing.T) {
		assert.Nil(t, ExperiencesFromProfile(nil))
		assert.Nil(t, ExperiencesFromProfile(map[string]interface{}{}))
		assert.Nil(t, ExperiencesFromProfile(map[string]interface{}{
			ProfileKeyExperiences: "not-a-list",
		}))
	})
}
