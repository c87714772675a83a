package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/models"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(testCalculator(t), 0)
}

func TestScoreBaseSignals(t *testing.T) {
	engine := testEngine(t)

	cand := &models.Candidate{
		CandidateID:        "c-1",
		VectorScore:        85.0,
		AnalysisConfidence: 0.9,
		Profile: map[string]interface{}{
			models.ProfileKeyLevelScore: 0.8,
		},
	}

	score, signals := engine.Score(cand, models.WeightConfig{SignalVectorSimilarity: 1.0}, nil)

	// Percentage-style vector scores normalize to [0,1].
	assert.InDelta(t, 0.85, signals.VectorSimilarity, 1e-9)
	assert.InDelta(t, 0.8, signals.LevelMatch, 1e-9)
	assert.InDelta(t, neutralScore, signals.SpecialtyMatch, 1e-9)
	assert.InDelta(t, neutralScore, signals.TrajectoryFit, 1e-9)
	assert.Nil(t, signals.SkillsExactMatch)
	assert.Nil(t, signals.SkillsMatch)
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestScoreLowConfidencePenalty(t *testing.T) {
	engine := testEngine(t)

	cand := &models.Candidate{VectorScore: 0.85, AnalysisConfidence: 0.3}
	score, _ := engine.Score(cand, models.WeightConfig{SignalVectorSimilarity: 1.0}, nil)
	assert.InDelta(t, 0.85*lowConfidencePenalty, score, 1e-9)
}

func TestScoreSkipsWeightsWithoutSignals(t *testing.T) {
	engine := testEngine(t)

	// Context signals were never computed, so their weights drop out.
	cand := &models.Candidate{VectorScore: 0.9, AnalysisConfidence: 0.8}
	score, _ := engine.Score(cand, models.WeightConfig{SignalSkillsExactMatch: 1.0}, nil)
	assert.Zero(t, score)
}

func TestScoreWithSearchContext(t *testing.T) {
	engine := testEngine(t)

	cand := &models.Candidate{
		CandidateID:        "c-2",
		Title:              "Senior Software Engineer",
		Skills:             []string{"react", "typescript"},
		VectorScore:        0.9,
		AnalysisConfidence: 0.9,
		Profile: map[string]interface{}{
			models.ProfileKeyExperiences: []map[string]interface{}{
				{
					"title":     "Senior Software Engineer",
					"company":   "Nubank",
					"skills":    []string{"react", "typescript"},
					"isCurrent": true,
				},
				{
					"title":         "Junior Developer",
					"company":       "Acme",
					"skills":        []string{"javascript"},
					"yearsSinceEnd": 4,
				},
			},
		},
	}
	ctx := &models.SearchContext{
		RequiredSkills:  []string{"react", "typescript"},
		TargetSeniority: "senior",
		TargetTrack:     TrackTechnical,
	}
	weights := models.WeightConfig{
		SignalSkillsExactMatch:   0.5,
		SignalSeniorityAlignment: 0.3,
		SignalRecencyBoost:       0.2,
	}

	score, signals := engine.Score(cand, weights, ctx)

	require.NotNil(t, signals.SkillsExactMatch)
	require.NotNil(t, signals.SkillsInferred)
	require.NotNil(t, signals.SkillsMatch)
	require.NotNil(t, signals.SeniorityAlignment)
	require.NotNil(t, signals.RecencyBoost)
	require.NotNil(t, signals.CompanyRelevance)

	assert.InDelta(t, 1.0, *signals.SkillsExactMatch, 1e-9)
	assert.InDelta(t, 1.0, *signals.SeniorityAlignment, 1e-9)
	assert.InDelta(t, 1.0, *signals.RecencyBoost, 1e-9)

	// The junior-to-senior title sequence overrides the metadata
	// trajectory default.
	assert.InDelta(t, 1.0, signals.TrajectoryFit, 1e-9)

	// Full weighted sum plus full coverage bonus, clamped.
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreCoverageBonus(t *testing.T) {
	engine := testEngine(t)

	cand := &models.Candidate{
		Skills:             []string{"react"},
		VectorScore:        0.5,
		AnalysisConfidence: 0.9,
	}
	ctx := &models.SearchContext{RequiredSkills: []string{"react", "rust"}}

	score, signals := engine.Score(cand, models.WeightConfig{SignalVectorSimilarity: 1.0}, ctx)

	// Half the required skills are covered: bonus = 0.5 * 0.1.
	require.NotNil(t, signals.SkillsExactMatch)
	assert.InDelta(t, 0.5, *signals.SkillsExactMatch, 1e-9)
	assert.InDelta(t, 0.5+0.05, score, 1e-9)
}
