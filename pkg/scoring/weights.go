package scoring

import (
	"math"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// Signal names shared by weight configs and SignalScores JSON.
const (
	SignalVectorSimilarity = "vectorSimilarity"
	SignalLevelMatch       = "levelMatch"
	SignalSpecialtyMatch   = "specialtyMatch"
	SignalTechStackMatch   = "techStackMatch"
	SignalFunctionMatch    = "functionMatch"
	SignalTrajectoryFit    = "trajectoryFit"
	SignalCompanyPedigree  = "companyPedigree"

	SignalSkillsExactMatch   = "skillsExactMatch"
	SignalSkillsInferred     = "skillsInferred"
	SignalSeniorityAlignment = "seniorityAlignment"
	SignalRecencyBoost       = "recencyBoost"
	SignalCompanyRelevance   = "companyRelevance"
	SignalSkillsMatch        = "skillsMatch"
)

// Role types accepted by the weight resolver.
const (
	RoleTypeExecutive = "executive"
	RoleTypeManager   = "manager"
	RoleTypeIC        = "ic"
	RoleTypeDefault   = "default"
)

const weightSumTolerance = 0.001

// weightPresets are the per-role baselines; each sums to 1.0. Signals
// that cannot be computed for a request simply drop out of the
// weighted sum, which keeps ranking consistent within the request.
var weightPresets = map[string]models.WeightConfig{
	RoleTypeDefault: {
		SignalVectorSimilarity:   0.25,
		SignalTechStackMatch:     0.10,
		SignalSpecialtyMatch:     0.10,
		SignalLevelMatch:         0.05,
		SignalFunctionMatch:      0.05,
		SignalCompanyPedigree:    0.05,
		SignalTrajectoryFit:      0.05,
		SignalSkillsExactMatch:   0.15,
		SignalSkillsInferred:     0.05,
		SignalSeniorityAlignment: 0.05,
		SignalRecencyBoost:       0.05,
		SignalCompanyRelevance:   0.05,
	},
	RoleTypeIC: {
		SignalVectorSimilarity:   0.20,
		SignalTechStackMatch:     0.15,
		SignalSpecialtyMatch:     0.10,
		SignalLevelMatch:         0.05,
		SignalFunctionMatch:      0.05,
		SignalCompanyPedigree:    0.05,
		SignalTrajectoryFit:      0.05,
		SignalSkillsExactMatch:   0.15,
		SignalSkillsInferred:     0.05,
		SignalSeniorityAlignment: 0.05,
		SignalRecencyBoost:       0.10,
	},
	RoleTypeManager: {
		SignalVectorSimilarity:   0.15,
		SignalLevelMatch:         0.10,
		SignalFunctionMatch:      0.10,
		SignalSpecialtyMatch:     0.05,
		SignalTechStackMatch:     0.05,
		SignalTrajectoryFit:      0.15,
		SignalCompanyPedigree:    0.10,
		SignalSeniorityAlignment: 0.10,
		SignalCompanyRelevance:   0.10,
		SignalSkillsExactMatch:   0.05,
		SignalRecencyBoost:       0.05,
	},
	RoleTypeExecutive: {
		SignalVectorSimilarity:   0.10,
		SignalLevelMatch:         0.15,
		SignalTrajectoryFit:      0.20,
		SignalCompanyPedigree:    0.15,
		SignalFunctionMatch:      0.05,
		SignalSpecialtyMatch:     0.05,
		SignalSeniorityAlignment: 0.10,
		SignalCompanyRelevance:   0.15,
		SignalSkillsExactMatch:   0.05,
	},
}

// PresetFor returns a copy of the preset for a role type, falling back
// to the default preset for unknown values.
func PresetFor(roleType string) models.WeightConfig {
	if preset, ok := weightPresets[roleType]; ok {
		return preset.Clone()
	}
	return weightPresets[RoleTypeDefault].Clone()
}

// ResolveWeights builds the effective weight config for a request:
// role preset, then per-request overrides, then normalization when the
// sum drifts beyond tolerance.
func ResolveWeights(roleType string, overrides models.WeightConfig, logger observability.Logger) models.WeightConfig {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	weights := PresetFor(roleType)
	for name, w := range overrides {
		weights[name] = w
	}
	sum := weights.Sum()
	if sum <= 0 {
		logger.Warn("signal weight overrides sum to zero, using preset", map[string]interface{}{
			"role_type": roleType,
		})
		return PresetFor(roleType)
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		logger.Warn("signal weights do not sum to 1.0, normalizing", map[string]interface{}{
			"role_type": roleType,
			"sum":       sum,
		})
		for name := range weights {
			weights[name] /= sum
		}
	}
	return weights
}
