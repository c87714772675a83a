// Package scoring ranks retrieved candidates with multi-signal
// weighted scoring: base signals from profile metadata plus
// context-derived signals (skills, seniority, recency, company,
// trajectory) when a parsed search context is available.
package scoring

import (
	"github.com/hirehound/search/pkg/models"
)

const (
	// defaultCoverageBonus caps the additive skill-coverage bonus.
	defaultCoverageBonus = 0.1

	// Rows analyzed with confidence below the floor carry a flat
	// multiplicative penalty.
	confidenceFloor      = 0.5
	lowConfidencePenalty = 0.9

	// exactBlendWeight blends exact and inferred skill scores into the
	// combined skillsMatch signal.
	exactBlendWeight = 0.7
)

// Engine scores candidates against a weight config and an optional
// search context.
type Engine struct {
	calc          *Calculator
	coverageBonus float64
}

// NewEngine builds a scoring engine. A non-positive coverageBonus
// falls back to the default cap.
func NewEngine(calc *Calculator, coverageBonus float64) *Engine {
	if calc == nil {
		calc = NewCalculator(nil)
	}
	if coverageBonus <= 0 {
		coverageBonus = defaultCoverageBonus
	}
	return &Engine{calc: calc, coverageBonus: coverageBonus}
}

// Calculator exposes the signal calculators for rationale generation.
func (e *Engine) Calculator() *Calculator {
	return e.calc
}

// Score computes the final score and the per-signal breakdown for one
// retrieved candidate. The weighted sum runs over signals whose weight
// is present; the coverage bonus and the low-confidence penalty apply
// outside the sum, and the result is clamped to [0,1].
func (e *Engine) Score(cand *models.Candidate, weights models.WeightConfig, ctx *models.SearchContext) (float64, *models.SignalScores) {
	signals := &models.SignalScores{
		VectorSimilarity: normalizeVectorScore(cand.VectorScore),
		LevelMatch:       models.ProfileScore(cand.Profile, models.ProfileKeyLevelScore, neutralScore),
		SpecialtyMatch:   models.ProfileScore(cand.Profile, models.ProfileKeySpecialtyScore, neutralScore),
		TechStackMatch:   models.ProfileScore(cand.Profile, models.ProfileKeyTechStackScore, neutralScore),
		FunctionMatch:    models.ProfileScore(cand.Profile, models.ProfileKeyFunctionScore, neutralScore),
		TrajectoryFit:    models.ProfileScore(cand.Profile, models.ProfileKeyTrajectoryScore, neutralScore),
		CompanyPedigree:  models.ProfileScore(cand.Profile, models.ProfileKeyCompanyScore, neutralScore),
	}

	var coverage float64
	if ctx != nil {
		experiences := models.ExperiencesFromProfile(cand.Profile)

		exact := e.calc.ExactSkillMatch(cand.Skills, ctx.RequiredSkills)
		inferred := e.calc.InferredSkillMatch(cand.Skills, ctx.RequiredSkills)
		blend := exactBlendWeight*exact + (1-exactBlendWeight)*inferred
		signals.SkillsExactMatch = f64ptr(exact)
		signals.SkillsInferred = f64ptr(inferred)
		signals.SkillsMatch = f64ptr(clamp01(blend))
		coverage = e.calc.SkillCoverage(cand.Skills, ctx.RequiredSkills)

		tier := DetectCompanyTier(profileTier(cand), PrimaryCompany(experiences))
		signals.SeniorityAlignment = f64ptr(e.calc.SeniorityAlignment(cand.Title, tier, ctx.TargetSeniority))
		signals.RecencyBoost = f64ptr(e.calc.RecencyBoost(experiences, ctx.RequiredSkills))
		signals.CompanyRelevance = f64ptr(e.calc.CompanyRelevance(cand, experiences, ctx))

		// A classifiable title sequence overrides the pre-baked
		// trajectory metadata value.
		titles := TitlesOldestFirst(experiences)
		if traj, ok := ClassifyTrajectory(titles); ok {
			signals.TrajectoryFit = trajectoryFitScore(traj, ctx)
		}
	}

	score := weightedSum(signals, weights)
	score += coverage * e.coverageBonus
	if cand.AnalysisConfidence < confidenceFloor {
		score *= lowConfidencePenalty
	}
	return clamp01(score), signals
}

func weightedSum(signals *models.SignalScores, weights models.WeightConfig) float64 {
	var sum float64
	for name, w := range weights {
		if v, ok := signalValue(signals, name); ok {
			sum += v * w
		}
	}
	return sum
}

// signalValue resolves a signal by weight name. Optional signals
// resolve only when they were computed for this request.
func signalValue(s *models.SignalScores, name string) (float64, bool) {
	switch name {
	case SignalVectorSimilarity:
		return s.VectorSimilarity, true
	case SignalLevelMatch:
		return s.LevelMatch, true
	case SignalSpecialtyMatch:
		return s.SpecialtyMatch, true
	case SignalTechStackMatch:
		return s.TechStackMatch, true
	case SignalFunctionMatch:
		return s.FunctionMatch, true
	case SignalTrajectoryFit:
		return s.TrajectoryFit, true
	case SignalCompanyPedigree:
		return s.CompanyPedigree, true
	case SignalSkillsExactMatch:
		return deref(s.SkillsExactMatch)
	case SignalSkillsInferred:
		return deref(s.SkillsInferred)
	case SignalSeniorityAlignment:
		return deref(s.SeniorityAlignment)
	case SignalRecencyBoost:
		return deref(s.RecencyBoost)
	case SignalCompanyRelevance:
		return deref(s.CompanyRelevance)
	case SignalSkillsMatch:
		return deref(s.SkillsMatch)
	default:
		return 0, false
	}
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// normalizeVectorScore maps similarity values onto [0,1]; some
// embedding backends report percentages.
func normalizeVectorScore(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func f64ptr(v float64) *float64 {
	return &v
}
