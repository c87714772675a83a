package models

import "encoding/json"

// Profile metadata keys consumed by the scoring and bias layers. The
// values are produced by the profile analysis pipeline upstream of this
// service; score keys hold pre-baked values in [0,1].
const (
	ProfileKeyLevelScore      = "level_match_score"
	ProfileKeySpecialtyScore  = "specialty_match_score"
	ProfileKeyTechStackScore  = "tech_stack_score"
	ProfileKeyFunctionScore   = "function_match_score"
	ProfileKeyTrajectoryScore = "trajectory_score"
	ProfileKeyCompanyScore    = "company_pedigree_score"

	ProfileKeyCompanyTier    = "company_tier"
	ProfileKeyExperiences    = "experiences"
	ProfileKeyEducation      = "education"
	ProfileKeyGraduationYear = "graduation_year"
)

// ProfileScore reads a numeric score from profile metadata, returning
// def when the key is absent or not numeric. Values are clamped to
// [0,1].
func ProfileScore(profile map[string]interface{}, key string, def float64) float64 {
	raw, ok := profile[key]
	if !ok {
		return def
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return def
		}
		v = f
	default:
		return def
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Experience is one work entry decoded from profile metadata. Entries
// are ordered most-recent-first, matching the profile export format.
type Experience struct {
	Title         string   `json:"title,omitempty"`
	Company       string   `json:"company,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	IsCurrent     bool     `json:"isCurrent,omitempty"`
	YearsSinceEnd float64  `json:"yearsSinceEnd,omitempty"`
	DurationYears float64  `json:"durationYears,omitempty"`
}

// ExperiencesFromProfile decodes the experiences array from profile
// metadata. Returns nil when the key is absent or the payload does not
// decode.
func ExperiencesFromProfile(profile map[string]interface{}) []Experience {
	raw, ok := profile[ProfileKeyExperiences]
	if !ok || raw == nil {
		return nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var out []Experience
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil
	}
	return out
}
