package search

import (
	"fmt"
	"strings"

	"github.com/hirehound/search/pkg/models"
)

// Local heuristic boost defaults, applied after the weighted score and
// before external reranking.
const (
	defaultSkillBoostFactor = 0.02
	defaultLocationBoost    = 0.05
	defaultConfidenceBoost  = 0.03
	confidenceBoostFloor    = 0.8
)

// BoostConfig tunes the post-scoring heuristic boosts.
type BoostConfig struct {
	// SkillBoostFactor is the per-skill credit for every matched filter
	// skill beyond the first.
	SkillBoostFactor float64
	// LocationBoost rewards an exact location filter match.
	LocationBoost float64
	// ConfidenceBoost rewards high-confidence profile analysis.
	ConfidenceBoost float64
}

func (b *BoostConfig) withDefaults() {
	if b.SkillBoostFactor <= 0 {
		b.SkillBoostFactor = defaultSkillBoostFactor
	}
	if b.LocationBoost <= 0 {
		b.LocationBoost = defaultLocationBoost
	}
	if b.ConfidenceBoost <= 0 {
		b.ConfidenceBoost = defaultConfidenceBoost
	}
}

// ApplyLocalBoosts returns the score with heuristic boosts applied,
// clamped to [0,1]. canon maps a skill to its canonical name; nil falls
// back to case-insensitive comparison.
func ApplyLocalBoosts(score float64, cand *models.Candidate, filters models.SearchFilters, canon func(string) string, cfg BoostConfig) float64 {
	cfg.withDefaults()

	if matched := matchedFilterSkills(cand.Skills, filters.Skills, canon); matched > 1 {
		score += float64(matched-1) * cfg.SkillBoostFactor
	}
	if locationMatches(cand.Location, filters.Locations) {
		score += cfg.LocationBoost
	}
	if cand.AnalysisConfidence >= confidenceBoostFloor {
		score += cfg.ConfidenceBoost
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func matchedFilterSkills(candidateSkills, filterSkills []string, canon func(string) string) int {
	if len(candidateSkills) == 0 || len(filterSkills) == 0 {
		return 0
	}
	if canon == nil {
		canon = strings.ToLower
	}
	have := make(map[string]bool, len(candidateSkills))
	for _, s := range candidateSkills {
		have[canon(s)] = true
	}
	matched := 0
	for _, s := range filterSkills {
		if have[canon(s)] {
			matched++
		}
	}
	return matched
}

func locationMatches(location string, filterLocations []string) bool {
	if location == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(location))
	for _, f := range filterLocations {
		if lower == strings.ToLower(strings.TrimSpace(f)) {
			return true
		}
	}
	return false
}

// BuildMatchReasons produces the short natural-language reasons
// attached to a result. Anonymized responses mask these afterwards, so
// names stay out but locations and years may appear here.
func BuildMatchReasons(cand *models.Candidate, filters models.SearchFilters, canon func(string) string) []string {
	reasons := make([]string, 0, 4)

	if matched := matchedFilterSkillNames(cand.Skills, filters.Skills, canon); len(matched) > 0 {
		reasons = append(reasons, fmt.Sprintf("Matches %d of %d required skills: %s",
			len(matched), len(filters.Skills), strings.Join(matched, ", ")))
	}
	if cand.VectorScore >= 0.85 {
		reasons = append(reasons, "Strong semantic match with the search query")
	} else if cand.TextScore > 0 && cand.VectorScore < 0.5 {
		reasons = append(reasons, "Keyword match with the search query")
	}
	if locationMatches(cand.Location, filters.Locations) {
		reasons = append(reasons, "Located in "+cand.Location)
	}
	if cand.YearsExperience > 0 {
		reasons = append(reasons, fmt.Sprintf("%.0f years of experience", cand.YearsExperience))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Relevant profile for the search criteria")
	}
	return reasons
}

func matchedFilterSkillNames(candidateSkills, filterSkills []string, canon func(string) string) []string {
	if len(candidateSkills) == 0 || len(filterSkills) == 0 {
		return nil
	}
	if canon == nil {
		canon = strings.ToLower
	}
	have := make(map[string]bool, len(candidateSkills))
	for _, s := range candidateSkills {
		have[canon(s)] = true
	}
	var matched []string
	for _, s := range filterSkills {
		if have[canon(s)] {
			matched = append(matched, s)
		}
	}
	return matched
}
