package bias

import (
	"context"
	"fmt"
	"math"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// Dimension names used in distributions and warnings.
const (
	DimensionCompanyTier    = "companyTier"
	DimensionExperienceBand = "experienceBand"
	DimensionSpecialty      = "specialty"
)

// Warning severities, ordered by concentration.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityAlert   = "alert"
)

// analyzedDimensions fixes the iteration order so warnings come out
// deterministic.
var analyzedDimensions = []string{
	DimensionCompanyTier,
	DimensionExperienceBand,
	DimensionSpecialty,
}

// dimensionCategories is the number of defined groups per dimension,
// the ceiling for entropy normalization.
var dimensionCategories = map[string]int{
	DimensionCompanyTier:    4,
	DimensionExperienceBand: 4,
	DimensionSpecialty:      8,
}

// DiversityAnalyzer computes the slate diversity summary attached to
// response metadata.
type DiversityAnalyzer struct {
	minSlate          int
	warnThreshold     float64
	highThreshold     float64
	criticalThreshold float64
	specialties       *SpecialtyCache
	logger            observability.Logger
}

// NewDiversityAnalyzer builds an analyzer from the bias config,
// filling unset thresholds with the defaults.
func NewDiversityAnalyzer(cfg config.BiasConfig, logger observability.Logger) *DiversityAnalyzer {
	if cfg.MinPoolSize <= 0 {
		cfg.MinPoolSize = 5
	}
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = 0.7
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = 0.8
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 0.9
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &DiversityAnalyzer{
		minSlate:          cfg.MinPoolSize,
		warnThreshold:     cfg.WarnThreshold,
		highThreshold:     cfg.HighThreshold,
		criticalThreshold: cfg.CriticalThreshold,
		logger:            logger,
	}
}

// UseSpecialtyCache memoizes specialty inference through the specialty
// cache layer.
func (d *DiversityAnalyzer) UseSpecialtyCache(sc *SpecialtyCache) {
	d.specialties = sc
}

// Analyze computes distributions, the normalized entropy score, and
// concentration warnings for the returned slate. Slates below the
// minimum size are not analyzed: with a handful of results every
// distribution looks concentrated.
func (d *DiversityAnalyzer) Analyze(ctx context.Context, cands []*models.Candidate) *models.DiversitySummary {
	summary := &models.DiversitySummary{SlateSize: len(cands)}
	if len(cands) < d.minSlate {
		return summary
	}

	counts := map[string]map[string]int{
		DimensionCompanyTier:    {},
		DimensionExperienceBand: {},
		DimensionSpecialty:      {},
	}
	for _, cand := range cands {
		tier, band, specialty := d.specialties.Dimensions(ctx, cand)
		counts[DimensionCompanyTier][string(tier)]++
		counts[DimensionExperienceBand][string(band)]++
		counts[DimensionSpecialty][string(specialty)]++
	}

	summary.Analyzed = true
	summary.Distributions = make(map[string]map[string]float64, len(counts))

	total := float64(len(cands))
	var entropySum float64
	for _, dimension := range analyzedDimensions {
		groups := counts[dimension]

		dist := make(map[string]float64, len(groups))
		for group, count := range groups {
			dist[group] = float64(count) / total
		}
		summary.Distributions[dimension] = dist

		entropySum += normalizedEntropy(groups, dimensionCategories[dimension])

		if w := d.warningFor(dimension, groups, len(cands)); w != nil {
			summary.Warnings = append(summary.Warnings, *w)
		}
	}

	summary.Score = math.Round(entropySum/float64(len(analyzedDimensions))*1000) / 10
	return summary
}

// normalizedEntropy is the Shannon entropy of the group distribution
// divided by the maximum entropy of the dimension, in [0,1].
func normalizedEntropy(groups map[string]int, categories int) float64 {
	total := 0
	for _, count := range groups {
		total += count
	}
	if total == 0 || categories < 2 {
		return 0
	}

	var entropy float64
	for _, count := range groups {
		if count > 0 {
			p := float64(count) / float64(total)
			entropy -= p * math.Log2(p)
		}
	}
	return entropy / math.Log2(float64(categories))
}

func (d *DiversityAnalyzer) warningFor(dimension string, groups map[string]int, slate int) *models.DiversityWarning {
	var dominant string
	max := 0
	for group, count := range groups {
		if count > max || (count == max && (dominant == "" || group < dominant)) {
			dominant = group
			max = count
		}
	}

	share := float64(max) / float64(slate)
	var severity string
	switch {
	case share >= d.criticalThreshold:
		severity = SeverityAlert
	case share >= d.highThreshold:
		severity = SeverityWarning
	case share >= d.warnThreshold:
		severity = SeverityInfo
	default:
		return nil
	}

	return &models.DiversityWarning{
		Dimension:     dimension,
		DominantGroup: dominant,
		Share:         share,
		Severity:      severity,
		Suggestion:    suggestionFor(dimension, dominant),
	}
}

func suggestionFor(dimension, group string) string {
	switch dimension {
	case DimensionCompanyTier:
		return fmt.Sprintf("slate is dominated by %s companies; consider relaxing company and pedigree criteria", group)
	case DimensionExperienceBand:
		return fmt.Sprintf("slate is concentrated in the %s years band; consider widening the experience range", group)
	case DimensionSpecialty:
		return fmt.Sprintf("slate is concentrated on %s candidates; consider including adjacent specialties", group)
	default:
		return ""
	}
}
