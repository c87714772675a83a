package bias

import (
	"context"

	"github.com/hirehound/search/pkg/cache"
	"github.com/hirehound/search/pkg/models"
)

// SpecialtyCache memoizes per-candidate specialty inference in the
// specialty cache layer, so candidates that show up across many
// searches skip the title and skill-vote walk. A nil receiver or nil
// backing cache classifies directly.
type SpecialtyCache struct {
	cache cache.Cache
}

// NewSpecialtyCache wraps the layered cache for specialty lookups.
func NewSpecialtyCache(c cache.Cache) *SpecialtyCache {
	return &SpecialtyCache{cache: c}
}

// Specialty returns the candidate's specialty, consulting the cache
// layer first. Cache writes are best effort.
func (s *SpecialtyCache) Specialty(ctx context.Context, cand *models.Candidate) models.Specialty {
	if s == nil || s.cache == nil || cand.CandidateID == "" {
		return ClassifySpecialty(cand.Title, cand.Skills)
	}

	var cached models.Specialty
	if s.cache.Get(ctx, cache.LayerSpecialty, cand.CandidateID, &cached) && cached != "" {
		return cached
	}

	specialty := ClassifySpecialty(cand.Title, cand.Skills)
	_ = s.cache.Set(ctx, cache.LayerSpecialty, cand.CandidateID, specialty)
	return specialty
}

// Dimensions infers the three slate dimensions for one candidate,
// memoizing the specialty.
func (s *SpecialtyCache) Dimensions(ctx context.Context, cand *models.Candidate) (models.CompanyTier, models.ExperienceBand, models.Specialty) {
	return ClassifyCompanyTier(cand),
		ClassifyExperienceBand(cand.YearsExperience),
		s.Specialty(ctx, cand)
}
