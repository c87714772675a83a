// Package bias implements the bias-reduction post-processing of the
// search pipeline: result anonymization, slate diversity analysis, and
// selection-event recording for offline bias metrics.
package bias

import (
	"strings"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/scoring"
)

// ClassifyExperienceBand buckets years of experience. Bands are
// left-closed: exactly 3 years falls into 3-7.
func ClassifyExperienceBand(years float64) models.ExperienceBand {
	switch {
	case years < 3:
		return models.Band0to3
	case years < 7:
		return models.Band3to7
	case years < 15:
		return models.Band7to15
	default:
		return models.Band15plus
	}
}

// ClassifyCompanyTier buckets the candidate's primary company for the
// slate dimensions. The finer scoring tiers collapse onto the event
// dimension: unicorns count as enterprise, unknown as other.
func ClassifyCompanyTier(cand *models.Candidate) models.CompanyTier {
	var profileTier string
	if cand.Profile != nil {
		if v, ok := cand.Profile[models.ProfileKeyCompanyTier].(string); ok {
			profileTier = v
		}
	}
	experiences := models.ExperiencesFromProfile(cand.Profile)

	switch scoring.DetectCompanyTier(profileTier, scoring.PrimaryCompany(experiences)) {
	case scoring.TierFAANG:
		return models.TierFAANG
	case scoring.TierUnicorn, scoring.TierEnterprise:
		return models.TierEnterprise
	case scoring.TierStartup:
		return models.TierStartup
	default:
		return models.TierOther
	}
}

// specialtyTitleMarkers resolve a specialty directly from the title,
// checked in order so the more specific markers win.
var specialtyTitleMarkers = []struct {
	specialty models.Specialty
	markers   []string
}{
	{models.SpecialtyFullstack, []string{"fullstack", "full stack", "full-stack"}},
	{models.SpecialtyML, []string{"machine learning", "ml engineer", "deep learning", "ai engineer"}},
	{models.SpecialtyData, []string{"data engineer", "data scientist", "analytics engineer", "engenheiro de dados", "cientista de dados"}},
	{models.SpecialtyDevops, []string{"devops", "sre", "site reliability", "platform engineer", "infrastructure"}},
	{models.SpecialtyMobile, []string{"mobile", "ios", "android"}},
	{models.SpecialtyFrontend, []string{"frontend", "front-end", "front end"}},
	{models.SpecialtyBackend, []string{"backend", "back-end", "back end"}},
}

// skillSpecialties vote when the title is not explicit.
var skillSpecialties = map[string]models.Specialty{
	"react":   models.SpecialtyFrontend,
	"vue":     models.SpecialtyFrontend,
	"angular": models.SpecialtyFrontend,
	"svelte":  models.SpecialtyFrontend,
	"css":     models.SpecialtyFrontend,
	"html":    models.SpecialtyFrontend,

	"go":      models.SpecialtyBackend,
	"golang":  models.SpecialtyBackend,
	"java":    models.SpecialtyBackend,
	"c#":      models.SpecialtyBackend,
	".net":    models.SpecialtyBackend,
	"node.js": models.SpecialtyBackend,
	"spring":  models.SpecialtyBackend,
	"django":  models.SpecialtyBackend,
	"rails":   models.SpecialtyBackend,
	"elixir":  models.SpecialtyBackend,

	"kubernetes": models.SpecialtyDevops,
	"docker":     models.SpecialtyDevops,
	"terraform":  models.SpecialtyDevops,
	"ansible":    models.SpecialtyDevops,
	"jenkins":    models.SpecialtyDevops,
	"prometheus": models.SpecialtyDevops,

	"spark":     models.SpecialtyData,
	"airflow":   models.SpecialtyData,
	"dbt":       models.SpecialtyData,
	"snowflake": models.SpecialtyData,
	"bigquery":  models.SpecialtyData,
	"etl":       models.SpecialtyData,

	"tensorflow":   models.SpecialtyML,
	"pytorch":      models.SpecialtyML,
	"keras":        models.SpecialtyML,
	"scikit-learn": models.SpecialtyML,
	"llm":          models.SpecialtyML,

	"swift":        models.SpecialtyMobile,
	"kotlin":       models.SpecialtyMobile,
	"flutter":      models.SpecialtyMobile,
	"react native": models.SpecialtyMobile,
	"objective-c":  models.SpecialtyMobile,
}

// specialtyOrder breaks skill-vote ties deterministically, more
// specific specialties first.
var specialtyOrder = []models.Specialty{
	models.SpecialtyML,
	models.SpecialtyData,
	models.SpecialtyDevops,
	models.SpecialtyMobile,
	models.SpecialtyBackend,
	models.SpecialtyFrontend,
}

// ClassifySpecialty infers the technical specialty from the title and
// skills. An explicit title marker wins; otherwise skills vote per
// specialty, with frontend plus backend evidence counting as
// fullstack.
func ClassifySpecialty(title string, skills []string) models.Specialty {
	lowered := strings.ToLower(title)
	for _, group := range specialtyTitleMarkers {
		for _, marker := range group.markers {
			if strings.Contains(lowered, marker) {
				return group.specialty
			}
		}
	}

	votes := make(map[models.Specialty]int)
	for _, skill := range skills {
		if specialty, ok := skillSpecialties[strings.ToLower(strings.TrimSpace(skill))]; ok {
			votes[specialty]++
		}
	}
	if len(votes) == 0 {
		return models.SpecialtyOther
	}
	if votes[models.SpecialtyFrontend] > 0 && votes[models.SpecialtyBackend] > 0 {
		return models.SpecialtyFullstack
	}

	best := models.SpecialtyOther
	max := 0
	for _, specialty := range specialtyOrder {
		if votes[specialty] > max {
			best = specialty
			max = votes[specialty]
		}
	}
	return best
}

// Dimensions infers the three slate dimensions for one candidate.
func Dimensions(cand *models.Candidate) (models.CompanyTier, models.ExperienceBand, models.Specialty) {
	return ClassifyCompanyTier(cand),
		ClassifyExperienceBand(cand.YearsExperience),
		ClassifySpecialty(cand.Title, cand.Skills)
}
