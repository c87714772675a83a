package bias

import (
	"regexp"
	"time"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// Reason masking patterns. Calendar years reveal graduation and career
// start dates; runs of capitalized words are almost always names of
// people, employers, or schools.
var (
	yearPattern       = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	properNounPattern = regexp.MustCompile(`\p{Lu}[\p{L}'-]*(?:\s+\p{Lu}[\p{L}'-]*)+`)
)

// Anonymizer strips PII from search results. Anonymized items are
// rebuilt from an allowlist of safe fields rather than cleared in
// place, so a newly added ResultItem field stays hidden until it is
// added here.
type Anonymizer struct {
	stripProxies bool
	logger       observability.Logger
}

// NewAnonymizer builds an anonymizer from the bias config.
func NewAnonymizer(cfg config.BiasConfig, logger observability.Logger) *Anonymizer {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Anonymizer{stripProxies: cfg.StripProxies, logger: logger}
}

// AnonymizeResponse rewrites all results in place and marks the
// response metadata with the anonymization timestamp.
func (a *Anonymizer) AnonymizeResponse(resp *models.SearchResponse) {
	if resp == nil {
		return
	}
	for i := range resp.Results {
		resp.Results[i] = a.anonymizeItem(resp.Results[i])
	}

	now := time.Now().UTC()
	if resp.Metadata == nil {
		resp.Metadata = &models.ResponseMetadata{}
	}
	resp.Metadata.Anonymized = true
	resp.Metadata.AnonymizedAt = &now
}

func (a *Anonymizer) anonymizeItem(item models.ResultItem) models.ResultItem {
	out := models.ResultItem{
		CandidateID:     item.CandidateID,
		Score:           item.Score,
		VectorScore:     item.VectorScore,
		TextScore:       item.TextScore,
		RRFScore:        item.RRFScore,
		Confidence:      item.Confidence,
		YearsExperience: item.YearsExperience,
		Skills:          item.Skills,
		Industries:      item.Industries,
		MatchReasons:    maskReasons(item.MatchReasons),
		SignalScores:    item.SignalScores,
		WeightsApplied:  item.WeightsApplied,
		MLTrajectory:    item.MLTrajectory,
		Anonymized:      true,
	}
	if a.stripProxies && out.SignalScores != nil {
		// Company pedigree correlates with protected attributes;
		// zeroing it drops the field from the serialized scores.
		scores := *out.SignalScores
		scores.CompanyPedigree = 0
		out.SignalScores = &scores
	}
	return out
}

func maskReasons(reasons []string) []string {
	if len(reasons) == 0 {
		return reasons
	}
	out := make([]string, len(reasons))
	for i, reason := range reasons {
		out[i] = maskReason(reason)
	}
	return out
}

// maskReason generalizes one match reason: concrete years and
// multi-word proper nouns are replaced, the rest is kept verbatim.
func maskReason(reason string) string {
	masked := yearPattern.ReplaceAllString(reason, "[year]")
	return properNounPattern.ReplaceAllString(masked, "[redacted]")
}
