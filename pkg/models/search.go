// Package models holds the shared domain types of the candidate search
// service: request and response shapes, parsed query structures, signal
// scores, and selection events.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role types selecting a weight preset.
const (
	RoleTypeExecutive = "executive"
	RoleTypeManager   = "manager"
	RoleTypeIC        = "ic"
	RoleTypeDefault   = "default"
)

// MaxLimit bounds the number of results per request.
const MaxLimit = 200

// MaxOffset bounds pagination depth.
const MaxOffset = 200

// SearchFilters restricts retrieval to candidates matching structured
// criteria. All fields are optional.
type SearchFilters struct {
	Locations          []string               `json:"locations,omitempty"`
	Countries          []string               `json:"countries,omitempty"`
	Skills             []string               `json:"skills,omitempty"`
	Industries         []string               `json:"industries,omitempty"`
	SeniorityLevels    []string               `json:"seniorityLevels,omitempty"`
	MinExperienceYears *int                   `json:"minExperienceYears,omitempty"`
	MaxExperienceYears *int                   `json:"maxExperienceYears,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// IsZero reports whether no filter criteria are set.
func (f SearchFilters) IsZero() bool {
	return len(f.Locations) == 0 && len(f.Countries) == 0 && len(f.Skills) == 0 &&
		len(f.Industries) == 0 && len(f.SeniorityLevels) == 0 &&
		f.MinExperienceYears == nil && f.MaxExperienceYears == nil && len(f.Metadata) == 0
}

// SearchRequest is the hybrid search request body.
type SearchRequest struct {
	Query          string        `json:"query,omitempty"`
	Embedding      []float32     `json:"embedding,omitempty"`
	JobDescription string        `json:"jobDescription,omitempty"`
	JDHash         string        `json:"jdHash,omitempty"`
	Filters        SearchFilters `json:"filters,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	IncludeDebug bool `json:"includeDebug,omitempty"`

	RoleType      string             `json:"roleType,omitempty"`
	SignalWeights map[string]float64 `json:"signalWeights,omitempty"`

	EnableNLP              *bool   `json:"enableNlp,omitempty"`
	NLPConfidenceThreshold float64 `json:"nlpConfidenceThreshold,omitempty"`

	Anonymize             bool `json:"anonymize,omitempty"`
	IncludeMatchRationale bool `json:"includeMatchRationale,omitempty"`
	RationaleLimit        int  `json:"rationaleLimit,omitempty"`
}

// NLPEnabled reports whether NLP parsing is requested. Defaults to true
// when the flag is absent.
func (r *SearchRequest) NLPEnabled() bool {
	if r.EnableNLP == nil {
		return true
	}
	return *r.EnableNLP
}

// Validate checks the request invariants. The returned error is a
// *ValidationError suitable for a 400 response.
func (r *SearchRequest) Validate() error {
	if r.Query == "" && len(r.Embedding) == 0 && r.JobDescription == "" {
		return &ValidationError{
			Field:   "query",
			Message: "one of query, embedding, or jobDescription is required",
		}
	}
	if r.Limit < 0 || r.Limit > MaxLimit {
		return &ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must be between 1 and %d", MaxLimit),
		}
	}
	if r.Offset < 0 || r.Offset > MaxOffset {
		return &ValidationError{
			Field:   "offset",
			Message: fmt.Sprintf("offset must be between 0 and %d", MaxOffset),
		}
	}
	for name, w := range r.SignalWeights {
		if w < 0 || w > 1 {
			return &ValidationError{
				Field:   "signalWeights." + name,
				Message: "weights must be in [0,1]",
			}
		}
	}
	if r.NLPConfidenceThreshold < 0 || r.NLPConfidenceThreshold > 1 {
		return &ValidationError{
			Field:   "nlpConfidenceThreshold",
			Message: "threshold must be in [0,1]",
		}
	}
	if r.RationaleLimit < 0 {
		return &ValidationError{
			Field:   "rationaleLimit",
			Message: "rationaleLimit must be >= 0",
		}
	}
	return nil
}

// ValidationError describes a malformed request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Compliance carries the data-processing basis attached to a candidate.
type Compliance struct {
	LegalBasis        string `json:"legalBasis,omitempty"`
	ConsentRecord     string `json:"consentRecord,omitempty"`
	TransferMechanism string `json:"transferMechanism,omitempty"`
}

// Candidate is a hydrated candidate profile produced by the store
// adapter and consumed by the scoring engine.
type Candidate struct {
	CandidateID        string                 `json:"candidateId"`
	TenantID           uuid.UUID              `json:"-"`
	FullName           string                 `json:"fullName,omitempty"`
	Title              string                 `json:"title,omitempty"`
	Headline           string                 `json:"headline,omitempty"`
	Location           string                 `json:"location,omitempty"`
	Country            *string                `json:"country,omitempty"`
	Industries         []string               `json:"industries,omitempty"`
	Skills             []string               `json:"skills,omitempty"`
	YearsExperience    float64                `json:"yearsExperience"`
	AnalysisConfidence float64                `json:"analysisConfidence"`
	Profile            map[string]interface{} `json:"profile,omitempty"`
	Compliance         Compliance             `json:"compliance"`

	VectorScore float64   `json:"vectorScore"`
	TextScore   float64   `json:"textScore"`
	VectorRank  int       `json:"vectorRank,omitempty"`
	TextRank    int       `json:"textRank,omitempty"`
	RRFScore    float64   `json:"rrfScore,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// SignalScores are the per-candidate component scores, all in [0,1].
// Pointer fields are present only when the search context allowed
// computing them.
type SignalScores struct {
	VectorSimilarity float64 `json:"vectorSimilarity"`
	LevelMatch       float64 `json:"levelMatch"`
	SpecialtyMatch   float64 `json:"specialtyMatch"`
	TechStackMatch   float64 `json:"techStackMatch"`
	FunctionMatch    float64 `json:"functionMatch"`
	TrajectoryFit    float64 `json:"trajectoryFit"`
	CompanyPedigree  float64 `json:"companyPedigree,omitempty"`

	SkillsExactMatch   *float64 `json:"skillsExactMatch,omitempty"`
	SkillsInferred     *float64 `json:"skillsInferred,omitempty"`
	SeniorityAlignment *float64 `json:"seniorityAlignment,omitempty"`
	RecencyBoost       *float64 `json:"recencyBoost,omitempty"`
	CompanyRelevance   *float64 `json:"companyRelevance,omitempty"`
	SkillsMatch        *float64 `json:"skillsMatch,omitempty"`
}

// WeightConfig maps signal names to weights. Present weights are
// expected to sum to 1.0 after resolution.
type WeightConfig map[string]float64

// Sum returns the total of all weights.
func (w WeightConfig) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Clone returns a copy of the config.
func (w WeightConfig) Clone() WeightConfig {
	out := make(WeightConfig, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// MLTrajectory is the optional prediction block attached per candidate
// when the trajectory service is available.
type MLTrajectory struct {
	NextRole        string  `json:"nextRole,omitempty"`
	ReadinessScore  float64 `json:"readinessScore,omitempty"`
	GrowthPotential float64 `json:"growthPotential,omitempty"`
	ModelVersion    string  `json:"modelVersion,omitempty"`
}

// ResultItem is one scored candidate in a search response.
type ResultItem struct {
	CandidateID string  `json:"candidateId"`
	Score       float64 `json:"score"`

	FullName string  `json:"fullName,omitempty"`
	Title    string  `json:"title,omitempty"`
	Headline string  `json:"headline,omitempty"`
	Location string  `json:"location,omitempty"`
	Country  *string `json:"country,omitempty"`

	VectorScore float64  `json:"vectorScore"`
	TextScore   float64  `json:"textScore"`
	RRFScore    *float64 `json:"rrfScore,omitempty"`
	Confidence  float64  `json:"confidence"`

	YearsExperience *float64 `json:"yearsExperience,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Industries      []string `json:"industries,omitempty"`

	MatchReasons   []string      `json:"matchReasons"`
	SignalScores   *SignalScores `json:"signalScores,omitempty"`
	WeightsApplied WeightConfig  `json:"weightsApplied,omitempty"`
	RoleType       string        `json:"roleType,omitempty"`

	Compliance   *Compliance            `json:"compliance,omitempty"`
	Rationale    string                 `json:"rationale,omitempty"`
	MLTrajectory *MLTrajectory          `json:"mlTrajectory,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	Anonymized bool `json:"anonymized,omitempty"`
}

// DiversityWarning flags a concentrated dimension in the result slate.
type DiversityWarning struct {
	Dimension     string  `json:"dimension"`
	DominantGroup string  `json:"dominantGroup"`
	Share         float64 `json:"share"`
	Severity      string  `json:"severity"`
	Suggestion    string  `json:"suggestion,omitempty"`
}

// DiversitySummary is the slate diversity analysis attached to response
// metadata.
type DiversitySummary struct {
	Score         float64                       `json:"score"`
	Distributions map[string]map[string]float64 `json:"distributions"`
	Warnings      []DiversityWarning            `json:"warnings,omitempty"`
	Analyzed      bool                          `json:"analyzed"`
	SlateSize     int                           `json:"slateSize"`
}

// ResponseMetadata carries response-level annotations.
type ResponseMetadata struct {
	Anonymized   bool              `json:"anonymized,omitempty"`
	AnonymizedAt *time.Time        `json:"anonymizedAt,omitempty"`
	Diversity    *DiversitySummary `json:"diversity,omitempty"`
	SearchMode   string            `json:"searchMode,omitempty"`
	RerankUsed   bool              `json:"rerankUsed,omitempty"`
	RerankCached bool              `json:"rerankCached,omitempty"`
}

// SearchResponse is the hybrid search response body.
type SearchResponse struct {
	Results   []ResultItem           `json:"results"`
	Total     int                    `json:"total"`
	CacheHit  bool                   `json:"cacheHit"`
	RequestID string                 `json:"requestId"`
	Timings   map[string]float64     `json:"timings,omitempty"`
	Metadata  *ResponseMetadata      `json:"metadata,omitempty"`
	Debug     map[string]interface{} `json:"debug,omitempty"`
}
