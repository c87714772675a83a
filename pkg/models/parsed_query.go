package models

// ParseMethod identifies how a query was parsed.
type ParseMethod string

// Parse methods.
const (
	ParseMethodNLP             ParseMethod = "nlp"
	ParseMethodKeywordFallback ParseMethod = "keyword_fallback"
)

// Intent classifies the query route.
type Intent string

// Intents.
const (
	IntentStructuredSearch Intent = "structured_search"
	IntentSimilaritySearch Intent = "similarity_search"
	IntentKeywordFallback  Intent = "keyword_fallback"
)

// ExperienceRange is an extracted min/max years requirement.
type ExperienceRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// ExpandedSkill is an ontology-derived skill with decayed confidence.
type ExpandedSkill struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Hops       int     `json:"hops"`
	Source     string  `json:"source,omitempty"`
}

// ExtractedEntities is the typed record produced by the entity
// extractor, enriched with ontology expansion.
type ExtractedEntities struct {
	Role            string           `json:"role,omitempty"`
	Skills          []string         `json:"skills,omitempty"`
	ExpandedSkills  []ExpandedSkill  `json:"expandedSkills,omitempty"`
	Seniority       string           `json:"seniority,omitempty"`
	Location        string           `json:"location,omitempty"`
	Remote          *bool            `json:"remote,omitempty"`
	ExperienceYears *ExperienceRange `json:"experienceYears,omitempty"`
}

// IsEmpty reports whether nothing was extracted.
func (e ExtractedEntities) IsEmpty() bool {
	return e.Role == "" && len(e.Skills) == 0 && e.Seniority == "" &&
		e.Location == "" && e.Remote == nil && e.ExperienceYears == nil
}

// SemanticExpansion holds hierarchy-aware synonym expansions.
type SemanticExpansion struct {
	ExpandedRoles       []string `json:"expandedRoles,omitempty"`
	ExpandedSeniorities []string `json:"expandedSeniorities,omitempty"`
}

// ParsedQuery is the immutable result of NLP orchestration for one
// request.
type ParsedQuery struct {
	OriginalQuery     string             `json:"originalQuery"`
	ParseMethod       ParseMethod        `json:"parseMethod"`
	Confidence        float64            `json:"confidence"`
	Intent            Intent             `json:"intent"`
	Entities          ExtractedEntities  `json:"entities"`
	SemanticExpansion SemanticExpansion  `json:"semanticExpansion"`
	Timings           map[string]float64 `json:"timings,omitempty"`
}

// SearchContext is the scoring context derived from a parsed query and
// the request filters. Nil context means signal calculators fall back
// to neutral values.
type SearchContext struct {
	RequiredSkills   []string
	TargetSeniority  string
	TargetCompanies  []string
	TargetIndustries []string
	TargetLocation   string

	// TargetTrack is "technical" or "management"; RoleGrowthType hints
	// the expected trajectory ("growth", "stable"). AllowPivots accepts
	// career-pivot candidates without penalty.
	TargetTrack    string
	RoleGrowthType string
	AllowPivots    bool
}
