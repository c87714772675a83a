package nlp

import (
	"sort"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/ontology"
)

const (
	// DefaultExpansionDecay discounts ontology confidence for expanded
	// skills relative to explicitly requested ones.
	DefaultExpansionDecay = 0.6

	defaultMaxExpansions = 10
)

// ExpanderConfig configures ontology-driven skill expansion.
type ExpanderConfig struct {
	Depth         int
	MinConfidence float64
	DecayFactor   float64
	MaxExpansions int
}

// QueryExpander derives related skills for a set of extracted skills.
type QueryExpander struct {
	ontology *ontology.Ontology
	config   ExpanderConfig
}

// NewQueryExpander creates an expander. Zero config fields get defaults:
// depth 1, minimum confidence 0.8, decay 0.6, at most 10 expansions.
func NewQueryExpander(ont *ontology.Ontology, config ExpanderConfig) *QueryExpander {
	if config.Depth <= 0 {
		config.Depth = ontology.DefaultDepth
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = ontology.DefaultMinConfidence
	}
	if config.DecayFactor <= 0 || config.DecayFactor > 1 {
		config.DecayFactor = DefaultExpansionDecay
	}
	if config.MaxExpansions <= 0 {
		config.MaxExpansions = defaultMaxExpansions
	}
	return &QueryExpander{ontology: ont, config: config}
}

// ExpandSkills expands each input skill through the ontology and applies
// the decay factor. Skills reachable from several inputs keep the highest
// confidence; canonical forms of the inputs themselves are excluded. The
// result is capped and sorted by confidence.
func (x *QueryExpander) ExpandSkills(skills []string) []models.ExpandedSkill {
	if len(skills) == 0 {
		return nil
	}

	inputSet := make(map[string]bool, len(skills))
	for _, s := range skills {
		inputSet[x.ontology.CanonicalName(s)] = true
	}

	best := make(map[string]models.ExpandedSkill)
	for _, s := range skills {
		for _, e := range x.ontology.Expand(s, x.config.Depth, x.config.MinConfidence) {
			if inputSet[e.Skill] {
				continue
			}
			confidence := e.Confidence * x.config.DecayFactor
			if cur, ok := best[e.Skill]; !ok || confidence > cur.Confidence {
				best[e.Skill] = models.ExpandedSkill{
					Name:       e.Skill,
					Confidence: confidence,
					Hops:       e.Hops,
					Source:     "ontology",
				}
			}
		}
	}
	if len(best) == 0 {
		return nil
	}

	out := make([]models.ExpandedSkill, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > x.config.MaxExpansions {
		out = out[:x.config.MaxExpansions]
	}
	return out
}
