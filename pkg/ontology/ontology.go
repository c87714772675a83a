// Package ontology provides the static skills graph used for query
// expansion and alias resolution. The graph ships embedded in the binary
// and is immutable after load; curation happens upstream of this service.
package ontology

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hirehound/search/pkg/observability"
)

//go:embed skills_ontology.json
var skillsOntologyJSON []byte

const (
	// DefaultDepth bounds expansion to direct neighbors.
	DefaultDepth = 1
	// DefaultMinConfidence drops weakly related skills from expansions.
	DefaultMinConfidence = 0.8

	expansionCacheSize = 500
	expansionCacheTTL  = time.Hour
)

// MarketData carries optional demand indicators for a skill.
type MarketData struct {
	DemandScore float64 `json:"demand_score"`
	GrowthRate  float64 `json:"growth_rate"`
}

// Skill is a canonical skill entry. ID is the canonical lowercase name.
type Skill struct {
	ID         string      `json:"id"`
	Aliases    []string    `json:"aliases"`
	Category   string      `json:"category"`
	MarketData *MarketData `json:"market_data,omitempty"`
}

// Expansion is one related skill produced by Expand.
type Expansion struct {
	Skill      string
	Confidence float64
	Hops       int
}

type edge struct {
	to         string
	confidence float64
}

type ontologyFile struct {
	Version string  `json:"version"`
	Skills  []Skill `json:"skills"`
	Edges   []struct {
		From       string  `json:"from"`
		To         string  `json:"to"`
		Confidence float64 `json:"confidence"`
	} `json:"edges"`
}

type expansionEntry struct {
	results  []Expansion
	cachedAt time.Time
}

// Ontology is the in-process skills graph. All lookups are read-only and
// safe for concurrent use; the expansion cache is bounded LRU with TTL.
type Ontology struct {
	skills  map[string]*Skill
	aliases map[string]string
	edges   map[string][]edge

	cache    *lru.Cache[string, *expansionEntry]
	cacheTTL time.Duration
	logger   observability.Logger
}

// New parses the embedded ontology file.
func New(logger observability.Logger) (*Ontology, error) {
	return NewFromJSON(skillsOntologyJSON, logger)
}

// NewFromJSON builds an ontology from raw JSON. Edges must reference
// declared skills and carry confidences in [0,1].
func NewFromJSON(data []byte, logger observability.Logger) (*Ontology, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	var file ontologyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse skills ontology: %w", err)
	}

	o := &Ontology{
		skills:   make(map[string]*Skill, len(file.Skills)),
		aliases:  make(map[string]string),
		edges:    make(map[string][]edge),
		cacheTTL: expansionCacheTTL,
		logger:   logger,
	}

	for i := range file.Skills {
		s := &file.Skills[i]
		id := strings.ToLower(s.ID)
		o.skills[id] = s
		for _, alias := range s.Aliases {
			o.aliases[strings.ToLower(alias)] = id
		}
	}

	for _, e := range file.Edges {
		from := strings.ToLower(e.From)
		to := strings.ToLower(e.To)
		if _, ok := o.skills[from]; !ok {
			return nil, fmt.Errorf("ontology edge references unknown skill %q", e.From)
		}
		if _, ok := o.skills[to]; !ok {
			return nil, fmt.Errorf("ontology edge references unknown skill %q", e.To)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return nil, fmt.Errorf("ontology edge %s->%s has confidence %v outside [0,1]", e.From, e.To, e.Confidence)
		}
		o.edges[from] = append(o.edges[from], edge{to: to, confidence: e.Confidence})
	}

	cache, err := lru.New[string, *expansionEntry](expansionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create expansion cache: %w", err)
	}
	o.cache = cache

	logger.Info("Skills ontology loaded", map[string]interface{}{
		"version": file.Version,
		"skills":  len(o.skills),
		"edges":   len(file.Edges),
	})

	return o, nil
}

// Resolve maps a name or alias to its canonical skill. Case-insensitive.
func (o *Ontology) Resolve(nameOrAlias string) (*Skill, bool) {
	key := strings.ToLower(strings.TrimSpace(nameOrAlias))
	if s, ok := o.skills[key]; ok {
		return s, true
	}
	if id, ok := o.aliases[key]; ok {
		return o.skills[id], true
	}
	return nil, false
}

// CanonicalName returns the canonical skill ID for a name or alias, or
// the lowercased input when the skill is unknown. Two skill strings are
// alias-equivalent exactly when their canonical names match.
func (o *Ontology) CanonicalName(nameOrAlias string) string {
	if s, ok := o.Resolve(nameOrAlias); ok {
		return s.ID
	}
	return strings.ToLower(strings.TrimSpace(nameOrAlias))
}

// Expand returns skills related to the given one within depth hops.
// Confidence along a path is the product of edge confidences; a skill
// reachable by multiple paths keeps the maximum. Skills below
// minConfidence are dropped. Results are cached per (skill, depth), so
// the threshold is applied after cache retrieval.
func (o *Ontology) Expand(nameOrAlias string, depth int, minConfidence float64) []Expansion {
	root, ok := o.Resolve(nameOrAlias)
	if !ok {
		o.logger.Debugf("No ontology entry for skill %q", nameOrAlias)
		return nil
	}
	if depth <= 0 {
		depth = DefaultDepth
	}

	key := fmt.Sprintf("%s:%d", root.ID, depth)
	if entry, ok := o.cache.Get(key); ok && time.Since(entry.cachedAt) < o.cacheTTL {
		return filterByConfidence(entry.results, minConfidence)
	}

	results := o.walk(root.ID, depth)
	o.cache.Add(key, &expansionEntry{results: results, cachedAt: time.Now()})

	return filterByConfidence(results, minConfidence)
}

type pathState struct {
	confidence float64
	hops       int
}

// walk runs the level-by-level relaxation. current holds the best
// confidence achievable with exactly hop hops, best the maximum over all
// path lengths up to depth.
func (o *Ontology) walk(rootID string, depth int) []Expansion {
	best := make(map[string]pathState)
	current := map[string]float64{rootID: 1.0}

	for hop := 1; hop <= depth && len(current) > 0; hop++ {
		next := make(map[string]float64)
		for id, conf := range current {
			for _, e := range o.edges[id] {
				if c := conf * e.confidence; c > next[e.to] {
					next[e.to] = c
				}
			}
		}
		for id, c := range next {
			if cur, ok := best[id]; !ok || c > cur.confidence {
				best[id] = pathState{confidence: c, hops: hop}
			}
		}
		current = next
	}

	results := make([]Expansion, 0, len(best))
	for id, st := range best {
		if id == rootID {
			continue
		}
		results = append(results, Expansion{Skill: id, Confidence: st.confidence, Hops: st.hops})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Skill < results[j].Skill
	})
	return results
}

func filterByConfidence(in []Expansion, threshold float64) []Expansion {
	out := make([]Expansion, 0, len(in))
	for _, e := range in {
		if e.Confidence >= threshold {
			out = append(out, e)
		}
	}
	return out
}
