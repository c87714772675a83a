package search

import (
	"crypto/sha1" //nolint:gosec // cache key derivation, not security
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/hirehound/search/pkg/models"
)

// CacheToken derives the deterministic response cache identifier for a
// request. Tenant scoping is applied by the cache layer, not here.
//
// The token covers every field that shapes the response body: the
// retrieval inputs (query, filters, pagination, job description) and
// the response-shaping options (role type, weight overrides,
// anonymization, rationale). Two requests that would serve different
// bodies must never share a token, because cached entries are returned
// verbatim.
func CacheToken(req *models.SearchRequest) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(req.Query)))
	b.WriteByte('|')
	b.WriteString(canonicalFilters(req.Filters))
	b.WriteByte('|')
	fmt.Fprintf(&b, "limit=%d|offset=%d", req.Limit, req.Offset)
	b.WriteByte('|')
	if req.JDHash != "" {
		b.WriteString("jd=" + req.JDHash)
	} else if req.JobDescription != "" {
		sum := sha256.Sum256([]byte(req.JobDescription))
		b.WriteString("jd=" + hex.EncodeToString(sum[:8]))
	}
	b.WriteByte('|')
	b.WriteString("role=" + req.RoleType)
	if len(req.SignalWeights) > 0 {
		names := make([]string, 0, len(req.SignalWeights))
		for name := range req.SignalWeights {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "|w:%s=%.4f", name, req.SignalWeights[name])
		}
	}
	fmt.Fprintf(&b, "|nlp=%t|anon=%t|rationale=%t", req.NLPEnabled(), req.Anonymize, req.IncludeMatchRationale)

	sum := sha1.Sum([]byte(b.String())) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// EmbeddingCacheID keys the embedding cache layer on the normalized
// query text.
func EmbeddingCacheID(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

func canonicalFilters(f models.SearchFilters) string {
	if f.IsZero() {
		return ""
	}
	var parts []string
	appendList := func(name string, values []string) {
		if len(values) == 0 {
			return
		}
		lowered := make([]string, len(values))
		for i, v := range values {
			lowered[i] = strings.ToLower(strings.TrimSpace(v))
		}
		sort.Strings(lowered)
		parts = append(parts, name+"="+strings.Join(lowered, ","))
	}
	appendList("loc", f.Locations)
	appendList("country", f.Countries)
	appendList("skill", f.Skills)
	appendList("industry", f.Industries)
	appendList("seniority", f.SeniorityLevels)
	if f.MinExperienceYears != nil {
		parts = append(parts, fmt.Sprintf("minexp=%d", *f.MinExperienceYears))
	}
	if f.MaxExperienceYears != nil {
		parts = append(parts, fmt.Sprintf("maxexp=%d", *f.MaxExperienceYears))
	}
	if len(f.Metadata) > 0 {
		keys := make([]string, 0, len(f.Metadata))
		for k := range f.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("meta:%s=%v", k, f.Metadata[k]))
		}
	}
	return strings.Join(parts, ";")
}
