// Package nlp implements query understanding: intent routing, LLM entity
// extraction, ontology-driven skill expansion, and seniority/role synonym
// expansion, orchestrated by the query parser. All external calls degrade
// to a keyword fallback so retrieval never depends on NLP availability.
package nlp

import "strings"

// seniorityOrder is the canonical hierarchy from most junior to most
// senior, spanning both the technical and management tracks.
var seniorityOrder = []string{
	"intern", "junior", "mid", "senior", "staff", "principal",
	"lead", "manager", "director", "vp", "c-level",
}

var seniorityRank = make(map[string]int, len(seniorityOrder))

func init() {
	for i, s := range seniorityOrder {
		seniorityRank[s] = i
	}
}

// senioritySynonyms maps each canonical level to its accepted spellings
// in English and Portuguese. All entries are lowercase.
var senioritySynonyms = map[string][]string{
	"intern":    {"intern", "internship", "trainee", "estagiario", "estagiário", "estagio", "estágio"},
	"junior":    {"junior", "jr", "jr.", "entry level", "entry-level", "júnior"},
	"mid":       {"mid", "mid-level", "midlevel", "mid level", "intermediate", "pleno", "plena"},
	"senior":    {"senior", "sr", "sr.", "sênior", "senior-level"},
	"staff":     {"staff", "staff engineer"},
	"principal": {"principal", "principal engineer"},
	"lead":      {"lead", "tech lead", "tech-lead", "team lead", "lider tecnico", "líder técnico"},
	"manager":   {"manager", "engineering manager", "gerente", "gestor", "gestora"},
	"director":  {"director", "head of engineering", "diretor", "diretora"},
	"vp":        {"vp", "vice president", "vp of engineering", "vice-presidente"},
	"c-level":   {"c-level", "cto", "cio", "chief technology officer", "executivo", "executiva"},
}

// roleSynonyms groups interchangeable job titles. The first entry of each
// group is the canonical title.
var roleSynonyms = [][]string{
	{"developer", "engineer", "programmer", "software engineer", "software developer", "dev", "desenvolvedor", "desenvolvedora", "programador", "programadora", "engenheiro de software", "engenheira de software"},
	{"frontend developer", "front-end developer", "frontend engineer", "front end developer", "ui developer", "desenvolvedor frontend", "desenvolvedor front-end"},
	{"backend developer", "back-end developer", "backend engineer", "back end developer", "desenvolvedor backend", "desenvolvedor back-end"},
	{"fullstack developer", "full-stack developer", "full stack developer", "fullstack engineer", "desenvolvedor fullstack", "desenvolvedor full stack"},
	{"mobile developer", "android developer", "ios developer", "mobile engineer", "desenvolvedor mobile"},
	{"data scientist", "cientista de dados"},
	{"data engineer", "engenheiro de dados", "analytics engineer"},
	{"machine learning engineer", "ml engineer", "ai engineer", "engenheiro de machine learning"},
	{"devops engineer", "devops", "sre", "site reliability engineer", "platform engineer", "infrastructure engineer", "engenheiro devops"},
	{"qa engineer", "qa", "quality assurance engineer", "test engineer", "qa analyst", "analista de qa", "analista de testes"},
	{"architect", "software architect", "solutions architect", "arquiteto", "arquiteto de software"},
	{"product manager", "pm", "gerente de produto", "product owner", "po"},
	{"designer", "ux designer", "ui designer", "product designer"},
}

var roleIndex = make(map[string]int)

func init() {
	for i, group := range roleSynonyms {
		for _, title := range group {
			roleIndex[title] = i
		}
	}
}

var seniorityLookup = make(map[string]string)

func init() {
	for canonical, synonyms := range senioritySynonyms {
		for _, s := range synonyms {
			seniorityLookup[s] = canonical
		}
	}
}

// NormalizeSeniority maps any accepted spelling, Portuguese included, to
// the canonical level name. Returns "" when the input is not recognized.
func NormalizeSeniority(s string) string {
	return seniorityLookup[strings.ToLower(strings.TrimSpace(s))]
}

// SeniorityRank returns the position of a level in the hierarchy, or -1
// for unrecognized input. Accepts synonyms.
func SeniorityRank(s string) int {
	canonical := NormalizeSeniority(s)
	if canonical == "" {
		return -1
	}
	return seniorityRank[canonical]
}

// ExpandSenioritySynonyms returns the synonym set for a level. With
// includeHigherLevels it also appends every strictly higher level, so a
// search for "senior" matches staff, principal and lead candidates.
// Management-track input additionally expands to the stage-equivalent
// technical levels (lead aligns with senior, manager with staff,
// director with principal), matching the stage scale the scoring side
// uses for track distance. Returns nil for unrecognized input.
func ExpandSenioritySynonyms(s string, includeHigherLevels bool) []string {
	canonical := NormalizeSeniority(s)
	if canonical == "" {
		return nil
	}

	out := make([]string, 0, len(senioritySynonyms[canonical])+len(seniorityOrder))
	seen := make(map[string]bool)
	for _, syn := range senioritySynonyms[canonical] {
		if !seen[syn] {
			seen[syn] = true
			out = append(out, syn)
		}
	}
	if includeHigherLevels {
		rank := seniorityRank[canonical]
		if shift := rank - seniorityRank["lead"]; shift >= 0 {
			start := seniorityRank["senior"] + shift
			for end := seniorityRank["principal"] + 1; start < end; start++ {
				level := seniorityOrder[start]
				if !seen[level] {
					seen[level] = true
					out = append(out, level)
				}
			}
		}
		for _, level := range seniorityOrder[rank+1:] {
			if !seen[level] {
				seen[level] = true
				out = append(out, level)
			}
		}
	}
	return out
}

// NormalizeRole returns the canonical title for a role, or "" when the
// role is not in any synonym group.
func NormalizeRole(role string) string {
	i, ok := roleIndex[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return ""
	}
	return roleSynonyms[i][0]
}

// ExpandRoleSynonyms returns all interchangeable titles for a role, the
// input's group in declaration order. Returns nil for unrecognized input.
func ExpandRoleSynonyms(role string) []string {
	i, ok := roleIndex[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return nil
	}
	group := make([]string, len(roleSynonyms[i]))
	copy(group, roleSynonyms[i])
	return group
}

// portugueseReplacements normalizes Portuguese seniority and role terms
// to English before entity extraction. Keys are matched case-insensitively
// on word boundaries, longest first.
var portugueseReplacements = []struct {
	from, to string
}{
	{"engenheiro de machine learning", "machine learning engineer"},
	{"engenheira de software", "software engineer"},
	{"engenheiro de software", "software engineer"},
	{"engenheiro de dados", "data engineer"},
	{"cientista de dados", "data scientist"},
	{"gerente de produto", "product manager"},
	{"arquiteto de software", "software architect"},
	{"analista de testes", "test engineer"},
	{"anos de experiencia", "years of experience"},
	{"anos de experiência", "years of experience"},
	{"desenvolvedora", "developer"},
	{"desenvolvedor", "developer"},
	{"programadora", "programmer"},
	{"programador", "programmer"},
	{"engenheiro", "engineer"},
	{"engenheira", "engineer"},
	{"arquiteto", "architect"},
	{"estagiário", "intern"},
	{"estagiario", "intern"},
	{"estágio", "internship"},
	{"estagio", "internship"},
	{"júnior", "junior"},
	{"pleno", "mid-level"},
	{"plena", "mid-level"},
	{"sênior", "senior"},
	{"gerente", "manager"},
	{"gestor", "manager"},
	{"diretor", "director"},
	{"diretora", "director"},
	{"remoto", "remote"},
	{"remota", "remote"},
	{"vaga", "position"},
}

// NormalizePortugueseTerms rewrites Portuguese seniority and role
// vocabulary to English so the extractor prompt and downstream matching
// operate on one language. Skill names and locations are left untouched.
func NormalizePortugueseTerms(query string) string {
	lower := strings.ToLower(query)
	for _, r := range portugueseReplacements {
		lower = replaceWholeWords(lower, r.from, r.to)
	}
	return lower
}

// replaceWholeWords replaces occurrences of from in s when bounded by
// non-letter characters or string edges. Both s and from must already be
// lowercase.
func replaceWholeWords(s, from, to string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, from)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := i + len(from)
		if boundedAt(s, i, end) {
			b.WriteString(s[:i])
			b.WriteString(to)
		} else {
			b.WriteString(s[:end])
		}
		s = s[end:]
	}
}

func boundedAt(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80
}
