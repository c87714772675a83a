package scoring

import (
	"regexp"
	"strings"

	"github.com/hirehound/search/pkg/nlp"
)

// Career levels. The technical track occupies 0-6 and the management
// track 7-13. Distances are computed on a shared stage scale so that a
// track change (senior engineer to tech lead, manager to staff) reads
// as lateral rather than downward.
const (
	UnknownLevel = -1

	LevelIntern        = 0
	LevelJunior        = 1
	LevelMid           = 2
	LevelSenior        = 3
	LevelStaff         = 4
	LevelPrincipal     = 5
	LevelDistinguished = 6

	LevelLead          = 7
	LevelManager       = 8
	LevelSeniorManager = 9
	LevelDirector      = 10
	LevelVP            = 11
	LevelSVP           = 12
	LevelCLevel        = 13
)

const managementTrackStart = LevelLead

// Track names used by trajectory classification and SearchContext.
const (
	TrackTechnical  = "technical"
	TrackManagement = "management"
)

// titlePatterns map raw titles to levels. First match wins, so more
// senior and more specific patterns come first ("senior vice president"
// before "vice president" before "president", "senior manager" before
// both "senior" and "manager").
var titlePatterns = []struct {
	re    *regexp.Regexp
	level int
}{
	{regexp.MustCompile(`\b(svp|senior vice[- ]president)\b`), LevelSVP},
	{regexp.MustCompile(`\b(vp|vice[- ]president)\b`), LevelVP},
	{regexp.MustCompile(`\b(ceo|cto|cfo|coo|cio|cpo|chief\s+[a-z ]+officer|president|presidente|founder|co[- ]?founder|fundador)\b`), LevelCLevel},
	{regexp.MustCompile(`\b(director|diretor|diretora|head of)\b`), LevelDirector},
	{regexp.MustCompile(`\b(senior\s+(engineering\s+|product\s+)?manager|gerente\s+s[êe]nior)\b`), LevelSeniorManager},
	{regexp.MustCompile(`\b(manager|gerente)\b`), LevelManager},
	{regexp.MustCompile(`\b(lead|l[íi]der)\b`), LevelLead},
	{regexp.MustCompile(`\b(distinguished|fellow)\b`), LevelDistinguished},
	{regexp.MustCompile(`\b(principal|especialista)\b`), LevelPrincipal},
	{regexp.MustCompile(`\bstaff\b`), LevelStaff},
	{regexp.MustCompile(`\b(senior|s[êe]nior|sr\.?)\b`), LevelSenior},
	{regexp.MustCompile(`\b(mid[- ]?level|intermediate|pleno|plena)\b`), LevelMid},
	{regexp.MustCompile(`\b(junior|j[úu]nior|jr\.?)\b`), LevelJunior},
	{regexp.MustCompile(`\b(intern(ship)?|trainee|estagi[áa]ri[oa])\b`), LevelIntern},
	// A bare role title with no level marker normalizes to mid.
	{regexp.MustCompile(`\b(engineer|developer|programmer|scientist|analyst|desenvolvedor(a)?|analista|engenheir[oa])\b`), LevelMid},
}

// seniorityLevels maps canonical seniority words (the hierarchy used by
// the synonym expander) onto the extended level table.
var seniorityLevels = map[string]int{
	"intern":    LevelIntern,
	"junior":    LevelJunior,
	"mid":       LevelMid,
	"senior":    LevelSenior,
	"staff":     LevelStaff,
	"principal": LevelPrincipal,
	"lead":      LevelLead,
	"manager":   LevelManager,
	"director":  LevelDirector,
	"vp":        LevelVP,
	"c-level":   LevelCLevel,
}

// NormalizeTitleLevel maps a free-form job title to a career level.
// Returns UnknownLevel when no pattern matches; unknown levels are
// excluded from distance and trajectory calculations.
func NormalizeTitleLevel(title string) int {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return UnknownLevel
	}
	for _, p := range titlePatterns {
		if p.re.MatchString(t) {
			return p.level
		}
	}
	return UnknownLevel
}

// SeniorityLevel maps a seniority word (including synonyms such as
// "sr" or "pleno") to a career level, or UnknownLevel.
func SeniorityLevel(seniority string) int {
	canonical := nlp.NormalizeSeniority(seniority)
	if canonical == "" {
		return UnknownLevel
	}
	if lvl, ok := seniorityLevels[canonical]; ok {
		return lvl
	}
	return UnknownLevel
}

// TrackOf reports which track a level belongs to.
func TrackOf(level int) string {
	if level >= managementTrackStart {
		return TrackManagement
	}
	return TrackTechnical
}

// stageOf collapses both tracks onto a shared career-stage scale:
// technical levels map to themselves (0-6) and management levels to
// 3-9, so lead aligns with senior and manager with staff.
func stageOf(level int) int {
	if level >= managementTrackStart {
		return level - managementTrackStart + LevelSenior
	}
	return level
}
