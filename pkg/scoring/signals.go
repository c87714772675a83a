package scoring

import (
	"strings"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/ontology"
)

// neutralScore is returned by every calculator when the context it
// needs is missing.
const neutralScore = 0.5

// missingDataScore marks absent experience data: below neutral so the
// unknown is visible in the blend, above zero so it is not punitive.
const missingDataScore = 0.3

// TransferRule scores how well one skill transfers to another. Rules
// are directional; both directions exist only when both are listed.
type TransferRule struct {
	From  string
	To    string
	Score float64
}

// transferRules are checked in order and the first match wins. Names
// are canonical ontology ids.
var transferRules = []TransferRule{
	{"vue", "react", 0.75},
	{"react", "vue", 0.75},
	{"angular", "react", 0.65},
	{"angular", "vue", 0.65},
	{"java", "kotlin", 0.90},
	{"kotlin", "java", 0.85},
	{"typescript", "javascript", 0.95},
	{"javascript", "typescript", 0.80},
	{"python", "go", 0.60},
	{"aws", "gcp", 0.70},
	{"gcp", "aws", 0.70},
	{"aws", "azure", 0.65},
	{"azure", "aws", 0.65},
	{"gcp", "azure", 0.65},
	{"azure", "gcp", 0.65},
	{"postgresql", "mysql", 0.85},
	{"mysql", "postgresql", 0.85},
}

// Calculator computes per-candidate signal scores. All methods return
// values in [0,1] and fall back to neutral when context is missing.
// Skill comparisons are alias-equivalent through the ontology.
type Calculator struct {
	ont *ontology.Ontology
}

func NewCalculator(ont *ontology.Ontology) *Calculator {
	return &Calculator{ont: ont}
}

func (c *Calculator) canonical(skill string) string {
	if c.ont != nil {
		return c.ont.CanonicalName(skill)
	}
	return strings.ToLower(strings.TrimSpace(skill))
}

// matchRequiredSkills splits the required set into exactly matched
// skills and transfer-rule inferences against the candidate's skills.
func (c *Calculator) matchRequiredSkills(candidateSkills, requiredSkills []string) (exact []string, inferred []TransferRule) {
	have := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		have[c.canonical(s)] = struct{}{}
	}
	for _, req := range requiredSkills {
		want := c.canonical(req)
		if _, ok := have[want]; ok {
			exact = append(exact, want)
			continue
		}
		for _, rule := range transferRules {
			if rule.To != want {
				continue
			}
			if _, ok := have[rule.From]; ok {
				inferred = append(inferred, rule)
				break
			}
		}
	}
	return exact, inferred
}

// ExactSkillMatch is the fraction of required skills the candidate
// holds, with alias equivalence. Zero when the candidate lists no
// skills at all.
func (c *Calculator) ExactSkillMatch(candidateSkills, requiredSkills []string) float64 {
	if len(requiredSkills) == 0 {
		return neutralScore
	}
	if len(candidateSkills) == 0 {
		return 0
	}
	exact, _ := c.matchRequiredSkills(candidateSkills, requiredSkills)
	return float64(len(exact)) / float64(len(requiredSkills))
}

// InferredSkillMatch scores required skills the candidate does not
// hold exactly but can likely transfer into: the mean transfer score
// scaled by the fraction of required skills covered by a rule.
func (c *Calculator) InferredSkillMatch(candidateSkills, requiredSkills []string) float64 {
	if len(requiredSkills) == 0 {
		return neutralScore
	}
	_, inferred := c.matchRequiredSkills(candidateSkills, requiredSkills)
	if len(inferred) == 0 {
		return 0
	}
	var sum float64
	for _, rule := range inferred {
		sum += rule.Score
	}
	mean := sum / float64(len(inferred))
	return mean * float64(len(inferred)) / float64(len(requiredSkills))
}

// SkillCoverage is the fraction of required skills matched either
// exactly or through a transfer rule. Used for the coverage bonus.
func (c *Calculator) SkillCoverage(candidateSkills, requiredSkills []string) float64 {
	if len(requiredSkills) == 0 {
		return 0
	}
	exact, inferred := c.matchRequiredSkills(candidateSkills, requiredSkills)
	return float64(len(exact)+len(inferred)) / float64(len(requiredSkills))
}

// SeniorityAlignment scores the distance between the candidate's
// title level and the target seniority on the shared stage scale. The
// candidate's effective level shifts by company tier before the
// comparison: FAANG-tier +1, startup -1.
func (c *Calculator) SeniorityAlignment(candidateTitle string, tier CompanyTier, targetSeniority string) float64 {
	target := SeniorityLevel(targetSeniority)
	if target == UnknownLevel {
		return neutralScore
	}
	level := NormalizeTitleLevel(candidateTitle)
	if level == UnknownLevel {
		return neutralScore
	}
	stage := stageOf(level) + levelAdjustment(tier)
	distance := stage - stageOf(target)
	if distance < 0 {
		distance = -distance
	}
	switch distance {
	case 0:
		return 1.0
	case 1:
		return 0.8
	case 2:
		return 0.6
	case 3:
		return 0.4
	default:
		return 0.2
	}
}

// RecencyBoost scores how recently the candidate used the required
// skills. A skill in a current role scores 1.0; otherwise the score
// decays by 0.16 per year since the role ended, floored at 0.1. Skills
// never seen in any experience are ignored; with no usable data the
// signal reports missing (0.3).
func (c *Calculator) RecencyBoost(experiences []models.Experience, requiredSkills []string) float64 {
	if len(requiredSkills) == 0 {
		return neutralScore
	}
	if len(experiences) == 0 {
		return missingDataScore
	}
	var sum float64
	var counted int
	for _, req := range requiredSkills {
		want := c.canonical(req)
		best := -1.0
		for _, exp := range experiences {
			if !c.experienceUses(exp, want) {
				continue
			}
			score := 1.0
			if !exp.IsCurrent {
				score = 1.0 - 0.16*exp.YearsSinceEnd
				if score < 0.1 {
					score = 0.1
				}
			}
			if score > best {
				best = score
			}
		}
		if best >= 0 {
			sum += best
			counted++
		}
	}
	if counted == 0 {
		return missingDataScore
	}
	return sum / float64(counted)
}

func (c *Calculator) experienceUses(exp models.Experience, canonicalSkill string) bool {
	for _, s := range exp.Skills {
		if c.canonical(s) == canonicalSkill {
			return true
		}
	}
	return false
}

// CompanyRelevance averages up to three sub-signals, each enabled only
// when its target context is present: direct target-company match,
// tier affinity against the target companies, and industry overlap.
func (c *Calculator) CompanyRelevance(cand *models.Candidate, experiences []models.Experience, ctx *models.SearchContext) float64 {
	if ctx == nil {
		return neutralScore
	}
	var scores []float64
	if len(ctx.TargetCompanies) > 0 {
		scores = append(scores, companyMatchScore(experiences, ctx.TargetCompanies))
		tier := DetectCompanyTier(profileTier(cand), PrimaryCompany(experiences))
		scores = append(scores, tierAffinityScore(tier, ctx.TargetCompanies))
	}
	if len(ctx.TargetIndustries) > 0 {
		scores = append(scores, industryMatchScore(cand.Industries, ctx.TargetIndustries))
	}
	if len(scores) == 0 {
		return neutralScore
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// PrimaryCompany is the company of the candidate's current role, or of
// the most recent one when no role is marked current.
func PrimaryCompany(experiences []models.Experience) string {
	for _, exp := range experiences {
		if exp.IsCurrent && exp.Company != "" {
			return exp.Company
		}
	}
	for _, exp := range experiences {
		if exp.Company != "" {
			return exp.Company
		}
	}
	return ""
}

func profileTier(cand *models.Candidate) string {
	if cand == nil || cand.Profile == nil {
		return ""
	}
	if v, ok := cand.Profile[models.ProfileKeyCompanyTier].(string); ok {
		return v
	}
	return ""
}

func companyMatchScore(experiences []models.Experience, targets []string) float64 {
	wanted := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		wanted[normalizeCompany(t)] = struct{}{}
	}
	for _, exp := range experiences {
		if _, ok := wanted[normalizeCompany(exp.Company)]; ok {
			return 1.0
		}
	}
	return 0
}

// tierAffinityScore compares the candidate's tier with the tiers of
// the target companies: same tier 1.0, one rank apart 0.7, further
// 0.4. Unknown ranks alongside enterprise as neutral middle ground.
func tierAffinityScore(candidateTier CompanyTier, targets []string) float64 {
	bestDist := -1
	for _, t := range targets {
		targetTier := DetectCompanyTier("", t)
		dist := tierRank[candidateTier] - tierRank[targetTier]
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
		}
	}
	switch bestDist {
	case 0:
		return 1.0
	case 1:
		return 0.7
	default:
		return 0.4
	}
}

func industryMatchScore(candidateIndustries, targets []string) float64 {
	have := make(map[string]struct{}, len(candidateIndustries))
	for _, ind := range candidateIndustries {
		have[strings.ToLower(strings.TrimSpace(ind))] = struct{}{}
	}
	for _, t := range targets {
		if _, ok := have[strings.ToLower(strings.TrimSpace(t))]; ok {
			return 1.0
		}
	}
	return 0
}
