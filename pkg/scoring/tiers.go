package scoring

import "strings"

// CompanyTier is the pedigree bucket of a candidate's primary company.
type CompanyTier string

const (
	TierFAANG      CompanyTier = "faang"
	TierUnicorn    CompanyTier = "unicorn"
	TierEnterprise CompanyTier = "enterprise"
	TierStartup    CompanyTier = "startup"
	TierUnknown    CompanyTier = ""
)

var faangCompanies = map[string]struct{}{
	"google":    {},
	"alphabet":  {},
	"meta":      {},
	"facebook":  {},
	"apple":     {},
	"amazon":    {},
	"netflix":   {},
	"microsoft": {},
}

var unicornCompanies = map[string]struct{}{
	"stripe":           {},
	"airbnb":           {},
	"uber":             {},
	"databricks":       {},
	"nubank":           {},
	"ifood":            {},
	"mercado livre":    {},
	"mercadolibre":     {},
	"rappi":            {},
	"quintoandar":      {},
	"creditas":         {},
	"loft":             {},
	"wildlife studios": {},
	"stone":            {},
	"pagseguro":        {},
}

// tierRank orders tiers for affinity comparisons. Unknown sits with
// enterprise so that missing data stays neutral.
var tierRank = map[CompanyTier]int{
	TierStartup:    0,
	TierEnterprise: 1,
	TierUnknown:    1,
	TierUnicorn:    2,
	TierFAANG:      3,
}

// DetectCompanyTier resolves the pedigree tier of a company. An
// explicit profile value wins; otherwise the name is looked up in the
// built-in lists. Companies not in any list are TierUnknown, which is
// treated as neutral everywhere.
func DetectCompanyTier(profileTier, company string) CompanyTier {
	switch strings.ToLower(strings.TrimSpace(profileTier)) {
	case "faang":
		return TierFAANG
	case "unicorn":
		return TierUnicorn
	case "enterprise":
		return TierEnterprise
	case "startup":
		return TierStartup
	}
	name := normalizeCompany(company)
	if name == "" {
		return TierUnknown
	}
	if _, ok := faangCompanies[name]; ok {
		return TierFAANG
	}
	if _, ok := unicornCompanies[name]; ok {
		return TierUnicorn
	}
	return TierUnknown
}

// levelAdjustment is the effective-level shift applied before
// seniority distance: a senior at a FAANG-tier company counts one
// level up, at a startup one level down.
func levelAdjustment(tier CompanyTier) int {
	switch tier {
	case TierFAANG:
		return 1
	case TierStartup:
		return -1
	default:
		return 0
	}
}

func normalizeCompany(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{" inc.", " inc", " ltda.", " ltda", " s.a.", " sa", " llc", " ltd"} {
		n = strings.TrimSuffix(n, suffix)
	}
	return strings.TrimSpace(n)
}
