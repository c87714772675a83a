package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/ontology"
)

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	ont, err := ontology.New(nil)
	require.NoError(t, err)
	return NewCalculator(ont)
}

func TestExactSkillMatch(t *testing.T) {
	calc := testCalculator(t)

	t.Run("full match with aliases", func(t *testing.T) {
		got := calc.ExactSkillMatch([]string{"ReactJS", "ts"}, []string{"react", "typescript"})
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("partial match", func(t *testing.T) {
		got := calc.ExactSkillMatch([]string{"react"}, []string{"react", "kubernetes"})
		assert.InDelta(t, 0.5, got, 1e-9)
	})

	t.Run("no candidate skills", func(t *testing.T) {
		assert.Zero(t, calc.ExactSkillMatch(nil, []string{"react"}))
	})

	t.Run("no required skills is neutral", func(t *testing.T) {
		assert.InDelta(t, neutralScore, calc.ExactSkillMatch([]string{"react"}, nil), 1e-9)
	})
}

func TestInferredSkillMatch(t *testing.T) {
	calc := testCalculator(t)

	t.Run("single transfer rule", func(t *testing.T) {
		// Vue transfers to React at 0.75, covering 1 of 1 required.
		got := calc.InferredSkillMatch([]string{"vue"}, []string{"react"})
		assert.InDelta(t, 0.75, got, 1e-9)
	})

	t.Run("rule table is literal, not symmetric", func(t *testing.T) {
		// React and Vue both carry 0.75 because the table says so, while
		// Java/Kotlin differ per direction.
		assert.InDelta(t, 0.75, calc.InferredSkillMatch([]string{"react"}, []string{"vue"}), 1e-9)
		assert.InDelta(t, 0.90, calc.InferredSkillMatch([]string{"java"}, []string{"kotlin"}), 1e-9)
		assert.InDelta(t, 0.85, calc.InferredSkillMatch([]string{"kotlin"}, []string{"java"}), 1e-9)
	})

	t.Run("transfer scaled by required coverage", func(t *testing.T) {
		// Java covers Kotlin at 0.90; React has no rule from Java.
		got := calc.InferredSkillMatch([]string{"java"}, []string{"kotlin", "react"})
		assert.InDelta(t, 0.45, got, 1e-9)
	})

	t.Run("exact matches are not inferred", func(t *testing.T) {
		got := calc.InferredSkillMatch([]string{"react", "vue"}, []string{"react"})
		assert.Zero(t, got)
	})

	t.Run("directional rules only", func(t *testing.T) {
		// Python transfers to Go, not the other way around.
		assert.InDelta(t, 0.60, calc.InferredSkillMatch([]string{"python"}, []string{"go"}), 1e-9)
		assert.Zero(t, calc.InferredSkillMatch([]string{"go"}, []string{"python"}))
	})

	t.Run("no required skills is neutral", func(t *testing.T) {
		assert.InDelta(t, neutralScore, calc.InferredSkillMatch([]string{"vue"}, nil), 1e-9)
	})
}

func TestSkillCoverage(t *testing.T) {
	calc := testCalculator(t)

	// One exact (react) and one inferred (kotlin via java) out of three.
	got := calc.SkillCoverage([]string{"react", "java"}, []string{"react", "kotlin", "rust"})
	assert.InDelta(t, 2.0/3.0, got, 1e-9)

	assert.Zero(t, calc.SkillCoverage([]string{"react"}, nil))
}

func TestSeniorityAlignment(t *testing.T) {
	calc := testCalculator(t)

	tests := []struct {
		name   string
		title  string
		tier   CompanyTier
		target string
		want   float64
	}{
		{"exact level", "Senior Software Engineer", TierUnknown, "senior", 1.0},
		{"one level off", "Software Engineer", TierUnknown, "senior", 0.8},
		{"two levels off", "Junior Developer", TierUnknown, "senior", 0.6},
		{"three levels off", "Senior Engineer", TierUnknown, "intern", 0.4},
		{"far off", "Intern", TierUnknown, "vp", 0.2},
		{"faang shifts up one level", "Senior Software Engineer", TierFAANG, "staff", 1.0},
		{"startup shifts down one level", "Senior Software Engineer", TierStartup, "senior", 0.8},
		{"lead matches senior across tracks", "Tech Lead", TierUnknown, "senior", 1.0},
		{"unknown title is neutral", "Growth Hacker", TierUnknown, "senior", neutralScore},
		{"no target is neutral", "Senior Software Engineer", TierUnknown, "", neutralScore},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.SeniorityAlignment(tc.title, tc.tier, tc.target)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestRecencyBoost(t *testing.T) {
	calc := testCalculator(t)

	current := models.Experience{Title: "Engineer", Company: "Acme", Skills: []string{"react"}, IsCurrent: true}
	twoYears := models.Experience{Title: "Engineer", Company: "Beta", Skills: []string{"python"}, YearsSinceEnd: 2.5}
	ancient := models.Experience{Title: "Engineer", Company: "Gamma", Skills: []string{"java"}, YearsSinceEnd: 10}

	t.Run("current skill scores full", func(t *testing.T) {
		got := calc.RecencyBoost([]models.Experience{current}, []string{"react"})
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("decay by years since end", func(t *testing.T) {
		got := calc.RecencyBoost([]models.Experience{twoYears}, []string{"python"})
		assert.InDelta(t, 1.0-0.16*2.5, got, 1e-9)
	})

	t.Run("decay floors at 0.1", func(t *testing.T) {
		got := calc.RecencyBoost([]models.Experience{ancient}, []string{"java"})
		assert.InDelta(t, 0.1, got, 1e-9)
	})

	t.Run("averages across required skills", func(t *testing.T) {
		got := calc.RecencyBoost([]models.Experience{current, twoYears}, []string{"react", "python"})
		assert.InDelta(t, (1.0+0.6)/2, got, 1e-9)
	})

	t.Run("skills never used are ignored", func(t *testing.T) {
		got := calc.RecencyBoost([]models.Experience{current}, []string{"react", "rust"})
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("no experience data reports missing", func(t *testing.T) {
		assert.InDelta(t, missingDataScore, calc.RecencyBoost(nil, []string{"react"}), 1e-9)
	})

	t.Run("no required skills is neutral", func(t *testing.T) {
		assert.InDelta(t, neutralScore, calc.RecencyBoost([]models.Experience{current}, nil), 1e-9)
	})
}

func TestCompanyRelevance(t *testing.T) {
	calc := testCalculator(t)

	cand := &models.Candidate{Industries: []string{"Fintech", "Banking"}}
	exps := []models.Experience{
		{Title: "Engineer", Company: "Nubank", IsCurrent: true},
		{Title: "Engineer", Company: "Acme Ltda"},
	}

	t.Run("nil context is neutral", func(t *testing.T) {
		assert.InDelta(t, neutralScore, calc.CompanyRelevance(cand, exps, nil), 1e-9)
	})

	t.Run("no targets is neutral", func(t *testing.T) {
		got := calc.CompanyRelevance(cand, exps, &models.SearchContext{})
		assert.InDelta(t, neutralScore, got, 1e-9)
	})

	t.Run("direct company match with tier affinity", func(t *testing.T) {
		ctx := &models.SearchContext{TargetCompanies: []string{"nubank"}}
		// Match 1.0 and same-tier affinity 1.0.
		got := calc.CompanyRelevance(cand, exps, ctx)
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("industry overlap only", func(t *testing.T) {
		ctx := &models.SearchContext{TargetIndustries: []string{"fintech"}}
		got := calc.CompanyRelevance(cand, exps, ctx)
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("averages enabled sub-signals", func(t *testing.T) {
		ctx := &models.SearchContext{
			TargetCompanies:  []string{"Google"},
			TargetIndustries: []string{"healthcare"},
		}
		// No company match (0), unicorn vs faang tier one rank apart
		// (0.7), no industry overlap (0).
		got := calc.CompanyRelevance(cand, exps, ctx)
		assert.InDelta(t, 0.7/3, got, 1e-9)
	})
}

func TestPrimaryCompany(t *testing.T) {
	exps := []models.Experience{
		{Company: "Recent"},
		{Company: "Current", IsCurrent: true},
		{Company: "Old"},
	}
	assert.Equal(t, "Current", PrimaryCompany(exps))
	assert.Equal(t, "Recent", PrimaryCompany([]models.Experience{{Company: "Recent"}, {Company: "Old"}}))
	assert.Empty(t, PrimaryCompany(nil))
}

func TestDetectCompanyTier(t *testing.T) {
	assert.Equal(t, TierFAANG, DetectCompanyTier("", "Google"))
	assert.Equal(t, TierUnicorn, DetectCompanyTier("", "Nubank"))
	assert.Equal(t, TierUnicorn, DetectCompanyTier("", "nubank ltda"))
	assert.Equal(t, TierUnknown, DetectCompanyTier("", "Tiny Consultancy"))
	assert.Equal(t, TierStartup, DetectCompanyTier("startup", "Google"))
	assert.Equal(t, TierEnterprise, DetectCompanyTier("enterprise", ""))
}
