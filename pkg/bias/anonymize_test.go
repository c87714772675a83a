package bias

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/models"
)

func sampleResult() models.ResultItem {
	country := "Brazil"
	years := 12.0
	rrf := 0.031
	return models.ResultItem{
		CandidateID:     "cand-1",
		Score:           0.87,
		FullName:        "Ana Souza",
		Title:           "Staff Engineer",
		Headline:        "Platform lead at Nubank",
		Location:        "São Paulo",
		Country:         &country,
		VectorScore:     0.91,
		TextScore:       0.44,
		RRFScore:        &rrf,
		Confidence:      0.8,
		YearsExperience: &years,
		Skills:          []string{"go", "kubernetes"},
		Industries:      []string{"fintech"},
		MatchReasons: []string{
			"Led platform team at Nubank since 2019",
			"12 years of backend experience",
		},
		SignalScores: &models.SignalScores{
			VectorSimilarity: 0.91,
			CompanyPedigree:  0.9,
		},
		WeightsApplied: models.WeightConfig{"vectorSimilarity": 1},
		RoleType:       "ic",
		Compliance:     &models.Compliance{LegalBasis: "legitimate_interest"},
		Rationale:      "Ana has led the Nubank platform group since 2019.",
		Metadata: map[string]interface{}{
			"education":       "USP",
			"graduation_year": 2008,
		},
		MLTrajectory: &models.MLTrajectory{NextRole: "Principal Engineer"},
	}
}

func TestAnonymizeResponseStripsPII(t *testing.T) {
	a := NewAnonymizer(config.BiasConfig{StripProxies: true}, nil)
	resp := &models.SearchResponse{Results: []models.ResultItem{sampleResult()}}

	a.AnonymizeResponse(resp)

	require.Len(t, resp.Results, 1)
	item := resp.Results[0]
	assert.True(t, item.Anonymized)
	assert.Empty(t, item.FullName)
	assert.Empty(t, item.Title)
	assert.Empty(t, item.Headline)
	assert.Empty(t, item.Location)
	assert.Nil(t, item.Country)
	assert.Nil(t, item.Metadata)
	assert.Nil(t, item.Compliance)
	assert.Empty(t, item.Rationale)
	assert.Empty(t, item.RoleType)

	assert.Equal(t, "cand-1", item.CandidateID)
	assert.InDelta(t, 0.87, item.Score, 1e-9)
	assert.Equal(t, []string{"go", "kubernetes"}, item.Skills)
	assert.Equal(t, []string{"fintech"}, item.Industries)
	require.NotNil(t, item.YearsExperience)
	assert.InDelta(t, 12.0, *item.YearsExperience, 1e-9)
	require.NotNil(t, item.MLTrajectory)
	assert.Equal(t, "Principal Engineer", item.MLTrajectory.NextRole)

	require.NotNil(t, resp.Metadata)
	assert.True(t, resp.Metadata.Anonymized)
	require.NotNil(t, resp.Metadata.AnonymizedAt)
	assert.WithinDuration(t, time.Now().UTC(), *resp.Metadata.AnonymizedAt, time.Minute)
}

func TestAnonymizeSerializedFormHasNoPIIKeys(t *testing.T) {
	a := NewAnonymizer(config.BiasConfig{StripProxies: true}, nil)
	resp := &models.SearchResponse{Results: []models.ResultItem{sampleResult()}}
	a.AnonymizeResponse(resp)

	buf, err := json.Marshal(resp.Results[0])
	require.NoError(t, err)
	body := string(buf)
	for _, key := range []string{"fullName", "title", "headline", "location", "country", "metadata", "rationale", "compliance", "companyPedigree"} {
		assert.NotContains(t, body, `"`+key+`"`, "key %s must not survive anonymization", key)
	}
}

func TestAnonymizeKeepsPedigreeWithoutProxyStrip(t *testing.T) {
	a := NewAnonymizer(config.BiasConfig{StripProxies: false}, nil)
	resp := &models.SearchResponse{Results: []models.ResultItem{sampleResult()}}
	a.AnonymizeResponse(resp)

	require.NotNil(t, resp.Results[0].SignalScores)
	assert.InDelta(t, 0.9, resp.Results[0].SignalScores.CompanyPedigree, 1e-9)
}

func TestMaskReason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Led platform team at Nubank since 2019", "Led platform team at Nubank since [year]"},
		{"Worked at Banco Itaú from 2015 to 2020", "Worked at [redacted] from [year] to [year]"},
		{"Graduated from São Paulo University in 2008", "Graduated from [redacted] in [year]"},
		{"7 years with Python", "7 years with Python"},
		{"Strong match on React Native experience", "Strong match on [redacted] experience"},
	}
	for _, tt := range tests {
		got := maskReason(tt.in)
		assert.Equal(t, tt.want, got)
		assert.False(t, yearPattern.MatchString(got), "year slipped through: %q", got)
		assert.False(t, properNounPattern.MatchString(got), "proper-noun pair slipped through: %q", got)
	}
}

func TestAnonymizeEmptyResponse(t *testing.T) {
	a := NewAnonymizer(config.BiasConfig{StripProxies: true}, nil)

	a.AnonymizeResponse(nil)

	resp := &models.SearchResponse{}
	a.AnonymizeResponse(resp)
	require.NotNil(t, resp.Metadata)
	assert.True(t, resp.Metadata.Anonymized)
}
