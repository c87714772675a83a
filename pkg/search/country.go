package search

import "strings"

// Country names added to the filter when a job description localizes
// itself without naming a country.
const (
	CountryBrazil = "Brazil"
	CountryUS     = "United States"
)

// brazilIndicators are lowercase markers of a Brazilian job description:
// major cities, state names, and local employment vocabulary.
var brazilIndicators = []string{
	"brasil", "brazil",
	"são paulo", "sao paulo", "rio de janeiro", "belo horizonte",
	"porto alegre", "curitiba", "recife", "florianópolis", "florianopolis",
	"campinas", "brasília", "brasilia", "salvador", "fortaleza",
	"paulista", "carioca",
	"clt", "pessoa jurídica", "pessoa juridica", "vale refeição", "vale refeicao",
}

// usIndicators are lowercase markers of a US job description.
var usIndicators = []string{
	"united states", "usa", "u.s.", "us-based",
	"new york", "nyc", "san francisco", "bay area", "silicon valley",
	"seattle", "austin", "boston", "chicago", "los angeles", "denver",
	"atlanta", "miami", "washington dc",
	"401k", "401(k)", "h1b", "h-1b", "green card",
}

// DetectCountry scans free text for localized indicators and returns
// the inferred country name, or "" when neither lexicon matches.
// Brazilian markers win ties: the corpus skews Brazilian and the
// Portuguese FTS dictionary already assumes it.
func DetectCountry(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, marker := range brazilIndicators {
		if strings.Contains(lower, marker) {
			return CountryBrazil
		}
	}
	for _, marker := range usIndicators {
		if strings.Contains(lower, marker) {
			return CountryUS
		}
	}
	return ""
}
