package nlp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/ontology"
)

func newTestParser(t *testing.T, embedder Embedder, llmHandler http.HandlerFunc) (*QueryParser, *int64) {
	t.Helper()

	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		llmHandler(w, r)
	}))
	t.Cleanup(server.Close)

	extractor, err := NewEntityExtractor(ExtractorConfig{
		BaseURL: server.URL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, nil, nil)
	require.NoError(t, err)

	ont, err := ontology.New(nil)
	require.NoError(t, err)

	router := NewIntentRouter(embedder, 0.6, nil)
	expander := NewQueryExpander(ont, ExpanderConfig{})

	return NewQueryParser(embedder, router, extractor, expander, ParserConfig{}, nil, nil), &hits
}

func entityContent() string {
	return completionBody(`{"role":"developer","skills":["python"],"seniority":"senior","location":"","remote":null,"experienceYears":null}`)
}

func TestParseNLPHappyPath(t *testing.T) {
	embedder := &fakeEmbedder{}
	parser, _ := newTestParser(t, embedder, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, entityContent())
	})

	result := parser.Parse(context.Background(), "senior python developer", nil)
	require.NotNil(t, result)

	assert.Equal(t, models.ParseMethodNLP, result.ParseMethod)
	assert.Equal(t, models.IntentStructuredSearch, result.Intent)
	assert.Equal(t, "senior python developer", result.OriginalQuery)
	assert.GreaterOrEqual(t, result.Confidence, 0.6)

	assert.Equal(t, []string{"python"}, result.Entities.Skills)
	require.NotEmpty(t, result.Entities.ExpandedSkills)
	names := make(map[string]bool)
	for _, e := range result.Entities.ExpandedSkills {
		names[e.Name] = true
	}
	assert.True(t, names["django"])

	// Seniority expands upward so lead candidates match.
	assert.Contains(t, result.SemanticExpansion.ExpandedSeniorities, "staff")
	assert.Contains(t, result.SemanticExpansion.ExpandedSeniorities, "lead")
	assert.Contains(t, result.SemanticExpansion.ExpandedRoles, "engineer")

	for _, stage := range []string{"embed", "intent", "extract", "expand", "synonyms"} {
		assert.Contains(t, result.Timings, stage)
	}
}

func TestParseBelowThresholdSkipsLLM(t *testing.T) {
	embedder := &fakeEmbedder{}
	parser, hits := newTestParser(t, embedder, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, entityContent())
	})

	// Orthogonal embedding: similarity 0 against every centroid.
	result := parser.Parse(context.Background(), "anything", []float32{0, 0, 1})
	require.NotNil(t, result)

	assert.Equal(t, models.ParseMethodKeywordFallback, result.ParseMethod)
	assert.Equal(t, models.IntentKeywordFallback, result.Intent)
	assert.True(t, result.Entities.IsEmpty())
	assert.Equal(t, "anything", result.OriginalQuery)
	assert.Equal(t, int64(0), atomic.LoadInt64(hits), "fallback must not call the LLM")
}

func TestParseEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{fail: true}
	parser, hits := newTestParser(t, embedder, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, entityContent())
	})

	result := parser.Parse(context.Background(), "senior python developer", nil)
	require.NotNil(t, result)

	assert.Equal(t, models.ParseMethodKeywordFallback, result.ParseMethod)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, "senior python developer", result.OriginalQuery)
	assert.Equal(t, int64(0), atomic.LoadInt64(hits))
}

func TestParseReusesSuppliedEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{}
	parser, _ := newTestParser(t, embedder, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, entityContent())
	})

	// Warm the router so the only embedding work left is the query.
	require.NoError(t, parser.Initialize(context.Background()))
	before := embedder.callCount()

	result := parser.Parse(context.Background(), "senior python developer", []float32{1, 0, 0})
	assert.Equal(t, models.ParseMethodNLP, result.ParseMethod)
	assert.Equal(t, before, embedder.callCount(), "supplied embedding must be reused")
}

func TestParseLLMFailureKeepsNLPMethod(t *testing.T) {
	embedder := &fakeEmbedder{}
	parser, _ := newTestParser(t, embedder, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	result := parser.Parse(context.Background(), "senior python developer", nil)
	require.NotNil(t, result)

	// Intent routing succeeded; only extraction degraded.
	assert.Equal(t, models.ParseMethodNLP, result.ParseMethod)
	assert.True(t, result.Entities.IsEmpty())
	assert.Empty(t, result.Entities.ExpandedSkills)
}

func TestParserInitializeAndStatus(t *testing.T) {
	embedder := &fakeEmbedder{}
	parser, _ := newTestParser(t, embedder, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, entityContent())
	})

	assert.False(t, parser.IsInitialized())
	require.NoError(t, parser.Initialize(context.Background()))
	assert.True(t, parser.IsInitialized())
}
