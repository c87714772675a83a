package nlp

import (
	"context"
	"time"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// DefaultParseConfidenceThreshold gates the NLP path: classifications
// below it run as keyword searches.
const DefaultParseConfidenceThreshold = 0.5

// fallbackConfidence caps the confidence reported when parsing degrades
// on an unexpected failure.
const fallbackConfidence = 0.3

// ParserConfig configures the query parser.
type ParserConfig struct {
	ConfidenceThreshold float64
}

// QueryParser runs the full query understanding pipeline: embed, route,
// extract, expand, and synonym-expand, with per-stage timings. Any
// failure degrades to a keyword fallback that preserves the original
// query; Parse never fails a request.
type QueryParser struct {
	embedder  Embedder
	router    *IntentRouter
	extractor *EntityExtractor
	expander  *QueryExpander
	config    ParserConfig
	logger    observability.Logger
	metrics   observability.MetricsClient
}

// NewQueryParser wires the pipeline components.
func NewQueryParser(embedder Embedder, router *IntentRouter, extractor *EntityExtractor, expander *QueryExpander, config ParserConfig, logger observability.Logger, metrics observability.MetricsClient) *QueryParser {
	if config.ConfidenceThreshold <= 0 || config.ConfidenceThreshold > 1 {
		config.ConfidenceThreshold = DefaultParseConfidenceThreshold
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	return &QueryParser{
		embedder:  embedder,
		router:    router,
		extractor: extractor,
		expander:  expander,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
}

// Initialize precomputes the intent route centroids. Idempotent;
// concurrent calls share one in-flight computation.
func (p *QueryParser) Initialize(ctx context.Context) error {
	return p.router.Initialize(ctx)
}

// IsInitialized reports whether the intent centroids are ready.
func (p *QueryParser) IsInitialized() bool {
	return p.router.IsInitialized()
}

// Parse runs the pipeline. The embedding may be supplied by the caller
// to reuse the one needed for retrieval; when nil it is generated here.
func (p *QueryParser) Parse(ctx context.Context, query string, embedding []float32) (result *models.ParsedQuery) {
	timings := make(map[string]float64)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Query parsing panicked, degrading to keyword fallback", map[string]interface{}{
				"panic": r,
			})
			result = fallbackResult(query, fallbackConfidence, timings)
			p.recordMethod(result.ParseMethod)
		}
	}()

	stage := time.Now()
	if len(embedding) == 0 {
		var err error
		embedding, err = p.embedder.GenerateEmbedding(ctx, query)
		if err != nil {
			p.logger.Warn("Query embedding failed, degrading to keyword fallback", map[string]interface{}{
				"error": err.Error(),
			})
			result = fallbackResult(query, 0, timings)
			p.recordMethod(result.ParseMethod)
			return result
		}
	}
	timings["embed"] = msSince(stage)

	stage = time.Now()
	intent, confidence := p.router.Classify(ctx, embedding)
	timings["intent"] = msSince(stage)

	if intent == models.IntentKeywordFallback || confidence < p.config.ConfidenceThreshold {
		result = fallbackResult(query, confidence, timings)
		p.recordMethod(result.ParseMethod)
		return result
	}

	stage = time.Now()
	entities := p.extractor.Extract(ctx, query)
	timings["extract"] = msSince(stage)

	stage = time.Now()
	entities.ExpandedSkills = p.expander.ExpandSkills(entities.Skills)
	timings["expand"] = msSince(stage)

	stage = time.Now()
	var expansion models.SemanticExpansion
	if entities.Seniority != "" {
		expansion.ExpandedSeniorities = ExpandSenioritySynonyms(entities.Seniority, true)
	}
	if entities.Role != "" {
		expansion.ExpandedRoles = ExpandRoleSynonyms(entities.Role)
	}
	timings["synonyms"] = msSince(stage)

	result = &models.ParsedQuery{
		OriginalQuery:     query,
		ParseMethod:       models.ParseMethodNLP,
		Confidence:        confidence,
		Intent:            intent,
		Entities:          entities,
		SemanticExpansion: expansion,
		Timings:           timings,
	}
	p.recordMethod(result.ParseMethod)
	return result
}

func (p *QueryParser) recordMethod(method models.ParseMethod) {
	p.metrics.RecordCounter("nlp_parse_total", 1, map[string]string{
		"method": string(method),
	})
}

func fallbackResult(query string, confidence float64, timings map[string]float64) *models.ParsedQuery {
	return &models.ParsedQuery{
		OriginalQuery: query,
		ParseMethod:   models.ParseMethodKeywordFallback,
		Intent:        models.IntentKeywordFallback,
		Confidence:    confidence,
		Timings:       timings,
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
