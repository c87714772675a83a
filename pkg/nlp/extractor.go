package nlp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/resilience"
)

const (
	// DefaultExtractorTimeout keeps the LLM call off the latency path.
	// Slow responses lose to the keyword pipeline.
	DefaultExtractorTimeout = 100 * time.Millisecond

	defaultExtractorCacheSize = 1000
	defaultExtractorCacheTTL  = 5 * time.Minute
)

// entitySchema is the contract the LLM response must satisfy before any
// field is trusted.
const entitySchema = `{
	"type": "object",
	"properties": {
		"role": {"type": "string"},
		"skills": {"type": "array", "items": {"type": "string"}},
		"seniority": {"type": "string"},
		"location": {"type": "string"},
		"remote": {"type": ["boolean", "null"]},
		"experienceYears": {
			"type": ["object", "null"],
			"properties": {
				"min": {"type": ["integer", "null"]},
				"max": {"type": ["integer", "null"]}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}`

const extractorSystemPrompt = "You are a recruiter query analyzer. " +
	"Only extract entities explicitly present in the query. " +
	"Never infer or invent skills, locations, or seniority. " +
	"Return ONLY valid JSON with this structure: " +
	`{"role": "", "skills": [], "seniority": "", "location": "", "remote": null, "experienceYears": null}. ` +
	"Omit nothing; use empty strings, empty arrays, or null for absent fields. " +
	`For experience: "5+ years" means {"min": 5, "max": null}; "3-5 years" means {"min": 3, "max": 5}.`

// ExtractorConfig configures the LLM entity extractor.
type ExtractorConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type entityCacheEntry struct {
	entities models.ExtractedEntities
	cachedAt time.Time
}

// EntityExtractor extracts structured entities from free-text queries via
// an external LLM. Every failure path returns an empty record so the
// caller never blocks on LLM availability.
type EntityExtractor struct {
	config  ExtractorConfig
	client  *http.Client
	breaker resilience.CircuitBreaker
	cache   *lru.Cache[string, *entityCacheEntry]
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewEntityExtractor creates an extractor. A zero-value timeout gets the
// default hard timeout; cache size and TTL likewise.
func NewEntityExtractor(config ExtractorConfig, logger observability.Logger, metrics observability.MetricsClient) (*EntityExtractor, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultExtractorTimeout
	}
	if config.CacheSize <= 0 {
		config.CacheSize = defaultExtractorCacheSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultExtractorCacheTTL
	}

	cache, err := lru.New[string, *entityCacheEntry](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity cache: %w", err)
	}

	return &EntityExtractor{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		breaker: resilience.New(resilience.Config{
			Name: "llm-extractor",
		}, logger, metrics),
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Extract returns the entities present in the query. On timeout, breaker
// open, HTTP error, or schema-invalid response it returns an empty
// record; the pipeline continues without extraction.
func (e *EntityExtractor) Extract(ctx context.Context, query string) models.ExtractedEntities {
	key := cacheKey(query)
	if entry, ok := e.cache.Get(key); ok && time.Since(entry.cachedAt) < e.config.CacheTTL {
		e.metrics.RecordCacheOperation("entities", "get", "hit")
		return entry.entities
	}
	e.metrics.RecordCacheOperation("entities", "get", "miss")

	normalized := NormalizePortugueseTerms(query)

	start := time.Now()
	raw, err := e.callLLM(ctx, normalized)
	e.metrics.RecordClientCall("llm", "extract_entities", err == nil, time.Since(start))
	if err != nil {
		e.logger.Warn("Entity extraction degraded to empty record", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ExtractedEntities{}
	}

	entities, err := e.parseAndValidate(raw)
	if err != nil {
		e.logger.Warn("Entity extraction response rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ExtractedEntities{}
	}

	entities = filterHallucinations(entities, query, normalized)

	e.cache.Add(key, &entityCacheEntry{entities: entities, cachedAt: time.Now()})
	return entities
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:])
}

func (e *EntityExtractor) callLLM(ctx context.Context, query string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	result, err := e.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		reqBody := map[string]interface{}{
			"model": e.config.Model,
			"messages": []map[string]string{
				{"role": "system", "content": extractorSystemPrompt},
				{"role": "user", "content": query},
			},
			"temperature":     0.0,
			"response_format": map[string]string{"type": "json_object"},
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(e.config.BaseURL, "/")+"/chat/completions",
			bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("LLM API returned status %d", resp.StatusCode)
		}

		var completion struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
			return nil, fmt.Errorf("failed to decode LLM response: %w", err)
		}
		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("LLM response contained no choices")
		}
		return []byte(completion.Choices[0].Message.Content), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (e *EntityExtractor) parseAndValidate(raw []byte) (models.ExtractedEntities, error) {
	schemaLoader := gojsonschema.NewStringLoader(entitySchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return models.ExtractedEntities{}, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return models.ExtractedEntities{}, fmt.Errorf("LLM response failed schema validation: %s", strings.Join(msgs, "; "))
	}

	var entities models.ExtractedEntities
	if err := json.Unmarshal(raw, &entities); err != nil {
		return models.ExtractedEntities{}, fmt.Errorf("failed to parse entities: %w", err)
	}
	return entities, nil
}

// filterHallucinations drops skills and locations the LLM produced that
// do not occur in the query, either as a case-insensitive substring of
// the original or normalized text, or as a token subset of it.
func filterHallucinations(entities models.ExtractedEntities, original, normalized string) models.ExtractedEntities {
	lowerOriginal := strings.ToLower(original)
	queryTokens := tokenSet(lowerOriginal + " " + normalized)

	kept := make([]string, 0, len(entities.Skills))
	for _, skill := range entities.Skills {
		if appearsInQuery(skill, lowerOriginal, normalized, queryTokens) {
			kept = append(kept, skill)
		}
	}
	entities.Skills = kept

	if entities.Location != "" && !appearsInQuery(entities.Location, lowerOriginal, normalized, queryTokens) {
		entities.Location = ""
	}
	return entities
}

func appearsInQuery(candidate, lowerOriginal, normalized string, queryTokens map[string]bool) bool {
	lower := strings.ToLower(candidate)
	if strings.Contains(lowerOriginal, lower) || strings.Contains(normalized, lower) {
		return true
	}
	parts := tokens(lower)
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !queryTokens[p] {
			return false
		}
	}
	return true
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 0x80)
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokens(s) {
		set[t] = true
	}
	return set
}
