// Package search orchestrates the query-processing pipeline: cache
// probe, embedding, NLP parsing, hybrid retrieval, scoring, local
// ranking, optional external rerank, bias transforms, and response
// caching.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/bias"
	"github.com/hirehound/search/pkg/cache"
	"github.com/hirehound/search/pkg/clients"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/nlp"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/ontology"
	"github.com/hirehound/search/pkg/perf"
	"github.com/hirehound/search/pkg/scoring"
	"github.com/hirehound/search/pkg/store"
)

// ErrEmbeddingUnavailable is returned when no query embedding could be
// obtained from the cache or the embedding client.
var ErrEmbeddingUnavailable = errors.New("search: embedding generation failed")

// Orchestration defaults.
const (
	defaultResultLimit      = 20
	defaultOverFetchFactor  = 3
	defaultRerankTopN       = 20
	defaultRationaleLimit   = 3
	maxRationaleLimit       = 10
	fallbackRationale       = "Strong overall match across skills and experience."
	defaultNLPConfThreshold = nlp.DefaultParseConfidenceThreshold
)

// Retriever is the store adapter surface the orchestrator needs.
type Retriever interface {
	HybridSearch(ctx context.Context, q store.Query) (*store.Result, error)
}

// Embedder produces query embeddings.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Parser runs NLP query understanding.
type Parser interface {
	Parse(ctx context.Context, query string, embedding []float32) *models.ParsedQuery
	IsInitialized() bool
}

// Reranker reorders the local top-K through an external cross-encoder.
type Reranker interface {
	Available() bool
	TopN() int
	Rerank(ctx context.Context, query string, docs []clients.RerankDocument) ([]clients.RerankResult, error)
}

// TrajectoryProvider fetches ML trajectory predictions per candidate.
type TrajectoryProvider interface {
	Available() bool
	GetTrajectories(ctx context.Context, candidateIDs []string) (map[string]*models.MLTrajectory, error)
}

// RationaleGenerator writes per-candidate match rationales.
type RationaleGenerator interface {
	GenerateRationale(ctx context.Context, jobDescription, candidateSummary string) (string, error)
}

// Config wires the orchestrator's collaborators. Store, Cache, and
// Embedder are required; the rest are optional capabilities the
// pipeline skips when absent.
type Config struct {
	Store    Retriever
	Cache    cache.Cache
	Embedder Embedder
	Engine   *scoring.Engine

	Parser     Parser
	Ontology   *ontology.Ontology
	Rerank     Reranker
	Trajectory TrajectoryProvider
	Rationale  RationaleGenerator
	Anonymizer *bias.Anonymizer
	Diversity  *bias.DiversityAnalyzer
	Events     *bias.Recorder
	Tracker    *perf.Tracker

	Search config.SearchConfig
	Boosts BoostConfig
	// NLPConfidenceThreshold is the default minimum parse confidence
	// for applying NLP-derived filters; requests may override it.
	NLPConfidenceThreshold float64

	Logger  observability.Logger
	Metrics observability.MetricsClient
}

// Service is the search pipeline orchestrator.
type Service struct {
	cfg Config

	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewService validates the wiring and returns the orchestrator.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("search: store is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("search: embedder is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoopCache()
	}
	if cfg.Engine == nil {
		cfg.Engine = scoring.NewEngine(scoring.NewCalculator(cfg.Ontology), cfg.Search.CoverageBonusCap)
	}
	if cfg.NLPConfidenceThreshold <= 0 {
		cfg.NLPConfidenceThreshold = defaultNLPConfThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewNoOpMetricsClient()
	}
	return &Service{
		cfg:     cfg,
		logger:  cfg.Logger.WithPrefix("search"),
		metrics: cfg.Metrics,
	}, nil
}

// Search runs the full pipeline for one request. Only validation
// failures and hard retrieval/embedding failures return errors; every
// optional stage degrades with a logged fallback.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	if limit <= 0 {
		limit = defaultResultLimit
	}
	roleType := req.RoleType
	if roleType == "" {
		roleType = models.RoleTypeDefault
	}
	weights := scoring.ResolveWeights(req.RoleType, models.WeightConfig(req.SignalWeights), s.logger)
	requestID := auth.GetRequestID(ctx)
	timings := make(map[string]float64)

	// Response cache probe. Consulted exactly once, before any
	// pipeline work.
	token := CacheToken(req)
	var cached models.SearchResponse
	if s.cfg.Cache.Get(ctx, cache.LayerSearch, token, &cached) {
		cached.CacheHit = true
		cached.RequestID = requestID
		cached.Timings = map[string]float64{
			"cache": msSince(start),
			"total": msSince(start),
		}
		s.recordSample(perf.Sample{Total: time.Since(start), CacheHit: true})
		return &cached, nil
	}

	// Country auto-detection from the job description. Explicit
	// filters always win.
	filters := req.Filters
	if req.JobDescription != "" && len(filters.Countries) == 0 {
		if country := DetectCountry(req.JobDescription); country != "" {
			filters.Countries = []string{country}
			s.logger.Debug("Auto-detected country filter", map[string]interface{}{
				"country":    country,
				"request_id": requestID,
			})
		}
	}

	// Query embedding: request-supplied, cached, or generated. Runs at
	// most once per request; the parser reuses this vector.
	embedStart := time.Now()
	embedding, embedErr := s.resolveEmbedding(ctx, req)
	embedDuration := time.Since(embedStart)
	timings["embedding"] = ms(embedDuration)
	if embedErr != nil && strings.TrimSpace(req.Query) == "" {
		// No text to fall back to; retrieval has nothing to run on.
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, embedErr)
	}

	// NLP parsing and entity-derived filters. NLP fills gaps only;
	// explicit request filters are never overridden.
	var parsed *models.ParsedQuery
	if req.NLPEnabled() && s.cfg.Parser != nil && strings.TrimSpace(req.Query) != "" {
		parsed = s.cfg.Parser.Parse(ctx, req.Query, embedding)
		for stage, v := range parsed.Timings {
			timings["nlp_"+stage] = v
		}
		if s.parseUsable(parsed, req) {
			filters = applyParsedFilters(filters, parsed)
		}
	}

	// Hybrid retrieval. Over-fetch to give the boosts and the external
	// rerank enough headroom to reorder.
	result, err := s.retrieve(ctx, req, filters, embedding, limit)
	if err != nil {
		return nil, err
	}
	timings["retrieval"] = result.SearchTime

	// Hydrate, score, boost, and rank locally.
	scoreStart := time.Now()
	sctx := buildSearchContext(parsed, filters, roleType)
	items, byID := s.scoreCandidates(result.Candidates, weights, sctx, filters, roleType, req)
	sortResults(items)
	if len(items) > limit {
		items = items[:limit]
	}
	timings["scoring"] = msSince(scoreStart)

	metadata := &models.ResponseMetadata{SearchMode: result.Method}

	// External rerank of the bounded local top-K.
	rerankStart := time.Now()
	reranked := s.applyRerank(ctx, req, items, byID, metadata)
	rerankDuration := time.Since(rerankStart)
	if metadata.RerankUsed {
		timings["rerank"] = ms(rerankDuration)
	}
	items = reranked

	s.attachTrajectories(ctx, items)
	s.attachRationales(ctx, req, items)

	resp := &models.SearchResponse{
		Results:   items,
		Total:     len(items),
		CacheHit:  false,
		RequestID: requestID,
		Metadata:  metadata,
	}
	if req.IncludeDebug {
		resp.Debug = map[string]interface{}{
			"parsedQuery":    parsed,
			"weightsApplied": weights,
			"fusion": map[string]interface{}{
				"method":     result.Method,
				"vectorHits": result.VectorHits,
				"textHits":   result.TextHits,
				"vectorOnly": result.VectorOnly,
				"textOnly":   result.TextOnly,
				"both":       result.Both,
			},
		}
	}

	// Slate diversity runs on the raw candidates, before anonymization
	// strips the fields it infers from.
	if s.cfg.Diversity != nil {
		resp.Metadata.Diversity = s.cfg.Diversity.Analyze(ctx, slateCandidates(items, byID))
	}

	// Anonymization runs after all scoring and before the cache write,
	// so cached entries are in the same form as returned.
	if req.Anonymize && s.cfg.Anonymizer != nil {
		s.cfg.Anonymizer.AnonymizeResponse(resp)
	}

	// Selection events are best effort and never fail the request.
	if s.cfg.Events != nil {
		s.cfg.Events.RecordShown(ctx, requestID, shownSlate(items, byID))
	}

	if len(resp.Results) > 0 {
		if err := s.cfg.Cache.SetWithJitter(ctx, cache.LayerSearch, token, resp); err != nil {
			s.logger.Warn("Failed to cache search response", map[string]interface{}{
				"error":      err.Error(),
				"request_id": requestID,
			})
		}
	}

	total := time.Since(start)
	timings["total"] = ms(total)
	resp.Timings = timings

	s.recordSample(perf.Sample{
		Total:     total,
		Embedding: embedDuration,
		Retrieval: time.Duration(result.SearchTime * float64(time.Millisecond)),
		Rerank:    rerankDuration,
		Reranked:  metadata.RerankUsed,
	})
	return resp, nil
}

// resolveEmbedding returns the query vector: request-supplied, cached,
// or freshly generated (and then cached).
func (s *Service) resolveEmbedding(ctx context.Context, req *models.SearchRequest) ([]float32, error) {
	if len(req.Embedding) > 0 {
		return req.Embedding, nil
	}
	text := strings.TrimSpace(req.Query)
	if text == "" {
		text = strings.TrimSpace(req.JobDescription)
	}
	if text == "" {
		return nil, nil
	}

	id := EmbeddingCacheID(text)
	var vector []float32
	if s.cfg.Cache.Get(ctx, cache.LayerEmbedding, id, &vector) && len(vector) > 0 {
		return vector, nil
	}

	vector, err := s.cfg.Embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		s.logger.Warn("Embedding generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	if err := s.cfg.Cache.SetWithJitter(ctx, cache.LayerEmbedding, id, vector); err != nil {
		s.logger.Debug("Failed to cache embedding", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return vector, nil
}

func (s *Service) parseUsable(parsed *models.ParsedQuery, req *models.SearchRequest) bool {
	if parsed == nil || parsed.ParseMethod != models.ParseMethodNLP {
		return false
	}
	threshold := req.NLPConfidenceThreshold
	if threshold <= 0 {
		threshold = s.cfg.NLPConfidenceThreshold
	}
	return parsed.Confidence >= threshold
}

// applyParsedFilters fills filter gaps from extracted entities. A
// request that set a filter explicitly keeps it untouched.
func applyParsedFilters(filters models.SearchFilters, parsed *models.ParsedQuery) models.SearchFilters {
	entities := parsed.Entities
	if len(filters.Skills) == 0 && len(entities.Skills) > 0 {
		skills := append([]string{}, entities.Skills...)
		for _, exp := range entities.ExpandedSkills {
			skills = append(skills, exp.Name)
		}
		filters.Skills = dedupeStrings(skills)
	}
	if len(filters.SeniorityLevels) == 0 && len(parsed.SemanticExpansion.ExpandedSeniorities) > 0 {
		filters.SeniorityLevels = parsed.SemanticExpansion.ExpandedSeniorities
	}
	if len(filters.Locations) == 0 && entities.Location != "" {
		filters.Locations = []string{entities.Location}
	}
	if exp := entities.ExperienceYears; exp != nil {
		if filters.MinExperienceYears == nil && exp.Min != nil {
			filters.MinExperienceYears = exp.Min
		}
		if filters.MaxExperienceYears == nil && exp.Max != nil {
			filters.MaxExperienceYears = exp.Max
		}
	}
	return filters
}

func (s *Service) retrieve(ctx context.Context, req *models.SearchRequest, filters models.SearchFilters, embedding []float32, limit int) (*store.Result, error) {
	factor := s.cfg.Search.OverFetchFactor
	if factor <= 0 {
		factor = defaultOverFetchFactor
	}
	fetchLimit := limit * factor
	if s.cfg.Search.PerMethodLimit > 0 && fetchLimit > s.cfg.Search.PerMethodLimit {
		fetchLimit = s.cfg.Search.PerMethodLimit
	}

	return s.cfg.Store.HybridSearch(ctx, store.Query{
		Embedding:      embedding,
		QueryText:      req.Query,
		Filters:        filters,
		Limit:          fetchLimit,
		Offset:         req.Offset,
		FusionMethod:   s.cfg.Search.FusionMethod,
		RRFK:           s.cfg.Search.RRFK,
		PerMethodLimit: s.cfg.Search.PerMethodLimit,
		VectorWeight:   s.cfg.Search.VectorWeight,
		TextWeight:     s.cfg.Search.TextWeight,
		MinSimilarity:  s.cfg.Search.MinSimilarity,
	})
}

func (s *Service) scoreCandidates(cands []*models.Candidate, weights models.WeightConfig, sctx *models.SearchContext, filters models.SearchFilters, roleType string, req *models.SearchRequest) ([]models.ResultItem, map[string]*models.Candidate) {
	canon := s.canonFunc()
	items := make([]models.ResultItem, 0, len(cands))
	byID := make(map[string]*models.Candidate, len(cands))

	for _, cand := range cands {
		score, signals := s.cfg.Engine.Score(cand, weights, sctx)
		score = ApplyLocalBoosts(score, cand, filters, canon, s.cfg.Boosts)

		var years *float64
		if cand.YearsExperience > 0 {
			y := cand.YearsExperience
			years = &y
		}
		item := models.ResultItem{
			CandidateID:     cand.CandidateID,
			Score:           score,
			FullName:        cand.FullName,
			Title:           cand.Title,
			Headline:        cand.Headline,
			Location:        cand.Location,
			Country:         cand.Country,
			VectorScore:     cand.VectorScore,
			TextScore:       cand.TextScore,
			Confidence:      cand.AnalysisConfidence,
			YearsExperience: years,
			Skills:          cand.Skills,
			Industries:      cand.Industries,
			MatchReasons:    BuildMatchReasons(cand, filters, canon),
			SignalScores:    signals,
			WeightsApplied:  weights,
			RoleType:        roleType,
			Compliance:      &cand.Compliance,
		}
		if cand.RRFScore > 0 {
			rrf := cand.RRFScore
			item.RRFScore = &rrf
		}
		items = append(items, item)
		byID[cand.CandidateID] = cand
	}
	return items, byID
}

func (s *Service) canonFunc() func(string) string {
	if s.cfg.Ontology == nil {
		return nil
	}
	return func(skill string) string {
		return strings.ToLower(s.cfg.Ontology.CanonicalName(skill))
	}
}

// sortResults orders by final score descending with candidate ID as the
// deterministic tiebreak.
func sortResults(items []models.ResultItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].CandidateID < items[j].CandidateID
	})
}

// applyRerank sends the local top-K to the external reranker and
// reorders: reranked candidates first in service order, unlisted
// prefix candidates next in prior order, then the untouched tail. Any
// failure keeps the local order.
func (s *Service) applyRerank(ctx context.Context, req *models.SearchRequest, items []models.ResultItem, byID map[string]*models.Candidate, metadata *models.ResponseMetadata) []models.ResultItem {
	if s.cfg.Rerank == nil || !s.cfg.Rerank.Available() || len(items) == 0 {
		return items
	}
	query := req.JobDescription
	if query == "" {
		query = req.Query
	}
	if query == "" {
		return items
	}

	k := s.cfg.Rerank.TopN()
	if k <= 0 {
		k = defaultRerankTopN
	}
	if k > len(items) {
		k = len(items)
	}

	docs := make([]clients.RerankDocument, 0, k)
	for _, item := range items[:k] {
		docs = append(docs, clients.RerankDocument{
			ID:   item.CandidateID,
			Text: candidateSummary(byID[item.CandidateID]),
		})
	}

	// Rerank scores are stable for a given query and document set, so
	// they live in the long-TTL rerank layer.
	rerankID := rerankCacheID(query, docs)
	var results []clients.RerankResult
	if s.cfg.Cache.Get(ctx, cache.LayerRerank, rerankID, &results) && len(results) > 0 {
		metadata.RerankCached = true
	} else {
		var err error
		results, err = s.cfg.Rerank.Rerank(ctx, query, docs)
		if err != nil {
			if !errors.Is(err, clients.ErrRerankDisabled) {
				s.logger.Warn("External rerank failed, keeping local order", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return items
		}
		if len(results) > 0 {
			if err := s.cfg.Cache.Set(ctx, cache.LayerRerank, rerankID, results); err != nil {
				s.logger.Debug("Failed to cache rerank scores", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
	if len(results) == 0 {
		return items
	}

	prefix := make(map[string]models.ResultItem, k)
	for _, item := range items[:k] {
		prefix[item.CandidateID] = item
	}

	reordered := make([]models.ResultItem, 0, len(items))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		item, ok := prefix[r.ID]
		if !ok {
			continue
		}
		if r.Reason != "" {
			item.MatchReasons = append(item.MatchReasons, r.Reason)
		}
		reordered = append(reordered, item)
		seen[r.ID] = true
	}
	for _, item := range items[:k] {
		if !seen[item.CandidateID] {
			reordered = append(reordered, item)
		}
	}
	reordered = append(reordered, items[k:]...)

	metadata.RerankUsed = true
	s.metrics.RecordCounter("search_rerank_applied_total", 1, nil)
	return reordered
}

func (s *Service) attachTrajectories(ctx context.Context, items []models.ResultItem) {
	if s.cfg.Trajectory == nil || !s.cfg.Trajectory.Available() || len(items) == 0 {
		return
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.CandidateID
	}
	trajectories, err := s.cfg.Trajectory.GetTrajectories(ctx, ids)
	if err != nil || len(trajectories) == 0 {
		return
	}
	for i := range items {
		if t, ok := trajectories[items[i].CandidateID]; ok {
			items[i].MLTrajectory = t
		}
	}
}

// attachRationales asks the LLM for a short fit explanation for the
// top-N results. Failures get a generic fallback; anonymized responses
// skip rationale entirely since the anonymizer would drop it.
func (s *Service) attachRationales(ctx context.Context, req *models.SearchRequest, items []models.ResultItem) {
	if !req.IncludeMatchRationale || req.Anonymize || s.cfg.Rationale == nil || req.JobDescription == "" {
		return
	}
	n := req.RationaleLimit
	if n <= 0 {
		n = defaultRationaleLimit
	}
	if n > maxRationaleLimit {
		n = maxRationaleLimit
	}
	if n > len(items) {
		n = len(items)
	}
	for i := 0; i < n; i++ {
		summary := resultSummary(&items[i])
		rationale, err := s.cfg.Rationale.GenerateRationale(ctx, req.JobDescription, summary)
		if err != nil {
			s.logger.Debug("Rationale generation failed, using fallback", map[string]interface{}{
				"candidate_id": items[i].CandidateID,
				"error":        err.Error(),
			})
			rationale = fallbackRationale
		}
		items[i].Rationale = rationale
	}
}

func (s *Service) recordSample(sample perf.Sample) {
	if s.cfg.Tracker != nil {
		s.cfg.Tracker.Record(sample)
	}
	s.metrics.RecordStageLatency("total", sample.Total)
}

// buildSearchContext derives the scoring context. Returns nil when
// there is nothing to score against, which keeps the calculators on
// neutral values.
func buildSearchContext(parsed *models.ParsedQuery, filters models.SearchFilters, roleType string) *models.SearchContext {
	sctx := &models.SearchContext{
		RequiredSkills:   filters.Skills,
		TargetIndustries: filters.Industries,
	}
	if len(filters.Locations) > 0 {
		sctx.TargetLocation = filters.Locations[0]
	}
	if parsed != nil && parsed.Entities.Seniority != "" {
		sctx.TargetSeniority = parsed.Entities.Seniority
	} else if len(filters.SeniorityLevels) > 0 {
		sctx.TargetSeniority = filters.SeniorityLevels[0]
	}
	switch roleType {
	case models.RoleTypeManager, models.RoleTypeExecutive:
		sctx.TargetTrack = "management"
	case models.RoleTypeIC:
		sctx.TargetTrack = "technical"
	default:
		sctx.AllowPivots = true
	}
	if len(sctx.RequiredSkills) == 0 && sctx.TargetSeniority == "" && len(sctx.TargetIndustries) == 0 {
		return nil
	}
	return sctx
}

// rerankCacheID keys cached rerank scores on the query and the exact
// document set sent.
func rerankCacheID(query string, docs []clients.RerankDocument) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(query)))
	for _, doc := range docs {
		b.WriteByte('|')
		b.WriteString(doc.ID)
	}
	return EmbeddingCacheID(b.String())
}

// candidateSummary renders the text sent to the cross-encoder.
func candidateSummary(cand *models.Candidate) string {
	if cand == nil {
		return ""
	}
	var parts []string
	if cand.Title != "" {
		parts = append(parts, cand.Title)
	}
	if cand.Headline != "" {
		parts = append(parts, cand.Headline)
	}
	if len(cand.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(cand.Skills, ", "))
	}
	if cand.YearsExperience > 0 {
		parts = append(parts, fmt.Sprintf("%.0f years of experience", cand.YearsExperience))
	}
	if len(cand.Industries) > 0 {
		parts = append(parts, "Industries: "+strings.Join(cand.Industries, ", "))
	}
	return strings.Join(parts, ". ")
}

// resultSummary renders the rationale input from a result item, so the
// rationale reflects what the response actually shows.
func resultSummary(item *models.ResultItem) string {
	var parts []string
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if item.Headline != "" {
		parts = append(parts, item.Headline)
	}
	if len(item.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(item.Skills, ", "))
	}
	if item.YearsExperience != nil {
		parts = append(parts, fmt.Sprintf("%.0f years of experience", *item.YearsExperience))
	}
	return strings.Join(parts, ". ")
}

// slateCandidates returns the raw candidates in response order for
// diversity analysis.
func slateCandidates(items []models.ResultItem, byID map[string]*models.Candidate) []*models.Candidate {
	cands := make([]*models.Candidate, 0, len(items))
	for _, item := range items {
		if cand, ok := byID[item.CandidateID]; ok {
			cands = append(cands, cand)
		}
	}
	return cands
}

// shownSlate pairs each returned candidate with its response position.
func shownSlate(items []models.ResultItem, byID map[string]*models.Candidate) []bias.ShownCandidate {
	slate := make([]bias.ShownCandidate, 0, len(items))
	for i, item := range items {
		cand, ok := byID[item.CandidateID]
		if !ok {
			continue
		}
		slate = append(slate, bias.ShownCandidate{
			Candidate: cand,
			Rank:      i + 1,
			Score:     item.Score,
		})
	}
	return slate
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func msSince(t time.Time) float64 {
	return ms(time.Since(t))
}
