package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/common"
	"github.com/hirehound/search/pkg/models"
)

// Fusion methods selectable per request for A/B comparison.
const (
	FusionRRF      = "rrf"
	FusionWeighted = "weighted"
)

// Retrieval defaults.
const (
	defaultLimit          = 20
	defaultPerMethodLimit = 100
	defaultRRFK           = 60
	defaultVectorWeight   = 0.7
	defaultTextWeight     = 0.3
)

// Query bundles the retrieval inputs for one hybrid search. Zero values
// fall back to the defaults above.
type Query struct {
	Embedding []float32
	QueryText string
	Filters   models.SearchFilters

	Limit  int
	Offset int

	FusionMethod   string
	RRFK           int
	PerMethodLimit int
	VectorWeight   float64
	TextWeight     float64
	MinSimilarity  float64
}

func (q *Query) withDefaults() {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.PerMethodLimit <= 0 {
		q.PerMethodLimit = defaultPerMethodLimit
	}
	if q.RRFK <= 0 {
		q.RRFK = defaultRRFK
	}
	if q.FusionMethod == "" {
		q.FusionMethod = FusionRRF
	}
	if q.FusionMethod == FusionWeighted {
		total := q.VectorWeight + q.TextWeight
		if total <= 0 {
			q.VectorWeight = defaultVectorWeight
			q.TextWeight = defaultTextWeight
		} else if total != 1.0 {
			q.VectorWeight /= total
			q.TextWeight /= total
		}
	}
}

// Result carries the retrieved candidates plus per-method diagnostics.
type Result struct {
	Candidates []*models.Candidate
	Method     string

	VectorHits int
	TextHits   int
	VectorOnly int
	TextOnly   int
	Both       int
	Neither    int

	SearchTime float64 // milliseconds
}

// HybridSearch runs the fused vector + full-text retrieval for the
// tenant in ctx. Both retrieval methods and the fusion run in a single
// SQL statement; the ANN search list size is set transaction-locally so
// it never leaks to other sessions.
func (s *Store) HybridSearch(ctx context.Context, q Query) (*Result, error) {
	tenantID := auth.GetTenantID(ctx)
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenant
	}
	if len(q.Embedding) == 0 && strings.TrimSpace(q.QueryText) == "" {
		return nil, ErrNoSearchInput
	}
	q.withDefaults()

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("store_hybrid_search_duration_seconds", time.Since(start), map[string]string{
			"method": q.FusionMethod,
		})
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire query slot: %w", err)
	}
	defer s.sem.Release(1)

	out, err := s.breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return s.runHybridQuery(ctx, tenantID, q)
	})
	if err != nil {
		s.metrics.RecordCounter("store_hybrid_search_errors_total", 1, nil)
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}
	result, ok := out.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	result.SearchTime = float64(time.Since(start).Milliseconds())

	s.logFusionDiagnostics(tenantID, q, result)
	return result, nil
}

func (s *Store) runHybridQuery(ctx context.Context, tenantID uuid.UUID, q Query) (*Result, error) {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	query, args := s.buildHybridQuery(tenantID, q)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback()
	}()

	if len(q.Embedding) > 0 && s.cfg.EFSearch > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", s.cfg.EFSearch)); err != nil {
			return nil, fmt.Errorf("failed to set ef_search: %w", err)
		}
	}

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hybrid query failed: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close rows", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	result := &Result{Method: q.FusionMethod}
	for rows.Next() {
		var r hybridRow
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result.VectorHits = r.VectorHits
		result.TextHits = r.TextHits
		switch {
		case r.VectorRank.Valid && r.TextRank.Valid:
			result.Both++
		case r.VectorRank.Valid:
			result.VectorOnly++
		case r.TextRank.Valid:
			result.TextOnly++
		default:
			result.Neither++
		}
		result.Candidates = append(result.Candidates, r.toCandidate(tenantID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// buildHybridQuery assembles the fused retrieval statement. Shape varies
// with the available inputs: both CTEs joined with a FULL OUTER JOIN
// when embedding and query text are present, a single CTE otherwise.
func (s *Store) buildHybridQuery(tenantID uuid.UUID, q Query) (string, []interface{}) {
	hasVector := len(q.Embedding) > 0
	hasText := strings.TrimSpace(q.QueryText) != ""

	args := []interface{}{tenantID}
	argCount := 1
	next := func(v interface{}) int {
		args = append(args, v)
		argCount++
		return argCount
	}

	var b strings.Builder
	b.WriteString("WITH ")

	if hasVector {
		vec := next(common.FormatPgVector(q.Embedding))
		lim := next(q.PerMethodLimit)
		fmt.Fprintf(&b, `vector_candidates AS (
	SELECT
		ce.entity_id AS candidate_id,
		1 - (ce.vector <=> $%d::vector) AS vector_score,
		ROW_NUMBER() OVER (ORDER BY ce.vector <=> $%d::vector ASC) AS vector_rank
	FROM candidate_embeddings ce
	WHERE ce.tenant_id = $1 AND ce.chunk_type = 'profile'
	ORDER BY ce.vector <=> $%d::vector ASC
	LIMIT $%d
)`, vec, vec, vec, lim)
	}

	if hasText {
		if hasVector {
			b.WriteString(", ")
		}
		txt := next(q.QueryText)
		lim := next(q.PerMethodLimit)
		fmt.Fprintf(&b, `text_candidates AS (
	SELECT
		cp.candidate_id,
		ts_rank_cd(cp.search_document, query) AS text_score,
		ROW_NUMBER() OVER (ORDER BY ts_rank_cd(cp.search_document, query) DESC) AS text_rank
	FROM candidate_profiles cp,
		websearch_to_tsquery('portuguese', $%d) AS query
	WHERE cp.tenant_id = $1 AND cp.search_document @@ query
	ORDER BY ts_rank_cd(cp.search_document, query) DESC
	LIMIT $%d
)`, txt, lim)
	}

	b.WriteString(", fused AS (\n")
	switch {
	case hasVector && hasText:
		var scoreExpr string
		if q.FusionMethod == FusionWeighted {
			vw := next(q.VectorWeight)
			tw := next(q.TextWeight)
			scoreExpr = fmt.Sprintf("$%d * COALESCE(v.vector_score, 0) + $%d * COALESCE(t.text_score, 0)", vw, tw)
		} else {
			k := next(q.RRFK)
			scoreExpr = fmt.Sprintf("COALESCE(1.0 / ($%d + v.vector_rank), 0) + COALESCE(1.0 / ($%d + t.text_rank), 0)", k, k)
		}
		fmt.Fprintf(&b, `	SELECT
		candidate_id,
		COALESCE(v.vector_score, 0) AS vector_score,
		COALESCE(t.text_score, 0) AS text_score,
		v.vector_rank,
		t.text_rank,
		%s AS fused_score
	FROM vector_candidates v
	FULL OUTER JOIN text_candidates t USING (candidate_id)
`, scoreExpr)
	case hasVector:
		var scoreExpr string
		if q.FusionMethod == FusionWeighted {
			vw := next(q.VectorWeight)
			scoreExpr = fmt.Sprintf("$%d * vector_score", vw)
		} else {
			k := next(q.RRFK)
			scoreExpr = fmt.Sprintf("1.0 / ($%d + vector_rank)", k)
		}
		fmt.Fprintf(&b, `	SELECT
		candidate_id,
		vector_score,
		0::float8 AS text_score,
		vector_rank,
		NULL::bigint AS text_rank,
		%s AS fused_score
	FROM vector_candidates
`, scoreExpr)
	default:
		var scoreExpr string
		if q.FusionMethod == FusionWeighted {
			tw := next(q.TextWeight)
			scoreExpr = fmt.Sprintf("$%d * text_score", tw)
		} else {
			k := next(q.RRFK)
			scoreExpr = fmt.Sprintf("1.0 / ($%d + text_rank)", k)
		}
		fmt.Fprintf(&b, `	SELECT
		candidate_id,
		0::float8 AS vector_score,
		text_score,
		NULL::bigint AS vector_rank,
		text_rank,
		%s AS fused_score
	FROM text_candidates
`, scoreExpr)
	}
	b.WriteString(")")

	vectorHitsExpr := "0"
	if hasVector {
		vectorHitsExpr = "(SELECT COUNT(*) FROM vector_candidates)"
	}
	textHitsExpr := "0"
	if hasText {
		textHitsExpr = "(SELECT COUNT(*) FROM text_candidates)"
	}

	minSim := next(q.MinSimilarity)
	fmt.Fprintf(&b, `
SELECT
	f.candidate_id,
	f.vector_score,
	f.text_score,
	f.vector_rank,
	f.text_rank,
	f.fused_score,
	cp.full_name,
	cp.title,
	cp.headline,
	cp.location,
	cp.country,
	cp.skills,
	cp.industries,
	cp.years_experience,
	cp.analysis_confidence,
	cp.profile,
	cp.legal_basis,
	cp.consent_record,
	cp.transfer_mechanism,
	cp.updated_at,
	%s AS vector_hits,
	%s AS text_hits
FROM fused f
JOIN candidate_profiles cp ON cp.tenant_id = $1 AND cp.candidate_id = f.candidate_id
WHERE (f.vector_score >= $%d OR f.text_score > 0)`, vectorHitsExpr, textHitsExpr, minSim)

	b.WriteString(buildFilters(q.Filters, &args, &argCount))

	lim := next(q.Limit)
	off := next(q.Offset)
	fmt.Fprintf(&b, "\nORDER BY f.fused_score DESC, f.candidate_id ASC\nLIMIT $%d OFFSET $%d", lim, off)

	return b.String(), args
}

// buildFilters appends the optional entity predicates. Country filters
// keep rows with a null country so candidates with unknown location are
// not silently dropped.
func buildFilters(f models.SearchFilters, args *[]interface{}, argCount *int) string {
	var filters []string

	if len(f.Locations) > 0 {
		lowered := make([]string, len(f.Locations))
		for i, loc := range f.Locations {
			lowered[i] = strings.ToLower(loc)
		}
		*argCount++
		filters = append(filters, fmt.Sprintf("LOWER(cp.location) = ANY($%d)", *argCount))
		*args = append(*args, pq.Array(lowered))
	}

	if len(f.Countries) > 0 {
		*argCount++
		filters = append(filters, fmt.Sprintf("(cp.country = ANY($%d) OR cp.country IS NULL)", *argCount))
		*args = append(*args, pq.Array(f.Countries))
	}

	if len(f.Skills) > 0 {
		*argCount++
		filters = append(filters, fmt.Sprintf("cp.skills && $%d", *argCount))
		*args = append(*args, pq.Array(f.Skills))
	}

	if len(f.Industries) > 0 {
		*argCount++
		filters = append(filters, fmt.Sprintf("cp.industries && $%d", *argCount))
		*args = append(*args, pq.Array(f.Industries))
	}

	if len(f.SeniorityLevels) > 0 {
		*argCount++
		filters = append(filters, fmt.Sprintf("cp.profile->>'seniority' = ANY($%d)", *argCount))
		*args = append(*args, pq.Array(f.SeniorityLevels))
	}

	if f.MinExperienceYears != nil {
		*argCount++
		filters = append(filters, fmt.Sprintf("cp.years_experience >= $%d", *argCount))
		*args = append(*args, *f.MinExperienceYears)
	}

	if f.MaxExperienceYears != nil {
		*argCount++
		filters = append(filters, fmt.Sprintf("cp.years_experience <= $%d", *argCount))
		*args = append(*args, *f.MaxExperienceYears)
	}

	for key, value := range f.Metadata {
		*argCount++
		filters = append(filters, fmt.Sprintf("cp.profile->>%s = $%d", pq.QuoteLiteral(key), *argCount))
		*args = append(*args, fmt.Sprintf("%v", value))
	}

	if len(filters) > 0 {
		return "\n\tAND " + strings.Join(filters, "\n\tAND ")
	}
	return ""
}

type hybridRow struct {
	CandidateID        string          `db:"candidate_id"`
	VectorScore        float64         `db:"vector_score"`
	TextScore          float64         `db:"text_score"`
	VectorRank         sql.NullInt64   `db:"vector_rank"`
	TextRank           sql.NullInt64   `db:"text_rank"`
	FusedScore         float64         `db:"fused_score"`
	FullName           sql.NullString  `db:"full_name"`
	Title              sql.NullString  `db:"title"`
	Headline           sql.NullString  `db:"headline"`
	Location           sql.NullString  `db:"location"`
	Country            sql.NullString  `db:"country"`
	Skills             pq.StringArray  `db:"skills"`
	Industries         pq.StringArray  `db:"industries"`
	YearsExperience    sql.NullFloat64 `db:"years_experience"`
	AnalysisConfidence sql.NullFloat64 `db:"analysis_confidence"`
	Profile            []byte          `db:"profile"`
	LegalBasis         sql.NullString  `db:"legal_basis"`
	ConsentRecord      sql.NullString  `db:"consent_record"`
	TransferMechanism  sql.NullString  `db:"transfer_mechanism"`
	UpdatedAt          time.Time       `db:"updated_at"`
	VectorHits         int             `db:"vector_hits"`
	TextHits           int             `db:"text_hits"`
}

func (r *hybridRow) toCandidate(tenantID uuid.UUID) *models.Candidate {
	c := &models.Candidate{
		CandidateID:        r.CandidateID,
		TenantID:           tenantID,
		FullName:           r.FullName.String,
		Title:              r.Title.String,
		Headline:           r.Headline.String,
		Location:           r.Location.String,
		Skills:             r.Skills,
		Industries:         r.Industries,
		YearsExperience:    r.YearsExperience.Float64,
		AnalysisConfidence: r.AnalysisConfidence.Float64,
		Compliance: models.Compliance{
			LegalBasis:        r.LegalBasis.String,
			ConsentRecord:     r.ConsentRecord.String,
			TransferMechanism: r.TransferMechanism.String,
		},
		VectorScore: r.VectorScore,
		TextScore:   r.TextScore,
		RRFScore:    r.FusedScore,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Country.Valid {
		country := r.Country.String
		c.Country = &country
	}
	if r.VectorRank.Valid {
		c.VectorRank = int(r.VectorRank.Int64)
	}
	if r.TextRank.Valid {
		c.TextRank = int(r.TextRank.Int64)
	}
	if len(r.Profile) > 0 {
		c.Profile = make(map[string]interface{})
		_ = json.Unmarshal(r.Profile, &c.Profile)
	}
	return c
}

// logFusionDiagnostics records how the two retrieval methods overlapped.
// A text query that produced no full-text matches usually means the
// query language does not match the tsvector configuration.
func (s *Store) logFusionDiagnostics(tenantID uuid.UUID, q Query, res *Result) {
	fields := map[string]interface{}{
		"tenant_id":   tenantID.String(),
		"method":      res.Method,
		"results":     len(res.Candidates),
		"vector_hits": res.VectorHits,
		"text_hits":   res.TextHits,
		"vector_only": res.VectorOnly,
		"text_only":   res.TextOnly,
		"both":        res.Both,
		"neither":     res.Neither,
		"duration_ms": res.SearchTime,
	}
	if n := len(res.Candidates); n > 0 {
		fields["top_score"] = res.Candidates[0].RRFScore
		fields["low_score"] = res.Candidates[n-1].RRFScore
	}
	s.logger.Debug("hybrid search fused", fields)

	if strings.TrimSpace(q.QueryText) != "" && res.TextHits == 0 {
		s.logger.Warn("text query produced no full-text matches", map[string]interface{}{
			"tenant_id": tenantID.String(),
			"query":     q.QueryText,
		})
	}
}
