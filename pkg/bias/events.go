package bias

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/models"
	"github.com/hirehound/search/pkg/observability"
)

// EventStore persists selection events. Implemented by pkg/store.
type EventStore interface {
	InsertSelectionEvents(ctx context.Context, events []models.SelectionEvent) (int64, error)
}

// ShownCandidate pairs a returned candidate with its response
// position and final score.
type ShownCandidate struct {
	Candidate *models.Candidate
	Rank      int
	Score     float64
}

// Recorder writes selection events for later bias-metrics
// aggregation. Recording is best effort: failures are logged and
// counted, never returned to the caller.
type Recorder struct {
	store       EventStore
	specialties *SpecialtyCache
	logger      observability.Logger
	metrics     observability.MetricsClient
}

// NewRecorder builds a selection-event recorder.
func NewRecorder(store EventStore, logger observability.Logger, metrics observability.MetricsClient) *Recorder {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}
	return &Recorder{store: store, logger: logger, metrics: metrics}
}

// UseSpecialtyCache memoizes specialty inference through the specialty
// cache layer.
func (r *Recorder) UseSpecialtyCache(sc *SpecialtyCache) {
	r.specialties = sc
}

// RecordShown emits one shown event per returned candidate. The batch
// preserves the rank-to-position mapping of the response.
func (r *Recorder) RecordShown(ctx context.Context, searchID string, slate []ShownCandidate) {
	if r.store == nil || len(slate) == 0 {
		return
	}
	tenantID, ok := auth.TenantFromContext(ctx)
	if !ok {
		r.logger.Warn("selection events skipped: no tenant in context", map[string]interface{}{
			"search_id": searchID,
		})
		return
	}

	now := time.Now().UTC()
	userHash := auth.GetUserIDHash(ctx)

	events := make([]models.SelectionEvent, 0, len(slate))
	for _, shown := range slate {
		if shown.Candidate == nil {
			continue
		}
		tier, band, specialty := r.specialties.Dimensions(ctx, shown.Candidate)
		rank := shown.Rank
		score := shown.Score
		events = append(events, models.SelectionEvent{
			EventID:        uuid.New(),
			Timestamp:      now,
			TenantID:       tenantID,
			SearchID:       searchID,
			UserIDHash:     userHash,
			CandidateID:    shown.Candidate.CandidateID,
			EventType:      models.EventShown,
			CompanyTier:    tier,
			ExperienceBand: band,
			Specialty:      specialty,
			Rank:           &rank,
			Score:          &score,
		})
	}

	inserted, err := r.store.InsertSelectionEvents(ctx, events)
	if err != nil {
		r.logger.Warn("failed to record selection events", map[string]interface{}{
			"search_id": searchID,
			"events":    len(events),
			"error":     err.Error(),
		})
		r.metrics.RecordCounter("selection_events_failed_total", float64(len(events)), map[string]string{
			"event_type": string(models.EventShown),
		})
		return
	}
	r.metrics.RecordCounter("selection_events_recorded_total", float64(inserted), map[string]string{
		"event_type": string(models.EventShown),
	})
}
