package store

import (
	"context"
	"fmt"

	"github.com/hirehound/search/pkg/models"
)

const insertSelectionEventsSQL = `
INSERT INTO selection_events (
	event_id, occurred_at, tenant_id, search_id, user_id_hash, candidate_id,
	event_type, company_tier, experience_band, specialty, rank, score
) VALUES (
	:event_id, :occurred_at, :tenant_id, :search_id, :user_id_hash, :candidate_id,
	:event_type, :company_tier, :experience_band, :specialty, :rank, :score
) ON CONFLICT (event_id) DO NOTHING`

// InsertSelectionEvents bulk-inserts interaction events. Duplicate event
// IDs are skipped so replayed batches stay idempotent. Returns the
// number of rows actually inserted.
func (s *Store) InsertSelectionEvents(ctx context.Context, events []models.SelectionEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	res, err := s.db.NamedExecContext(ctx, insertSelectionEventsSQL, events)
	if err != nil {
		return 0, fmt.Errorf("failed to insert selection events: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert count: %w", err)
	}

	if skipped := int64(len(events)) - inserted; skipped > 0 {
		s.logger.Debug("selection events skipped as duplicates", map[string]interface{}{
			"inserted": inserted,
			"skipped":  skipped,
		})
	}
	return inserted, nil
}
