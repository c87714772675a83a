package bias

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/auth"
	"github.com/hirehound/search/pkg/models"
)

type stubEventStore struct {
	events []models.SelectionEvent
	calls  int
	fail   bool
}

func (s *stubEventStore) InsertSelectionEvents(ctx context.Context, events []models.SelectionEvent) (int64, error) {
	s.calls++
	if s.fail {
		return 0, errors.New("connection refused")
	}
	s.events = append(s.events, events...)
	return int64(len(events)), nil
}

func TestRecorderRecordShown(t *testing.T) {
	store := &stubEventStore{}
	rec := NewRecorder(store, nil, nil)

	tenantID := uuid.New()
	ctx := auth.WithUserIDHash(auth.WithTenantID(context.Background(), tenantID), "hash-1")

	slate := []ShownCandidate{
		{
			Candidate: &models.Candidate{
				CandidateID:     "c1",
				Title:           "Backend Engineer",
				YearsExperience: 8,
				Profile: map[string]interface{}{
					models.ProfileKeyExperiences: []map[string]interface{}{
						{"company": "Google", "isCurrent": true},
					},
				},
			},
			Rank:  1,
			Score: 0.9,
		},
		{
			Candidate: &models.Candidate{CandidateID: "c2", Title: "Frontend Engineer", YearsExperience: 2},
			Rank:      2,
			Score:     0.7,
		},
	}

	rec.RecordShown(ctx, "search-1", slate)

	require.Len(t, store.events, 2)
	first := store.events[0]
	assert.NotEqual(t, uuid.Nil, first.EventID)
	assert.Equal(t, tenantID, first.TenantID)
	assert.Equal(t, "search-1", first.SearchID)
	assert.Equal(t, "hash-1", first.UserIDHash)
	assert.Equal(t, "c1", first.CandidateID)
	assert.Equal(t, models.EventShown, first.EventType)
	assert.Equal(t, models.TierFAANG, first.CompanyTier)
	assert.Equal(t, models.Band7to15, first.ExperienceBand)
	assert.Equal(t, models.SpecialtyBackend, first.Specialty)
	require.NotNil(t, first.Rank)
	assert.Equal(t, 1, *first.Rank)
	require.NotNil(t, first.Score)
	assert.InDelta(t, 0.9, *first.Score, 1e-9)

	second := store.events[1]
	require.NotNil(t, second.Rank)
	assert.Equal(t, 2, *second.Rank)
	assert.Equal(t, models.TierOther, second.CompanyTier)
	assert.Equal(t, models.SpecialtyFrontend, second.Specialty)
	assert.NotEqual(t, first.EventID, second.EventID)
}

func TestRecorderSkipsWithoutTenant(t *testing.T) {
	store := &stubEventStore{}
	rec := NewRecorder(store, nil, nil)

	rec.RecordShown(context.Background(), "search-1", []ShownCandidate{
		{Candidate: &models.Candidate{CandidateID: "c1"}, Rank: 1, Score: 0.5},
	})

	assert.Zero(t, store.calls)
	assert.Empty(t, store.events)
}

func TestRecorderSkipsEmptySlate(t *testing.T) {
	store := &stubEventStore{}
	rec := NewRecorder(store, nil, nil)

	ctx := auth.WithTenantID(context.Background(), uuid.New())
	rec.RecordShown(ctx, "search-1", nil)

	assert.Zero(t, store.calls)
}

func TestRecorderSwallowsStoreFailure(t *testing.T) {
	store := &stubEventStore{fail: true}
	rec := NewRecorder(store, nil, nil)

	ctx := auth.WithTenantID(context.Background(), uuid.New())
	assert.NotPanics(t, func() {
		rec.RecordShown(ctx, "search-1", []ShownCandidate{
			{Candidate: &models.Candidate{CandidateID: "c1"}, Rank: 1, Score: 0.5},
		})
	})
	assert.Equal(t, 1, store.calls)
}
