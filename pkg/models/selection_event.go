package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType is a recorded candidate interaction kind.
type EventType string

// Selection event types.
const (
	EventShown       EventType = "shown"
	EventClicked     EventType = "clicked"
	EventShortlisted EventType = "shortlisted"
	EventContacted   EventType = "contacted"
	EventInterviewed EventType = "interviewed"
	EventHired       EventType = "hired"
)

// CompanyTier classifies a candidate's primary company.
type CompanyTier string

// Company tiers.
const (
	TierFAANG      CompanyTier = "faang"
	TierEnterprise CompanyTier = "enterprise"
	TierStartup    CompanyTier = "startup"
	TierOther      CompanyTier = "other"
)

// ExperienceBand buckets years of experience.
type ExperienceBand string

// Experience bands.
const (
	Band0to3   ExperienceBand = "0-3"
	Band3to7   ExperienceBand = "3-7"
	Band7to15  ExperienceBand = "7-15"
	Band15plus ExperienceBand = "15+"
)

// Specialty is the inferred technical specialty.
type Specialty string

// Specialties.
const (
	SpecialtyFrontend  Specialty = "frontend"
	SpecialtyBackend   Specialty = "backend"
	SpecialtyFullstack Specialty = "fullstack"
	SpecialtyDevops    Specialty = "devops"
	SpecialtyData      Specialty = "data"
	SpecialtyML        Specialty = "ml"
	SpecialtyMobile    Specialty = "mobile"
	SpecialtyOther     Specialty = "other"
)

// SelectionEvent records one interaction with a candidate for later
// bias metrics aggregation. Inserts are idempotent on EventID.
type SelectionEvent struct {
	EventID     uuid.UUID `json:"eventId" db:"event_id"`
	Timestamp   time.Time `json:"timestamp" db:"occurred_at"`
	TenantID    uuid.UUID `json:"tenantId" db:"tenant_id"`
	SearchID    string    `json:"searchId" db:"search_id"`
	UserIDHash  string    `json:"userIdHash" db:"user_id_hash"`
	CandidateID string    `json:"candidateId" db:"candidate_id"`
	EventType   EventType `json:"eventType" db:"event_type"`

	CompanyTier    CompanyTier    `json:"companyTier" db:"company_tier"`
	ExperienceBand ExperienceBand `json:"experienceBand" db:"experience_band"`
	Specialty      Specialty      `json:"specialty" db:"specialty"`

	Rank  *int     `json:"rank,omitempty" db:"rank"`
	Score *float64 `json:"score,omitempty" db:"score"`
}
