package cognitive

import (
	"context"

	"github.com/google/uuid"
)

// ActivityFilter narrows List. Zero values match everything.
type ActivityFilter struct {
	Type       ActivityType
	Difficulty Difficulty
	ActiveOnly bool
	// Keyword matches title or description, case-insensitively.
	Keyword string
}

// CatalogueSummary counts catalogue entries.
type CatalogueSummary struct {
	Total  int                  `json:"total_activities"`
	Active int                  `json:"active_activities"`
	ByType map[ActivityType]int `json:"activities_by_type"`
}

type ActivityRepository interface {
	Create(ctx context.Context, a *Activity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Activity, error)
	Update(ctx context.Context, a *Activity) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns matches oldest first.
	List(ctx context.Context, f ActivityFilter) ([]*Activity, error)
	Summary(ctx context.Context) (*CatalogueSummary, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	// ListByPatient returns sessions newest first with their activity loaded.
	// An empty status matches every status.
	ListByPatient(ctx context.Context, patientID uuid.UUID, status SessionStatus) ([]*Session, error)
	Count(ctx context.Context) (int, error)
}
