package wellness

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *HealthProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthProfile, error)
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*HealthProfile, error)
	ExistsByPatientID(ctx context.Context, patientID uuid.UUID) (bool, error)
	Update(ctx context.Context, p *HealthProfile) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*HealthProfile, int, error)
}

type RecommendationRepository interface {
	Create(ctx context.Context, recs ...*HealthRecommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthRecommendation, error)
	Update(ctx context.Context, r *HealthRecommendation) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProfile(ctx context.Context, profileID uuid.UUID, f RecommendationFilter) ([]*HealthRecommendation, error)
}

// RecommendationFilter narrows ListByProfile. Zero values match everything.
type RecommendationFilter struct {
	Status   RecommendationStatus
	Category Category
}

type ActivityRepository interface {
	Create(ctx context.Context, a *WellnessActivity) error
	GetByID(ctx context.Context, id uuid.UUID) (*WellnessActivity, error)
	Update(ctx context.Context, a *WellnessActivity) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByProfile returns activities newest first.
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*WellnessActivity, error)
	CountSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error)
	SumDuration(ctx context.Context, profileID uuid.UUID) (int, error)
}
