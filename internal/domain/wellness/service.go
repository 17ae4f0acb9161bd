package wellness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
	"github.com/alzcare/alzcare/pkg/pagination"
)

// Service implements the prevention service: profiles with a derived
// wellness score, recommendations and logged activities.
type Service struct {
	profiles        ProfileRepository
	recommendations RecommendationRepository
	activities      ActivityRepository
	tx              db.Transactor
	risk            RiskSource
	metrics         *telemetry.Metrics
	logger          zerolog.Logger
	now             func() time.Time
}

type Option func(*Service)

func WithRiskSource(r RiskSource) Option      { return func(s *Service) { s.risk = r } }
func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l zerolog.Logger) Option      { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }

func NewService(profiles ProfileRepository, recommendations RecommendationRepository,
	activities ActivityRepository, tx db.Transactor, opts ...Option) *Service {
	s := &Service{
		profiles:        profiles,
		recommendations: recommendations,
		activities:      activities,
		tx:              tx,
		logger:          zerolog.Nop(),
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// rescore refreshes the derived score and assessment date.
func (s *Service) rescore(p *HealthProfile) {
	score := Score(p)
	now := s.now()
	p.WellnessScore = &score
	p.LastAssessmentDate = &now
	s.metrics.WellnessScoreComputed(score)
}

// ── Profiles ──

func (s *Service) CreateProfile(ctx context.Context, in ProfileInput) (*HealthProfile, error) {
	p := &HealthProfile{}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	exists, err := s.profiles.ExistsByPatientID(ctx, p.PatientID)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("health profile already exists for patient " + p.PatientID.String())
	}
	s.rescore(p)
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*HealthProfile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *Service) GetProfileByPatient(ctx context.Context, patientID uuid.UUID) (*HealthProfile, error) {
	return s.profiles.GetByPatientID(ctx, patientID)
}

func (s *Service) ListProfiles(ctx context.Context, limit, offset int) ([]*HealthProfile, int, error) {
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = pagination.DefaultLimit
	}
	return s.profiles.List(ctx, limit, offset)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*HealthProfile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := p.PatientID
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if p.PatientID != previous {
		exists, err := s.profiles.ExistsByPatientID(ctx, p.PatientID)
		if err != nil {
			return nil, fmt.Errorf("check existing profile: %w", err)
		}
		if exists {
			return nil, apperr.Conflict("health profile already exists for patient " + p.PatientID.String())
		}
	}
	s.rescore(p)
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProfile removes the profile; its recommendations and activities
// cascade.
func (s *Service) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	return s.profiles.Delete(ctx, id)
}

// GenerateRecommendations stores the rule-based recommendations for the
// profile and refreshes its score in one transaction.
func (s *Service) GenerateRecommendations(ctx context.Context, profileID uuid.UUID) ([]*HealthRecommendation, error) {
	var generated []*HealthRecommendation
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.profiles.GetByID(ctx, profileID)
		if err != nil {
			return err
		}
		generated = GenerateRecommendations(p)
		if err := s.recommendations.Create(ctx, generated...); err != nil {
			return fmt.Errorf("save recommendations: %w", err)
		}
		s.rescore(p)
		return s.profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("profile_id", profileID.String()).
		Int("count", len(generated)).
		Msg("recommendations generated")
	return generated, nil
}

// ── Recommendations ──

func (s *Service) CreateRecommendation(ctx context.Context, in RecommendationInput) (*HealthRecommendation, error) {
	if in.HealthProfileID == nil {
		return nil, apperr.Required("health_profile_id")
	}
	if _, err := s.profiles.GetByID(ctx, *in.HealthProfileID); err != nil {
		return nil, err
	}
	r := &HealthRecommendation{HealthProfileID: *in.HealthProfileID}
	if err := in.apply(r); err != nil {
		return nil, err
	}
	if r.Status == StatusCompleted {
		now := s.now()
		r.CompletedDate = &now
	}
	if err := s.recommendations.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create recommendation: %w", err)
	}
	return r, nil
}

func (s *Service) GetRecommendation(ctx context.Context, id uuid.UUID) (*HealthRecommendation, error) {
	return s.recommendations.GetByID(ctx, id)
}

func (s *Service) ListRecommendations(ctx context.Context, profileID uuid.UUID, f RecommendationFilter) ([]*HealthRecommendation, error) {
	return s.recommendations.ListByProfile(ctx, profileID, f)
}

func (s *Service) UpdateRecommendation(ctx context.Context, id uuid.UUID, in RecommendationInput) (*HealthRecommendation, error) {
	r, err := s.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	was := r.Status
	if err := in.apply(r); err != nil {
		return nil, err
	}
	if r.Status == StatusCompleted && was != StatusCompleted {
		now := s.now()
		r.CompletedDate = &now
	}
	if err := s.recommendations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CompleteRecommendation marks the recommendation done. Completing twice keeps
// the first completion date.
func (s *Service) CompleteRecommendation(ctx context.Context, id uuid.UUID) (*HealthRecommendation, error) {
	r, err := s.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusCompleted {
		return r, nil
	}
	now := s.now()
	r.Status = StatusCompleted
	r.CompletedDate = &now
	if err := s.recommendations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteRecommendation(ctx context.Context, id uuid.UUID) error {
	return s.recommendations.Delete(ctx, id)
}

// ── Activities ──

func (s *Service) LogActivity(ctx context.Context, in ActivityInput) (*WellnessActivity, error) {
	if in.HealthProfileID == nil {
		return nil, apperr.Required("health_profile_id")
	}
	if _, err := s.profiles.GetByID(ctx, *in.HealthProfileID); err != nil {
		return nil, err
	}
	a := &WellnessActivity{HealthProfileID: *in.HealthProfileID}
	if err := in.apply(a, s.now()); err != nil {
		return nil, err
	}
	if err := s.activities.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("log activity: %w", err)
	}
	return a, nil
}

func (s *Service) GetActivity(ctx context.Context, id uuid.UUID) (*WellnessActivity, error) {
	return s.activities.GetByID(ctx, id)
}

func (s *Service) ListActivities(ctx context.Context, profileID uuid.UUID) ([]*WellnessActivity, error) {
	return s.activities.ListByProfile(ctx, profileID)
}

func (s *Service) UpdateActivity(ctx context.Context, id uuid.UUID, in ActivityInput) (*WellnessActivity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(a, s.now()); err != nil {
		return nil, err
	}
	if err := s.activities.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	return s.activities.Delete(ctx, id)
}
