package mmse

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
	"github.com/alzcare/alzcare/pkg/pagination"
)

type Service struct {
	repo    Repository
	metrics *telemetry.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l zerolog.Logger) Option      { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit scores and stores a new test.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Test, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t := &Test{}
	req.apply(t, s.now())
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.metrics.MMSESubmitted(t.Interpretation)
	s.logger.Info().
		Str("mmse_id", t.ID.String()).
		Int("total_score", t.TotalScore).
		Str("interpretation", t.Interpretation).
		Msg("MMSE test submitted")
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Test, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Test, int, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// ByPatientName returns every test for the patient, newest first. An
// unknown name is a not-found error.
func (s *Service) ByPatientName(ctx context.Context, name string) ([]*Test, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Required("patient_name")
	}
	items, err := s.repo.ListByPatientName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound("MMSE results for patient", name)
	}
	return items, nil
}

// Update replaces the patient and scores of a stored test and rescores it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req SubmitRequest) (*Test, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(t, s.now())
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
