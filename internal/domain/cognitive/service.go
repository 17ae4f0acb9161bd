package cognitive

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
)

// RecommendationLimit caps the activities suggested to a patient.
const RecommendationLimit = 5

// Service manages the activity catalogue and patients' play sessions.
type Service struct {
	activities ActivityRepository
	sessions   SessionRepository
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l zerolog.Logger) Option      { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }

func NewService(activities ActivityRepository, sessions SessionRepository, opts ...Option) *Service {
	s := &Service{
		activities: activities,
		sessions:   sessions,
		logger:     zerolog.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ── Catalogue ──

func (s *Service) CreateActivity(ctx context.Context, in ActivityInput) (*Activity, error) {
	a := &Activity{IsActive: true}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	if err := s.activities.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return a, nil
}

func (s *Service) GetActivity(ctx context.Context, id uuid.UUID) (*Activity, error) {
	return s.activities.GetByID(ctx, id)
}

func (s *Service) UpdateActivity(ctx context.Context, id uuid.UUID, in ActivityInput) (*Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	if err := s.activities.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteActivity removes the activity and, by cascade, its sessions.
func (s *Service) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	return s.activities.Delete(ctx, id)
}

// DeactivateActivity hides the activity from the catalogue and from
// recommendations while keeping its session history.
func (s *Service) DeactivateActivity(ctx context.Context, id uuid.UUID) (*Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return a, nil
	}
	a.IsActive = false
	if err := s.activities.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListActivities(ctx context.Context, f ActivityFilter) ([]*Activity, error) {
	return s.activities.List(ctx, f)
}

// ── Sessions ──

// StartActivity opens an IN_PROGRESS session. Inactive activities cannot be
// started.
func (s *Service) StartActivity(ctx context.Context, activityID uuid.UUID, in StartInput) (*Session, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Required("patient_id")
	}
	a, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, apperr.Conflict("activity " + a.ID.String() + " is inactive")
	}
	sess := &Session{
		ActivityID: a.ID,
		PatientID:  in.PatientID,
		Status:     SessionInProgress,
		StartedAt:  s.now(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	sess.Activity = a
	s.metrics.CognitiveSession(string(SessionInProgress))
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) CompleteSession(ctx context.Context, id uuid.UUID, in FinishInput) (*Session, error) {
	return s.finish(ctx, id, SessionCompleted, in)
}

func (s *Service) AbandonSession(ctx context.Context, id uuid.UUID, in FinishInput) (*Session, error) {
	return s.finish(ctx, id, SessionAbandoned, in)
}

func (s *Service) finish(ctx context.Context, id uuid.UUID, status SessionStatus, in FinishInput) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(sess.Activity, status == SessionCompleted); err != nil {
		return nil, err
	}
	if err := sess.Finish(status, in.Score, in.TimeSpentSeconds, s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	s.metrics.CognitiveSession(string(status))
	s.logger.Debug().
		Str("session_id", sess.ID.String()).
		Str("status", string(status)).
		Msg("cognitive session finished")
	return sess, nil
}

// History lists the patient's sessions newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID, status SessionStatus) ([]*Session, error) {
	return s.sessions.ListByPatient(ctx, patientID, status)
}

// CompletedActivities returns each activity the patient has completed once,
// most recently completed first.
func (s *Service) CompletedActivities(ctx context.Context, patientID uuid.UUID) ([]*Activity, error) {
	done, err := s.sessions.ListByPatient(ctx, patientID, SessionCompleted)
	if err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{}
	out := make([]*Activity, 0, len(done))
	for _, sess := range done {
		if seen[sess.ActivityID] || sess.Activity == nil {
			continue
		}
		seen[sess.ActivityID] = true
		out = append(out, sess.Activity)
	}
	return out, nil
}

// Recommendations suggests up to RecommendationLimit active activities the
// patient has not completed yet, in catalogue order.
func (s *Service) Recommendations(ctx context.Context, patientID uuid.UUID) ([]*Activity, error) {
	done, err := s.sessions.ListByPatient(ctx, patientID, SessionCompleted)
	if err != nil {
		return nil, err
	}
	completed := make(map[uuid.UUID]bool, len(done))
	for _, sess := range done {
		completed[sess.ActivityID] = true
	}
	active, err := s.activities.List(ctx, ActivityFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	out := make([]*Activity, 0, RecommendationLimit)
	for _, a := range active {
		if completed[a.ID] {
			continue
		}
		out = append(out, a)
		if len(out) == RecommendationLimit {
			break
		}
	}
	return out, nil
}

// ── Statistics ──

// PatientStats summarises a patient's sessions. Averages are nil until a
// completed session provides a value.
type PatientStats struct {
	PatientID                   uuid.UUID `json:"patient_id"`
	TotalSessions               int       `json:"total_sessions"`
	CompletedSessions           int       `json:"completed_sessions"`
	AbandonedSessions           int       `json:"abandoned_sessions"`
	InProgressSessions          int       `json:"in_progress_sessions"`
	AverageScore                *float64  `json:"average_score"`
	TotalPoints                 int       `json:"total_points"`
	AverageCompletionSeconds    *float64  `json:"average_completion_seconds"`
	DistinctCompletedActivities int       `json:"distinct_completed_activities"`
}

func (s *Service) PatientStats(ctx context.Context, patientID uuid.UUID) (*PatientStats, error) {
	all, err := s.sessions.ListByPatient(ctx, patientID, "")
	if err != nil {
		return nil, err
	}
	return ComputePatientStats(patientID, all), nil
}

// ComputePatientStats aggregates sessions. Total points add the max score of
// the activity behind every completed session.
func ComputePatientStats(patientID uuid.UUID, sessions []*Session) *PatientStats {
	st := &PatientStats{PatientID: patientID, TotalSessions: len(sessions)}
	var scoreSum, timeSum, scored, timed int
	distinct := map[uuid.UUID]bool{}
	for _, sess := range sessions {
		switch sess.Status {
		case SessionInProgress:
			st.InProgressSessions++
			continue
		case SessionAbandoned:
			st.AbandonedSessions++
			continue
		}
		st.CompletedSessions++
		distinct[sess.ActivityID] = true
		if sess.Score != nil {
			scoreSum += *sess.Score
			scored++
		}
		if sess.TimeSpentSeconds != nil {
			timeSum += *sess.TimeSpentSeconds
			timed++
		}
		if sess.Activity != nil && sess.Activity.MaxScore != nil {
			st.TotalPoints += *sess.Activity.MaxScore
		}
	}
	st.DistinctCompletedActivities = len(distinct)
	if scored > 0 {
		avg := round2(float64(scoreSum) / float64(scored))
		st.AverageScore = &avg
	}
	if timed > 0 {
		avg := round2(float64(timeSum) / float64(timed))
		st.AverageCompletionSeconds = &avg
	}
	return st
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// GlobalStats covers the whole catalogue.
type GlobalStats struct {
	CatalogueSummary
	TotalSessions int `json:"total_sessions"`
}

func (s *Service) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	sum, err := s.activities.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalogue summary: %w", err)
	}
	n, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	return &GlobalStats{CatalogueSummary: *sum, TotalSessions: n}, nil
}
