package medical

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/platform/auth"
	"github.com/alzcare/alzcare/internal/platform/eventstore"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
)

// TimelinePublisher forwards committed timeline events to an external sink.
type TimelinePublisher interface {
	PublishTimeline(ctx context.Context, events ...*TimelineEvent) error
}

// TimelineService appends a timeline event for every mutation of a record,
// its risk factors or its prevention actions.
type TimelineService struct {
	repo       TimelineRepository
	publishers []TimelinePublisher
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

type TimelineOption func(*TimelineService)

func WithPublishers(p ...TimelinePublisher) TimelineOption {
	return func(s *TimelineService) { s.publishers = append(s.publishers, p...) }
}

func WithTimelineMetrics(m *telemetry.Metrics) TimelineOption {
	return func(s *TimelineService) { s.metrics = m }
}

func WithTimelineClock(now func() time.Time) TimelineOption {
	return func(s *TimelineService) { s.now = now }
}

func NewTimelineService(repo TimelineRepository, logger zerolog.Logger, opts ...TimelineOption) *TimelineService {
	s := &TimelineService{
		repo:   repo,
		logger: logger.With().Str("component", "timeline").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *TimelineService) LogRiskFactorAdded(ctx context.Context, f *RiskFactor) (*TimelineEvent, error) {
	return s.log(ctx, f.MedicalRecordID, EventRiskFactorAdded,
		fmt.Sprintf("Risk factor added: %s (Severity: %s)", f.FactorType, f.Severity),
		map[string]interface{}{"risk_factor_id": f.ID.String(), "factor_type": f.FactorType, "severity": string(f.Severity)})
}

func (s *TimelineService) LogRiskFactorUpdated(ctx context.Context, f *RiskFactor, changed map[string]interface{}) (*TimelineEvent, error) {
	return s.log(ctx, f.MedicalRecordID, EventRiskFactorUpdated,
		fmt.Sprintf("Risk factor updated: %s (Severity: %s)", f.FactorType, f.Severity),
		withID(changed, "risk_factor_id", f.ID))
}

func (s *TimelineService) LogRiskFactorRemoved(ctx context.Context, f *RiskFactor) (*TimelineEvent, error) {
	return s.log(ctx, f.MedicalRecordID, EventRiskFactorRemoved,
		fmt.Sprintf("Risk factor deactivated: %s", f.FactorType),
		map[string]interface{}{"risk_factor_id": f.ID.String(), "is_active": false})
}

func (s *TimelineService) LogPreventionActionAdded(ctx context.Context, a *PreventionAction) (*TimelineEvent, error) {
	return s.log(ctx, a.MedicalRecordID, EventPreventionActionAdded,
		fmt.Sprintf("Prevention action recorded: %s", a.ActionType),
		map[string]interface{}{"prevention_action_id": a.ID.String(), "status": string(a.Status)})
}

func (s *TimelineService) LogPreventionActionUpdated(ctx context.Context, a *PreventionAction, changed map[string]interface{}) (*TimelineEvent, error) {
	return s.log(ctx, a.MedicalRecordID, EventPreventionActionUpdated,
		fmt.Sprintf("Prevention action updated: %s -> %s", a.ActionType, a.Status),
		withID(changed, "prevention_action_id", a.ID))
}

func (s *TimelineService) LogMedicalRecordUpdated(ctx context.Context, r *MedicalRecord, changed map[string]interface{}) (*TimelineEvent, error) {
	return s.log(ctx, r.ID, EventMedicalRecordUpdated, "Medical record information was updated", changed)
}

func (s *TimelineService) LogRiskScoreUpdated(ctx context.Context, recordID uuid.UUID, change ScoreChange) (*TimelineEvent, error) {
	return s.log(ctx, recordID, EventRiskScoreUpdated,
		fmt.Sprintf("Risk score updated: %.2f -> %.2f (%s)", change.PreviousScore, change.NewScore, change.NewLevel),
		map[string]interface{}{
			"previous_score": change.PreviousScore,
			"new_score":      change.NewScore,
			"previous_level": string(change.PreviousLevel),
			"new_level":      string(change.NewLevel),
		})
}

func (s *TimelineService) log(ctx context.Context, recordID uuid.UUID, eventType EventType, description string, changed map[string]interface{}) (*TimelineEvent, error) {
	ev := &TimelineEvent{
		MedicalRecordID: recordID,
		EventDate:       s.now(),
		EventType:       eventType,
		Description:     description,
		ChangedFields:   changed,
	}
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		ev.PerformedBy = &uid
	}
	if err := s.repo.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append %s: %w", eventType, err)
	}
	s.metrics.TimelineEventRecorded(string(eventType))
	return ev, nil
}

// Publish hands committed events to every publisher. Failures are logged
// and never returned.
func (s *TimelineService) Publish(ctx context.Context, events ...*TimelineEvent) {
	if len(events) == 0 {
		return
	}
	for _, p := range s.publishers {
		if err := p.PublishTimeline(ctx, events...); err != nil {
			s.logger.Warn().Err(err).Int("events", len(events)).Msg("timeline publish failed")
		}
	}
}

func (s *TimelineService) ListByRecord(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*TimelineEvent, int, error) {
	return s.repo.ListByRecord(ctx, recordID, limit, offset)
}

func (s *TimelineService) ListByType(ctx context.Context, recordID uuid.UUID, eventType EventType) ([]*TimelineEvent, error) {
	return s.repo.ListByType(ctx, recordID, eventType)
}

func (s *TimelineService) ListBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*TimelineEvent, error) {
	return s.repo.ListBetween(ctx, recordID, start, end)
}

func (s *TimelineService) Count(ctx context.Context, recordID uuid.UUID) (int, error) {
	return s.repo.CountByRecord(ctx, recordID)
}

func withID(changed map[string]interface{}, key string, id uuid.UUID) map[string]interface{} {
	out := make(map[string]interface{}, len(changed)+1)
	for k, v := range changed {
		out[k] = v
	}
	out[key] = id.String()
	return out
}

// ── EventStore sink ──

// EventStorePublisher writes timeline events to the record's stream.
type EventStorePublisher struct {
	pub     eventstore.Publisher
	metrics *telemetry.Metrics
}

func NewEventStorePublisher(pub eventstore.Publisher, m *telemetry.Metrics) *EventStorePublisher {
	return &EventStorePublisher{pub: pub, metrics: m}
}

func (p *EventStorePublisher) PublishTimeline(ctx context.Context, events ...*TimelineEvent) error {
	out := make([]eventstore.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, toStoreEvent(ev))
	}
	err := p.pub.Publish(ctx, out...)
	p.metrics.BackendRequest("eventstore_append", err)
	return err
}

func toStoreEvent(ev *TimelineEvent) eventstore.Event {
	meta := map[string]string{"medical_record_id": ev.MedicalRecordID.String()}
	if ev.PerformedBy != nil {
		meta["performed_by"] = *ev.PerformedBy
	}
	return eventstore.Event{
		ID:         ev.ID,
		Aggregate:  ev.MedicalRecordID.String(),
		Type:       string(ev.EventType),
		OccurredAt: ev.EventDate,
		Data: map[string]interface{}{
			"description":    ev.Description,
			"changed_fields": ev.ChangedFields,
		},
		Metadata: meta,
	}
}
