package medical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
	"github.com/alzcare/alzcare/internal/platform/telemetry"
	"github.com/alzcare/alzcare/pkg/pagination"
)

// Service owns the medical record aggregate. Every mutation, the risk score
// recompute it triggers and the resulting timeline events share one
// transaction; events are published after commit.
type Service struct {
	records  MedicalRecordRepository
	factors  RiskFactorRepository
	actions  PreventionActionRepository
	timeline *TimelineService
	tx       db.Transactor
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l zerolog.Logger) Option      { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }

func NewService(records MedicalRecordRepository, factors RiskFactorRepository, actions PreventionActionRepository,
	timeline *TimelineService, tx db.Transactor, opts ...Option) *Service {
	s := &Service{
		records:  records,
		factors:  factors,
		actions:  actions,
		timeline: timeline,
		tx:       tx,
		logger:   zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// eventBatch collects timeline events written inside a transaction.
type eventBatch struct {
	events []*TimelineEvent
}

func (b *eventBatch) add(ev *TimelineEvent, err error) error {
	if err != nil {
		return err
	}
	b.events = append(b.events, ev)
	return nil
}

func (s *Service) mutate(ctx context.Context, fn func(ctx context.Context, b *eventBatch) error) error {
	b := &eventBatch{}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error { return fn(ctx, b) }); err != nil {
		return err
	}
	s.timeline.Publish(ctx, b.events...)
	return nil
}

// recompute refreshes the derived score from the record's active factors,
// persists it and records a RISK_SCORE_UPDATED event when it moved.
func (s *Service) recompute(ctx context.Context, r *MedicalRecord, b *eventBatch) error {
	factors, err := s.factors.ListByRecord(ctx, r.ID, true)
	if err != nil {
		return fmt.Errorf("load risk factors: %w", err)
	}
	change := UpdateRiskScore(r, factors, s.now())
	if err := s.records.Update(ctx, r); err != nil {
		return fmt.Errorf("save risk score: %w", err)
	}
	s.metrics.RiskScoreCalculated(string(r.RiskLevel), r.RiskScore)
	if !change.Changed() {
		return nil
	}
	s.logger.Debug().
		Str("medical_record_id", r.ID.String()).
		Float64("previous_score", change.PreviousScore).
		Float64("new_score", change.NewScore).
		Str("level", string(change.NewLevel)).
		Msg("risk score changed")
	return b.add(s.timeline.LogRiskScoreUpdated(ctx, r.ID, change))
}

// ── Medical records ──

func (s *Service) CreateRecord(ctx context.Context, r *MedicalRecord) error {
	if err := r.Normalize(); err != nil {
		return err
	}
	r.RiskScore = 0
	r.RiskLevel = RiskLevelLow
	return s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		if err := s.records.Create(ctx, r); err != nil {
			return fmt.Errorf("create medical record: %w", err)
		}
		return s.recompute(ctx, r, b)
	})
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.records.GetByID(ctx, id)
}

// RecordView is a record with its active factors and derived advice.
type RecordView struct {
	*MedicalRecord
	RiskFactors     []*RiskFactor `json:"risk_factors"`
	Recommendations []string      `json:"recommendations"`
}

func (s *Service) GetRecordView(ctx context.Context, id uuid.UUID) (*RecordView, error) {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	factors, err := s.factors.ListByRecord(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return &RecordView{
		MedicalRecord:   r,
		RiskFactors:     factors,
		Recommendations: GenerateRecommendations(r, factors, r.RiskScore),
	}, nil
}

func (s *Service) ListRecords(ctx context.Context, filter RecordFilter, p pagination.Params) ([]*MedicalRecord, int, error) {
	return s.records.List(ctx, filter, p)
}

func (s *Service) ListRecordsByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return s.records.ListByPatient(ctx, patientID)
}

// RecordPatch is a partial update. Nil fields are left unchanged.
type RecordPatch struct {
	Age                *int    `json:"age"`
	Gender             *string `json:"gender"`
	EducationLevel     *string `json:"education_level"`
	FamilyHistory      *string `json:"family_history"`
	RiskFactorsSummary *string `json:"risk_factors_summary"`
	CurrentSymptoms    *string `json:"current_symptoms"`
	DiagnosisNotes     *string `json:"diagnosis_notes"`
}

// apply copies the set fields onto r and returns the changed field names
// with their new values.
func (p RecordPatch) apply(r *MedicalRecord) (map[string]interface{}, error) {
	changed := map[string]interface{}{}
	if p.Age != nil && (r.Age == nil || *r.Age != *p.Age) {
		age := *p.Age
		r.Age = &age
		changed["age"] = age
	}
	if p.Gender != nil {
		g, err := ParseGender(*p.Gender)
		if err != nil {
			return nil, err
		}
		if g != r.Gender {
			r.Gender = g
			changed["gender"] = string(g)
		}
	}
	if p.FamilyHistory != nil {
		fh, err := ParseFamilyHistory(*p.FamilyHistory)
		if err != nil {
			return nil, err
		}
		if fh != r.FamilyHistory {
			r.FamilyHistory = fh
			changed["family_history"] = string(fh)
		}
	}
	setText(&r.EducationLevel, p.EducationLevel, "education_level", changed)
	setText(&r.RiskFactorsSummary, p.RiskFactorsSummary, "risk_factors_summary", changed)
	setText(&r.CurrentSymptoms, p.CurrentSymptoms, "current_symptoms", changed)
	setText(&r.DiagnosisNotes, p.DiagnosisNotes, "diagnosis_notes", changed)
	return changed, nil
}

func setText(dst **string, v *string, field string, changed map[string]interface{}) {
	if v == nil || (*dst != nil && **dst == *v) {
		return
	}
	val := *v
	*dst = &val
	changed[field] = val
}

func (s *Service) UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) (*MedicalRecord, error) {
	var out *MedicalRecord
	err := s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		r, err := s.records.GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err := patch.apply(r)
		if err != nil {
			return err
		}
		if err := r.Normalize(); err != nil {
			return err
		}
		if err := b.add(s.timeline.LogMedicalRecordUpdated(ctx, r, changed)); err != nil {
			return err
		}
		if err := s.recompute(ctx, r, b); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// DeleteRecord removes a record together with its factors, actions and timeline.
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if _, err := s.records.GetByID(ctx, id); err != nil {
		return err
	}
	return s.records.Delete(ctx, id)
}

func (s *Service) RecordStats(ctx context.Context) (*RecordStats, error) {
	return s.records.Stats(ctx)
}

// ── Risk factors ──

func (s *Service) AddRiskFactor(ctx context.Context, f *RiskFactor) error {
	if f.MedicalRecordID == uuid.Nil {
		return apperr.Required("medical_record_id")
	}
	if strings.TrimSpace(f.FactorType) == "" {
		return apperr.Required("factor_type")
	}
	if f.Severity == "" {
		f.Severity = SeverityMedium
	}
	sev, err := ParseSeverity(string(f.Severity))
	if err != nil {
		return err
	}
	f.Severity = sev
	f.IsActive = true

	return s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		r, err := s.records.GetByID(ctx, f.MedicalRecordID)
		if err != nil {
			return err
		}
		if err := s.factors.Create(ctx, f); err != nil {
			return fmt.Errorf("create risk factor: %w", err)
		}
		if err := b.add(s.timeline.LogRiskFactorAdded(ctx, f)); err != nil {
			return err
		}
		return s.recompute(ctx, r, b)
	})
}

func (s *Service) GetRiskFactor(ctx context.Context, id uuid.UUID) (*RiskFactor, error) {
	return s.factors.GetByID(ctx, id)
}

func (s *Service) ListRiskFactors(ctx context.Context, recordID uuid.UUID, activeOnly bool) ([]*RiskFactor, error) {
	return s.factors.ListByRecord(ctx, recordID, activeOnly)
}

// RiskFactorPatch updates a risk factor. Setting IsActive to false is a removal.
type RiskFactorPatch struct {
	FactorType    *string    `json:"factor_type"`
	Severity      *string    `json:"severity"`
	DiagnosedDate *time.Time `json:"diagnosed_date"`
	Notes         *string    `json:"notes"`
	IsActive      *bool      `json:"is_active"`
}

func (s *Service) UpdateRiskFactor(ctx context.Context, id uuid.UUID, patch RiskFactorPatch) (*RiskFactor, error) {
	var out *RiskFactor
	err := s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		f, err := s.factors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		wasActive := f.IsActive
		changed := map[string]interface{}{}
		if patch.FactorType != nil {
			if strings.TrimSpace(*patch.FactorType) == "" {
				return apperr.Required("factor_type")
			}
			if *patch.FactorType != f.FactorType {
				f.FactorType = *patch.FactorType
				changed["factor_type"] = f.FactorType
			}
		}
		if patch.Severity != nil {
			sev, err := ParseSeverity(*patch.Severity)
			if err != nil {
				return err
			}
			if sev != f.Severity {
				f.Severity = sev
				changed["severity"] = string(sev)
			}
		}
		if patch.DiagnosedDate != nil {
			d := *patch.DiagnosedDate
			f.DiagnosedDate = &d
			changed["diagnosed_date"] = d.Format("2006-01-02")
		}
		setText(&f.Notes, patch.Notes, "notes", changed)
		if patch.IsActive != nil && *patch.IsActive != f.IsActive {
			f.IsActive = *patch.IsActive
			changed["is_active"] = f.IsActive
		}

		if err := s.factors.Update(ctx, f); err != nil {
			return fmt.Errorf("update risk factor: %w", err)
		}
		if wasActive && !f.IsActive {
			err = b.add(s.timeline.LogRiskFactorRemoved(ctx, f))
		} else {
			err = b.add(s.timeline.LogRiskFactorUpdated(ctx, f, changed))
		}
		if err != nil {
			return err
		}
		if err := s.recomputeByID(ctx, f.MedicalRecordID, b); err != nil {
			return err
		}
		out = f
		return nil
	})
	return out, err
}

// RemoveRiskFactor deactivates a factor. Removing an inactive factor is a no-op.
func (s *Service) RemoveRiskFactor(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		f, err := s.factors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !f.IsActive {
			return nil
		}
		f.Deactivate()
		if err := s.factors.Update(ctx, f); err != nil {
			return fmt.Errorf("deactivate risk factor: %w", err)
		}
		if err := b.add(s.timeline.LogRiskFactorRemoved(ctx, f)); err != nil {
			return err
		}
		return s.recomputeByID(ctx, f.MedicalRecordID, b)
	})
}

func (s *Service) recomputeByID(ctx context.Context, recordID uuid.UUID, b *eventBatch) error {
	r, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	return s.recompute(ctx, r, b)
}

// RiskFactorStats counts a record's factors.
type RiskFactorStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Critical int `json:"critical"`
	High     int `json:"high"`
}

func (s *Service) RiskFactorStats(ctx context.Context, recordID uuid.UUID) (*RiskFactorStats, error) {
	all, err := s.factors.ListByRecord(ctx, recordID, false)
	if err != nil {
		return nil, err
	}
	st := &RiskFactorStats{Total: len(all)}
	for _, f := range all {
		if !f.IsActive {
			st.Inactive++
			continue
		}
		st.Active++
		switch f.Severity {
		case SeverityCritical:
			st.Critical++
		case SeverityHigh:
			st.High++
		}
	}
	return st, nil
}

// ── Prevention actions ──

func (s *Service) AddPreventionAction(ctx context.Context, a *PreventionAction) error {
	if a.MedicalRecordID == uuid.Nil {
		return apperr.Required("medical_record_id")
	}
	if strings.TrimSpace(a.ActionType) == "" {
		return apperr.Required("action_type")
	}
	now := s.now()
	if a.ActionDate.IsZero() {
		a.ActionDate = now
	}
	target := StatusPending
	if a.Status != "" {
		st, err := ParseActionStatus(string(a.Status))
		if err != nil {
			return err
		}
		target = st
	}
	a.Status = StatusPending
	a.CompletedDate = nil
	if _, err := a.TransitionTo(target, now); err != nil {
		return err
	}

	return s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		if _, err := s.records.GetByID(ctx, a.MedicalRecordID); err != nil {
			return err
		}
		if err := s.actions.Create(ctx, a); err != nil {
			return fmt.Errorf("create prevention action: %w", err)
		}
		return b.add(s.timeline.LogPreventionActionAdded(ctx, a))
	})
}

func (s *Service) GetPreventionAction(ctx context.Context, id uuid.UUID) (*PreventionAction, error) {
	return s.actions.GetByID(ctx, id)
}

// ListPreventionActions lists a record's actions, optionally by status.
func (s *Service) ListPreventionActions(ctx context.Context, recordID uuid.UUID, status ActionStatus) ([]*PreventionAction, error) {
	return s.actions.ListByRecord(ctx, recordID, status)
}

// ListPreventionActionsBetween returns actions dated at or after start and
// before end.
func (s *Service) ListPreventionActionsBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*PreventionAction, error) {
	if end.Before(start) {
		return nil, apperr.BadRequest("end must not be before start")
	}
	return s.actions.ListByRecordBetween(ctx, recordID, start, end)
}

type PreventionActionPatch struct {
	ActionType  *string    `json:"action_type"`
	Description *string    `json:"description"`
	ActionDate  *time.Time `json:"action_date"`
	Status      *string    `json:"status"`
	Result      *string    `json:"result"`
	Frequency   *string    `json:"frequency"`
}

func (s *Service) UpdatePreventionAction(ctx context.Context, id uuid.UUID, patch PreventionActionPatch) (*PreventionAction, error) {
	var out *PreventionAction
	err := s.mutate(ctx, func(ctx context.Context, b *eventBatch) error {
		a, err := s.actions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from := a.Status
		changed := map[string]interface{}{}
		if patch.Status != nil {
			st, err := ParseActionStatus(*patch.Status)
			if err != nil {
				return err
			}
			moved, err := a.TransitionTo(st, s.now())
			if err != nil {
				return err
			}
			if moved {
				changed["status"] = string(st)
				s.metrics.PreventionTransition(string(from), string(st))
			}
		}
		if patch.ActionType != nil {
			if strings.TrimSpace(*patch.ActionType) == "" {
				return apperr.Required("action_type")
			}
			if *patch.ActionType != a.ActionType {
				a.ActionType = *patch.ActionType
				changed["action_type"] = a.ActionType
			}
		}
		if patch.ActionDate != nil && !patch.ActionDate.Equal(a.ActionDate) {
			a.ActionDate = *patch.ActionDate
			changed["action_date"] = a.ActionDate.Format(time.RFC3339)
		}
		setText(&a.Description, patch.Description, "description", changed)
		setText(&a.Result, patch.Result, "result", changed)
		setText(&a.Frequency, patch.Frequency, "frequency", changed)

		if err := s.actions.Update(ctx, a); err != nil {
			return fmt.Errorf("update prevention action: %w", err)
		}
		if err := b.add(s.timeline.LogPreventionActionUpdated(ctx, a, changed)); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (s *Service) UpdatePreventionActionStatus(ctx context.Context, id uuid.UUID, status string) (*PreventionAction, error) {
	return s.UpdatePreventionAction(ctx, id, PreventionActionPatch{Status: &status})
}

func (s *Service) CompletePreventionAction(ctx context.Context, id uuid.UUID) (*PreventionAction, error) {
	return s.UpdatePreventionActionStatus(ctx, id, string(StatusCompleted))
}

func (s *Service) DeletePreventionAction(ctx context.Context, id uuid.UUID) error {
	if _, err := s.actions.GetByID(ctx, id); err != nil {
		return err
	}
	return s.actions.Delete(ctx, id)
}

func (s *Service) PreventionStats(ctx context.Context, recordID uuid.UUID) (AdherenceStats, error) {
	actions, err := s.actions.ListByRecord(ctx, recordID, "")
	if err != nil {
		return AdherenceStats{}, err
	}
	return ComputeAdherence(actions), nil
}

// ── Timeline ──

func (s *Service) Timeline(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*TimelineEvent, int, error) {
	return s.timeline.ListByRecord(ctx, recordID, limit, offset)
}

func (s *Service) TimelineByType(ctx context.Context, recordID uuid.UUID, eventType EventType) ([]*TimelineEvent, error) {
	return s.timeline.ListByType(ctx, recordID, eventType)
}

func (s *Service) TimelineBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*TimelineEvent, error) {
	if end.Before(start) {
		return nil, apperr.BadRequest("end must not be before start")
	}
	return s.timeline.ListBetween(ctx, recordID, start, end)
}
