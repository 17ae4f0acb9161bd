package medical

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type FamilyHistory string

const (
	FamilyHistoryYes FamilyHistory = "Yes"
	FamilyHistoryNo  FamilyHistory = "No"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

type ActionStatus string

const (
	StatusPending    ActionStatus = "PENDING"
	StatusInProgress ActionStatus = "IN_PROGRESS"
	StatusCompleted  ActionStatus = "COMPLETED"
	StatusCancelled  ActionStatus = "CANCELLED"
	StatusSkipped    ActionStatus = "SKIPPED"
)

type EventType string

const (
	EventRiskFactorAdded         EventType = "RISK_FACTOR_ADDED"
	EventRiskFactorUpdated       EventType = "RISK_FACTOR_UPDATED"
	EventRiskFactorRemoved       EventType = "RISK_FACTOR_REMOVED"
	EventPreventionActionAdded   EventType = "PREVENTION_ACTION_ADDED"
	EventPreventionActionUpdated EventType = "PREVENTION_ACTION_UPDATED"
	EventMedicalRecordUpdated    EventType = "MEDICAL_RECORD_UPDATED"
	EventRiskScoreUpdated        EventType = "RISK_SCORE_UPDATED"
)

var (
	genders         = []Gender{GenderMale, GenderFemale, GenderOther}
	familyHistories = []FamilyHistory{FamilyHistoryYes, FamilyHistoryNo}
	severities      = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	riskLevels      = []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical}
	actionStatuses  = []ActionStatus{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusSkipped}
	eventTypes      = []EventType{
		EventRiskFactorAdded, EventRiskFactorUpdated, EventRiskFactorRemoved,
		EventPreventionActionAdded, EventPreventionActionUpdated,
		EventMedicalRecordUpdated, EventRiskScoreUpdated,
	}
)

// parseEnum matches raw against values case-insensitively and returns the
// canonical spelling.
func parseEnum[T ~string](field, raw string, values []T) (T, error) {
	trimmed := strings.TrimSpace(raw)
	for _, v := range values {
		if strings.EqualFold(trimmed, string(v)) {
			return v, nil
		}
	}
	accepted := make([]string, len(values))
	for i, v := range values {
		accepted[i] = string(v)
	}
	var zero T
	return zero, apperr.InvalidEnum(field, raw, accepted)
}

func ParseGender(s string) (Gender, error) { return parseEnum("gender", s, genders) }

func ParseFamilyHistory(s string) (FamilyHistory, error) {
	return parseEnum("family_history", s, familyHistories)
}

func ParseSeverity(s string) (Severity, error)   { return parseEnum("severity", s, severities) }
func ParseRiskLevel(s string) (RiskLevel, error) { return parseEnum("risk_level", s, riskLevels) }

func ParseActionStatus(s string) (ActionStatus, error) {
	return parseEnum("status", s, actionStatuses)
}

func ParseEventType(s string) (EventType, error) { return parseEnum("event_type", s, eventTypes) }

// MedicalRecord is the aggregate root for risk factors, prevention actions
// and timeline events. RiskScore and RiskLevel are derived; see UpdateRiskScore.
type MedicalRecord struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	PatientID           uuid.UUID     `db:"patient_id" json:"patient_id"`
	Age                 *int          `db:"age" json:"age,omitempty"`
	Gender              Gender        `db:"gender" json:"gender"`
	EducationLevel      *string       `db:"education_level" json:"education_level,omitempty"`
	FamilyHistory       FamilyHistory `db:"family_history" json:"family_history"`
	RiskFactorsSummary  *string       `db:"risk_factors_summary" json:"risk_factors_summary,omitempty"`
	CurrentSymptoms     *string       `db:"current_symptoms" json:"current_symptoms,omitempty"`
	DiagnosisNotes      *string       `db:"diagnosis_notes" json:"diagnosis_notes,omitempty"`
	RiskScore           float64       `db:"risk_score" json:"risk_score"`
	RiskLevel           RiskLevel     `db:"risk_level" json:"risk_level"`
	LastRiskCalculation *time.Time    `db:"last_risk_calculation" json:"last_risk_calculation,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

const maxAge = 130

// Normalize fills defaults and canonicalizes enum spellings, rejecting
// values outside their enumerations.
func (r *MedicalRecord) Normalize() error {
	if r.PatientID == uuid.Nil {
		return apperr.Required("patient_id")
	}
	if r.Gender == "" {
		return apperr.Required("gender")
	}
	g, err := ParseGender(string(r.Gender))
	if err != nil {
		return err
	}
	r.Gender = g
	if r.FamilyHistory == "" {
		r.FamilyHistory = FamilyHistoryNo
	}
	fh, err := ParseFamilyHistory(string(r.FamilyHistory))
	if err != nil {
		return err
	}
	r.FamilyHistory = fh
	if r.Age != nil && (*r.Age < 0 || *r.Age > maxAge) {
		return apperr.Validation("age must be between 0 and 130", map[string]string{"age": "out of range"})
	}
	if r.RiskLevel == "" {
		r.RiskLevel = RiskLevelLow
	}
	return nil
}

// RiskFactor is a tombstoned ledger entry: removal clears IsActive and the
// row stays.
type RiskFactor struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	MedicalRecordID uuid.UUID  `db:"medical_record_id" json:"medical_record_id"`
	FactorType      string     `db:"factor_type" json:"factor_type"`
	Severity        Severity   `db:"severity" json:"severity"`
	DiagnosedDate   *time.Time `db:"diagnosed_date" json:"diagnosed_date,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (f *RiskFactor) Deactivate() { f.IsActive = false }

// ActiveFactors filters out deactivated entries.
func ActiveFactors(factors []*RiskFactor) []*RiskFactor {
	active := make([]*RiskFactor, 0, len(factors))
	for _, f := range factors {
		if f != nil && f.IsActive {
			active = append(active, f)
		}
	}
	return active
}

type PreventionAction struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	MedicalRecordID uuid.UUID    `db:"medical_record_id" json:"medical_record_id"`
	ActionType      string       `db:"action_type" json:"action_type"`
	Description     *string      `db:"description" json:"description,omitempty"`
	ActionDate      time.Time    `db:"action_date" json:"action_date"`
	Status          ActionStatus `db:"status" json:"status"`
	Result          *string      `db:"result" json:"result,omitempty"`
	Frequency       *string      `db:"frequency" json:"frequency,omitempty"`
	CompletedDate   *time.Time   `db:"completed_date" json:"completed_date,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// TimelineEvent is an append-only history entry. Seq is the insertion
// sequence used to break ties between events with the same EventDate.
type TimelineEvent struct {
	ID              uuid.UUID              `db:"id" json:"id"`
	Seq             int64                  `db:"seq" json:"-"`
	MedicalRecordID uuid.UUID              `db:"medical_record_id" json:"medical_record_id"`
	EventDate       time.Time              `db:"event_date" json:"event_date"`
	EventType       EventType              `db:"event_type" json:"event_type"`
	Description     string                 `db:"description" json:"description"`
	ChangedFields   map[string]interface{} `db:"changed_fields" json:"changed_fields,omitempty"`
	PerformedBy     *string                `db:"performed_by" json:"performed_by,omitempty"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
}
