package medical

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alzcare/alzcare/pkg/pagination"
)

// RecordFilter narrows a medical record listing. Zero values match everything.
type RecordFilter struct {
	RiskLevel     RiskLevel
	Gender        Gender
	FamilyHistory FamilyHistory
	PatientID     uuid.UUID
}

// RecordStats aggregates all medical records.
type RecordStats struct {
	TotalRecords      int               `json:"total_records"`
	WithFamilyHistory int               `json:"with_family_history"`
	MaleCount         int               `json:"male_count"`
	FemaleCount       int               `json:"female_count"`
	RiskDistribution  map[RiskLevel]int `json:"risk_distribution"`
}

type MedicalRecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter RecordFilter, p pagination.Params) ([]*MedicalRecord, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	Stats(ctx context.Context) (*RecordStats, error)
}

// RiskFactorRepository has no hard delete; removal is an Update with
// IsActive cleared.
type RiskFactorRepository interface {
	Create(ctx context.Context, f *RiskFactor) error
	GetByID(ctx context.Context, id uuid.UUID) (*RiskFactor, error)
	Update(ctx context.Context, f *RiskFactor) error
	ListByRecord(ctx context.Context, recordID uuid.UUID, activeOnly bool) ([]*RiskFactor, error)
}

type PreventionActionRepository interface {
	Create(ctx context.Context, a *PreventionAction) error
	GetByID(ctx context.Context, id uuid.UUID) (*PreventionAction, error)
	Update(ctx context.Context, a *PreventionAction) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRecord(ctx context.Context, recordID uuid.UUID, status ActionStatus) ([]*PreventionAction, error)
	ListByRecordBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*PreventionAction, error)
}

// TimelineRepository is append-only. Listings are newest first with the
// insertion sequence breaking ties.
type TimelineRepository interface {
	Append(ctx context.Context, ev *TimelineEvent) error
	ListByRecord(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*TimelineEvent, int, error)
	ListByType(ctx context.Context, recordID uuid.UUID, eventType EventType) ([]*TimelineEvent, error)
	ListBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*TimelineEvent, error)
	CountByRecord(ctx context.Context, recordID uuid.UUID) (int, error)
}
