package medical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
	"github.com/alzcare/alzcare/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type pgBase struct{ pool *pgxpool.Pool }

func (b pgBase) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return b.pool
}

func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource, id.String())
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, resource string, id uuid.UUID) error {
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resource, id.String())
	}
	return nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =========== MedicalRecord Repository ===========

type medicalRecordRepoPG struct{ pgBase }

func NewMedicalRecordRepoPG(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepoPG{pgBase{pool}}
}

const recordCols = `id, patient_id, age, gender, education_level, family_history,
	risk_factors_summary, current_symptoms, diagnosis_notes,
	risk_score, risk_level, last_risk_calculation, created_at, updated_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var r MedicalRecord
	err := row.Scan(&r.ID, &r.PatientID, &r.Age, &r.Gender, &r.EducationLevel, &r.FamilyHistory,
		&r.RiskFactorsSummary, &r.CurrentSymptoms, &r.DiagnosisNotes,
		&r.RiskScore, &r.RiskLevel, &r.LastRiskCalculation, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *medicalRecordRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, age, gender, education_level, family_history,
			risk_factors_summary, current_symptoms, diagnosis_notes, risk_score, risk_level, last_risk_calculation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.Age, m.Gender, m.EducationLevel, m.FamilyHistory,
		m.RiskFactorsSummary, m.CurrentSymptoms, m.DiagnosisNotes, m.RiskScore, m.RiskLevel, m.LastRiskCalculation,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *medicalRecordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	m, err := scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "medical record", id)
	}
	return m, nil
}

func (r *medicalRecordRepoPG) Update(ctx context.Context, m *MedicalRecord) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_records SET age=$2, gender=$3, education_level=$4, family_history=$5,
			risk_factors_summary=$6, current_symptoms=$7, diagnosis_notes=$8,
			risk_score=$9, risk_level=$10, last_risk_calculation=$11, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Age, m.Gender, m.EducationLevel, m.FamilyHistory,
		m.RiskFactorsSummary, m.CurrentSymptoms, m.DiagnosisNotes,
		m.RiskScore, m.RiskLevel, m.LastRiskCalculation,
	).Scan(&m.UpdatedAt)
	return notFound(err, "medical record", m.ID)
}

// Delete relies on ON DELETE CASCADE for owned rows.
func (r *medicalRecordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "medical record", id)
}

var recordSortColumns = map[string]string{
	"created_at": "created_at",
	"age":        "age",
	"risk_score": "risk_score",
}

func recordWhere(f RecordFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(col string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.RiskLevel != "" {
		add("risk_level", f.RiskLevel)
	}
	if f.Gender != "" {
		add("gender", f.Gender)
	}
	if f.FamilyHistory != "" {
		add("family_history", f.FamilyHistory)
	}
	if f.PatientID != uuid.Nil {
		add("patient_id", f.PatientID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *medicalRecordRepoPG) List(ctx context.Context, f RecordFilter, p pagination.Params) ([]*MedicalRecord, int, error) {
	where, args := recordWhere(f)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + recordCols + ` FROM medical_records` + where + ` ` +
		p.OrderBy(recordSortColumns, "created_at") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanRecord)
	return items, total, err
}

func (r *medicalRecordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+` FROM medical_records WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRecord)
}

func (r *medicalRecordRepoPG) Stats(ctx context.Context) (*RecordStats, error) {
	st := &RecordStats{RiskDistribution: map[RiskLevel]int{}}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE family_history = 'Yes'),
			COUNT(*) FILTER (WHERE gender = 'Male'),
			COUNT(*) FILTER (WHERE gender = 'Female')
		FROM medical_records`).Scan(&st.TotalRecords, &st.WithFamilyHistory, &st.MaleCount, &st.FemaleCount)
	if err != nil {
		return nil, err
	}
	for _, lvl := range riskLevels {
		st.RiskDistribution[lvl] = 0
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT risk_level, COUNT(*) FROM medical_records GROUP BY risk_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			lvl RiskLevel
			n   int
		)
		if err := rows.Scan(&lvl, &n); err != nil {
			return nil, err
		}
		st.RiskDistribution[lvl] = n
	}
	return st, rows.Err()
}

// =========== RiskFactor Repository ===========

type riskFactorRepoPG struct{ pgBase }

func NewRiskFactorRepoPG(pool *pgxpool.Pool) RiskFactorRepository {
	return &riskFactorRepoPG{pgBase{pool}}
}

const factorCols = `id, medical_record_id, factor_type, severity, diagnosed_date, notes, is_active, created_at, updated_at`

func scanFactor(row pgx.Row) (*RiskFactor, error) {
	var f RiskFactor
	err := row.Scan(&f.ID, &f.MedicalRecordID, &f.FactorType, &f.Severity, &f.DiagnosedDate,
		&f.Notes, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	return &f, err
}

func (r *riskFactorRepoPG) Create(ctx context.Context, f *RiskFactor) error {
	f.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO risk_factors (id, medical_record_id, factor_type, severity, diagnosed_date, notes, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		f.ID, f.MedicalRecordID, f.FactorType, f.Severity, f.DiagnosedDate, f.Notes, f.IsActive,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *riskFactorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RiskFactor, error) {
	f, err := scanFactor(r.conn(ctx).QueryRow(ctx, `SELECT `+factorCols+` FROM risk_factors WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "risk factor", id)
	}
	return f, nil
}

func (r *riskFactorRepoPG) Update(ctx context.Context, f *RiskFactor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE risk_factors SET factor_type=$2, severity=$3, diagnosed_date=$4, notes=$5,
			is_active=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.FactorType, f.Severity, f.DiagnosedDate, f.Notes, f.IsActive,
	).Scan(&f.UpdatedAt)
	return notFound(err, "risk factor", f.ID)
}

func (r *riskFactorRepoPG) ListByRecord(ctx context.Context, recordID uuid.UUID, activeOnly bool) ([]*RiskFactor, error) {
	q := `SELECT ` + factorCols + ` FROM risk_factors WHERE medical_record_id = $1`
	if activeOnly {
		q += ` AND is_active = TRUE`
	}
	rows, err := r.conn(ctx).Query(ctx, q+` ORDER BY created_at DESC`, recordID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFactor)
}

// =========== PreventionAction Repository ===========

type preventionActionRepoPG struct{ pgBase }

func NewPreventionActionRepoPG(pool *pgxpool.Pool) PreventionActionRepository {
	return &preventionActionRepoPG{pgBase{pool}}
}

const actionCols = `id, medical_record_id, action_type, description, action_date, status,
	result, frequency, completed_date, created_at, updated_at`

func scanAction(row pgx.Row) (*PreventionAction, error) {
	var a PreventionAction
	err := row.Scan(&a.ID, &a.MedicalRecordID, &a.ActionType, &a.Description, &a.ActionDate, &a.Status,
		&a.Result, &a.Frequency, &a.CompletedDate, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *preventionActionRepoPG) Create(ctx context.Context, a *PreventionAction) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prevention_actions (id, medical_record_id, action_type, description, action_date,
			status, result, frequency, completed_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		a.ID, a.MedicalRecordID, a.ActionType, a.Description, a.ActionDate,
		a.Status, a.Result, a.Frequency, a.CompletedDate,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *preventionActionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PreventionAction, error) {
	a, err := scanAction(r.conn(ctx).QueryRow(ctx, `SELECT `+actionCols+` FROM prevention_actions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "prevention action", id)
	}
	return a, nil
}

func (r *preventionActionRepoPG) Update(ctx context.Context, a *PreventionAction) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE prevention_actions SET action_type=$2, description=$3, action_date=$4, status=$5,
			result=$6, frequency=$7, completed_date=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.ActionType, a.Description, a.ActionDate, a.Status,
		a.Result, a.Frequency, a.CompletedDate,
	).Scan(&a.UpdatedAt)
	return notFound(err, "prevention action", a.ID)
}

func (r *preventionActionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prevention_actions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag, "prevention action", id)
}

func (r *preventionActionRepoPG) ListByRecord(ctx context.Context, recordID uuid.UUID, status ActionStatus) ([]*PreventionAction, error) {
	q := `SELECT ` + actionCols + ` FROM prevention_actions WHERE medical_record_id = $1`
	args := []interface{}{recordID}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, status)
	}
	rows, err := r.conn(ctx).Query(ctx, q+` ORDER BY action_date DESC`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAction)
}

func (r *preventionActionRepoPG) ListByRecordBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*PreventionAction, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+actionCols+` FROM prevention_actions
		WHERE medical_record_id = $1 AND action_date >= $2 AND action_date < $3
		ORDER BY action_date DESC`, recordID, start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAction)
}

// =========== Timeline Repository ===========

type timelineRepoPG struct{ pgBase }

func NewTimelineRepoPG(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepoPG{pgBase{pool}}
}

const timelineCols = `id, seq, medical_record_id, event_date, event_type, description, changed_fields, performed_by, created_at`

func scanTimeline(row pgx.Row) (*TimelineEvent, error) {
	var ev TimelineEvent
	err := row.Scan(&ev.ID, &ev.Seq, &ev.MedicalRecordID, &ev.EventDate, &ev.EventType,
		&ev.Description, &ev.ChangedFields, &ev.PerformedBy, &ev.CreatedAt)
	return &ev, err
}

func (r *timelineRepoPG) Append(ctx context.Context, ev *TimelineEvent) error {
	ev.ID = uuid.New()
	var changed interface{}
	if len(ev.ChangedFields) > 0 {
		changed = ev.ChangedFields
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_timeline (id, medical_record_id, event_date, event_type, description, changed_fields, performed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING seq, created_at`,
		ev.ID, ev.MedicalRecordID, ev.EventDate, ev.EventType, ev.Description, changed, ev.PerformedBy,
	).Scan(&ev.Seq, &ev.CreatedAt)
}

const timelineOrder = ` ORDER BY event_date DESC, seq DESC`

func (r *timelineRepoPG) ListByRecord(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*TimelineEvent, int, error) {
	total, err := r.CountByRecord(ctx, recordID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+timelineCols+` FROM medical_timeline WHERE medical_record_id = $1`+
		timelineOrder+` LIMIT $2 OFFSET $3`, recordID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanTimeline)
	return items, total, err
}

func (r *timelineRepoPG) ListByType(ctx context.Context, recordID uuid.UUID, eventType EventType) ([]*TimelineEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+timelineCols+` FROM medical_timeline
		WHERE medical_record_id = $1 AND event_type = $2`+timelineOrder, recordID, eventType)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTimeline)
}

func (r *timelineRepoPG) ListBetween(ctx context.Context, recordID uuid.UUID, start, end time.Time) ([]*TimelineEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+timelineCols+` FROM medical_timeline
		WHERE medical_record_id = $1 AND event_date >= $2 AND event_date < $3`+timelineOrder, recordID, start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTimeline)
}

func (r *timelineRepoPG) CountByRecord(ctx context.Context, recordID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_timeline WHERE medical_record_id = $1`, recordID).Scan(&n)
	return n, err
}
