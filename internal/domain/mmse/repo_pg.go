package mmse

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const testCols = `id, patient_name, patient_id, orientation, registration, attention, recall,
	language, total_score, interpretation, test_date, notes, created_at, updated_at`

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	err := row.Scan(&t.ID, &t.PatientName, &t.PatientID, &t.OrientationScore, &t.RegistrationScore,
		&t.AttentionScore, &t.RecallScore, &t.LanguageScore, &t.TotalScore, &t.Interpretation,
		&t.TestDate, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Test) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO mmse_tests (id, patient_name, patient_id, orientation, registration, attention,
			recall, language, total_score, interpretation, test_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		t.ID, t.PatientName, t.PatientID, t.OrientationScore, t.RegistrationScore, t.AttentionScore,
		t.RecallScore, t.LanguageScore, t.TotalScore, t.Interpretation, t.TestDate, t.Notes,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Test, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM mmse_tests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("MMSE test", id.String())
	}
	return t, err
}

func (r *repoPG) Update(ctx context.Context, t *Test) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE mmse_tests SET patient_name=$2, patient_id=$3, orientation=$4, registration=$5,
			attention=$6, recall=$7, language=$8, total_score=$9, interpretation=$10,
			test_date=$11, notes=$12, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.PatientName, t.PatientID, t.OrientationScore, t.RegistrationScore,
		t.AttentionScore, t.RecallScore, t.LanguageScore, t.TotalScore, t.Interpretation,
		t.TestDate, t.Notes,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("MMSE test", t.ID.String())
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM mmse_tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("MMSE test", id.String())
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Test, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM mmse_tests`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+testCols+` FROM mmse_tests
		ORDER BY test_date DESC, created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanAll(rows)
	return items, total, err
}

func (r *repoPG) ListByPatientName(ctx context.Context, name string) ([]*Test, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+testCols+` FROM mmse_tests
		WHERE LOWER(patient_name) = LOWER($1)
		ORDER BY test_date DESC, created_at DESC`, name)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

func scanAll(rows pgx.Rows) ([]*Test, error) {
	defer rows.Close()
	var items []*Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
