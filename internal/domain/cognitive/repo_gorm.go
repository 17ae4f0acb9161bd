package cognitive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

// AutoMigrate creates or updates the activity catalogue and session tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate cognitive: %w", err)
	}
	return nil
}

func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id.String())
	}
	return err
}

// -- Activities --

type activityRepoGorm struct{ db *gorm.DB }

func NewActivityRepoGorm(gdb *gorm.DB) ActivityRepository {
	return &activityRepoGorm{db: gdb}
}

func (r *activityRepoGorm) Create(ctx context.Context, a *Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *activityRepoGorm) GetByID(ctx context.Context, id uuid.UUID) (*Activity, error) {
	var a Activity
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "CognitiveActivity", id)
	}
	return &a, nil
}

func (r *activityRepoGorm) Update(ctx context.Context, a *Activity) error {
	res := r.db.WithContext(ctx).Save(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("CognitiveActivity", a.ID.String())
	}
	return nil
}

func (r *activityRepoGorm) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&Activity{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("CognitiveActivity", id.String())
	}
	return nil
}

func (r *activityRepoGorm) List(ctx context.Context, f ActivityFilter) ([]*Activity, error) {
	q := r.db.WithContext(ctx).Model(&Activity{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	var items []*Activity
	err := q.Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *activityRepoGorm) Summary(ctx context.Context) (*CatalogueSummary, error) {
	var rows []struct {
		Type   ActivityType
		Total  int
		Active int
	}
	err := r.db.WithContext(ctx).Model(&Activity{}).
		Select("type, COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sum := &CatalogueSummary{ByType: map[ActivityType]int{}}
	for _, row := range rows {
		sum.Total += row.Total
		sum.Active += row.Active
		sum.ByType[row.Type] = row.Total
	}
	return sum, nil
}

// -- Sessions --

type sessionRepoGorm struct{ db *gorm.DB }

func NewSessionRepoGorm(gdb *gorm.DB) SessionRepository {
	return &sessionRepoGorm{db: gdb}
}

func (r *sessionRepoGorm) Create(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Omit("Activity").Create(s).Error
}

func (r *sessionRepoGorm) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).Preload("Activity").First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "CognitiveSession", id)
	}
	return &s, nil
}

func (r *sessionRepoGorm) Update(ctx context.Context, s *Session) error {
	res := r.db.WithContext(ctx).Omit("Activity").Save(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("CognitiveSession", s.ID.String())
	}
	return nil
}

func (r *sessionRepoGorm) ListByPatient(ctx context.Context, patientID uuid.UUID, status SessionStatus) ([]*Session, error) {
	q := r.db.WithContext(ctx).Preload("Activity").Where("patient_id = ?", patientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var items []*Session
	err := q.Order("started_at DESC").Find(&items).Error
	return items, err
}

func (r *sessionRepoGorm) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Session{}).Count(&n).Error
	return int(n), err
}
