package wellness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
)

type gormTxKey struct{}

type gormTransactor struct{ db *gorm.DB }

// NewTransactor runs fn inside a GORM transaction shared by every repository
// in this package through the context.
func NewTransactor(gdb *gorm.DB) db.Transactor {
	return &gormTransactor{db: gdb}
}

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

func conn(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return base.WithContext(ctx)
}

// AutoMigrate creates or updates the prevention service tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate wellness: %w", err)
	}
	return nil
}

func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource, id.String())
	}
	return err
}

// -- Profiles --

type profileRepoGorm struct{ db *gorm.DB }

func NewProfileRepoGorm(gdb *gorm.DB) ProfileRepository {
	return &profileRepoGorm{db: gdb}
}

func (r *profileRepoGorm) Create(ctx context.Context, p *HealthProfile) error {
	return conn(ctx, r.db).Create(p).Error
}

func (r *profileRepoGorm) GetByID(ctx context.Context, id uuid.UUID) (*HealthProfile, error) {
	var p HealthProfile
	if err := conn(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "HealthProfile", id)
	}
	return &p, nil
}

func (r *profileRepoGorm) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*HealthProfile, error) {
	var p HealthProfile
	if err := conn(ctx, r.db).First(&p, "patient_id = ?", patientID).Error; err != nil {
		return nil, notFound(err, "HealthProfile for patient", patientID)
	}
	return &p, nil
}

func (r *profileRepoGorm) ExistsByPatientID(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&HealthProfile{}).Where("patient_id = ?", patientID).Count(&n).Error
	return n > 0, err
}

func (r *profileRepoGorm) Update(ctx context.Context, p *HealthProfile) error {
	res := conn(ctx, r.db).Save(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("HealthProfile", p.ID.String())
	}
	return nil
}

func (r *profileRepoGorm) Delete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Delete(&HealthProfile{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("HealthProfile", id.String())
	}
	return nil
}

func (r *profileRepoGorm) List(ctx context.Context, limit, offset int) ([]*HealthProfile, int, error) {
	var total int64
	q := conn(ctx, r.db).Model(&HealthProfile{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []*HealthProfile
	err := conn(ctx, r.db).Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, int(total), err
}

// -- Recommendations --

type recommendationRepoGorm struct{ db *gorm.DB }

func NewRecommendationRepoGorm(gdb *gorm.DB) RecommendationRepository {
	return &recommendationRepoGorm{db: gdb}
}

func (r *recommendationRepoGorm) Create(ctx context.Context, recs ...*HealthRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return conn(ctx, r.db).Omit("HealthProfile").Create(recs).Error
}

func (r *recommendationRepoGorm) GetByID(ctx context.Context, id uuid.UUID) (*HealthRecommendation, error) {
	var rec HealthRecommendation
	if err := conn(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "HealthRecommendation", id)
	}
	return &rec, nil
}

func (r *recommendationRepoGorm) Update(ctx context.Context, rec *HealthRecommendation) error {
	res := conn(ctx, r.db).Omit("HealthProfile").Save(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("HealthRecommendation", rec.ID.String())
	}
	return nil
}

func (r *recommendationRepoGorm) Delete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Delete(&HealthRecommendation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("HealthRecommendation", id.String())
	}
	return nil
}

func (r *recommendationRepoGorm) ListByProfile(ctx context.Context, profileID uuid.UUID, f RecommendationFilter) ([]*HealthRecommendation, error) {
	q := conn(ctx, r.db).Where("health_profile_id = ?", profileID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var items []*HealthRecommendation
	err := q.Order("created_at ASC").Find(&items).Error
	return items, err
}

// -- Activities --

type activityRepoGorm struct{ db *gorm.DB }

func NewActivityRepoGorm(gdb *gorm.DB) ActivityRepository {
	return &activityRepoGorm{db: gdb}
}

func (r *activityRepoGorm) Create(ctx context.Context, a *WellnessActivity) error {
	return conn(ctx, r.db).Omit("HealthProfile").Create(a).Error
}

func (r *activityRepoGorm) GetByID(ctx context.Context, id uuid.UUID) (*WellnessActivity, error) {
	var a WellnessActivity
	if err := conn(ctx, r.db).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "WellnessActivity", id)
	}
	return &a, nil
}

func (r *activityRepoGorm) Update(ctx context.Context, a *WellnessActivity) error {
	res := conn(ctx, r.db).Omit("HealthProfile").Save(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("WellnessActivity", a.ID.String())
	}
	return nil
}

func (r *activityRepoGorm) Delete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Delete(&WellnessActivity{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("WellnessActivity", id.String())
	}
	return nil
}

func (r *activityRepoGorm) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*WellnessActivity, error) {
	var items []*WellnessActivity
	err := conn(ctx, r.db).Where("health_profile_id = ?", profileID).
		Order("activity_date DESC").Find(&items).Error
	return items, err
}

func (r *activityRepoGorm) CountSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error) {
	var n int64
	err := conn(ctx, r.db).Model(&WellnessActivity{}).
		Where("health_profile_id = ? AND activity_date > ?", profileID, since).
		Count(&n).Error
	return int(n), err
}

func (r *activityRepoGorm) SumDuration(ctx context.Context, profileID uuid.UUID) (int, error) {
	var total int
	err := conn(ctx, r.db).Model(&WellnessActivity{}).
		Where("health_profile_id = ?", profileID).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Scan(&total).Error
	return total, err
}
