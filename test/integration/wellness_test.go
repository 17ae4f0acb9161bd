//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/alzcare/alzcare/internal/domain/wellness"
	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/db"
)

type staticRisk struct{ summary *wellness.RiskSummary }

func (s staticRisk) CurrentRisk(context.Context, uuid.UUID) (*wellness.RiskSummary, error) {
	return s.summary, nil
}

func openWellness(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenGorm(db.GormConfig{DSN: globalDB.ConnStr, MaxOpenConns: 5}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	if err := wellness.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gdb
}

func newWellnessService(gdb *gorm.DB, risk wellness.RiskSource) *wellness.Service {
	return wellness.NewService(
		wellness.NewProfileRepoGorm(gdb),
		wellness.NewRecommendationRepoGorm(gdb),
		wellness.NewActivityRepoGorm(gdb),
		wellness.NewTransactor(gdb),
		wellness.WithRiskSource(risk),
	)
}

func TestWellness_ProfileRecommendationsAndDashboard(t *testing.T) {
	ctx := context.Background()
	gdb := openWellness(t)
	recordID := uuid.New()
	svc := newWellnessService(gdb, staticRisk{&wellness.RiskSummary{MedicalRecordID: recordID, RiskScore: 42.5, RiskLevel: "MEDIUM"}})

	patientID := uuid.New()
	level, sleep, smoking, diet := "SEDENTARY", 5.0, true, "poor"
	profile, err := svc.CreateProfile(ctx, wellness.ProfileInput{
		PatientID:             &patientID,
		PhysicalActivityLevel: &level,
		SleepHoursPerNight:    &sleep,
		SmokingStatus:         &smoking,
		DietQuality:           &diet,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if profile.WellnessScore == nil || *profile.WellnessScore != wellness.Score(profile) {
		t.Errorf("expected stored score to match Score, got %v", profile.WellnessScore)
	}
	if _, err := svc.CreateProfile(ctx, wellness.ProfileInput{PatientID: &patientID}); !apperr.IsConflict(err) {
		t.Errorf("expected conflict for duplicate patient, got %v", err)
	}

	recs, err := svc.GenerateRecommendations(ctx, profile.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	byCategory := map[wellness.Category]*wellness.HealthRecommendation{}
	for _, r := range recs {
		byCategory[r.Category] = r
	}
	for _, c := range []wellness.Category{wellness.CategoryPhysicalActivity, wellness.CategorySleep,
		wellness.CategoryLifestyleChange, wellness.CategoryMedicalCheckup} {
		if byCategory[c] == nil {
			t.Errorf("expected a %s recommendation", c)
		}
	}
	if ev := byCategory[wellness.CategorySleep]; ev != nil && len(ev.Evidence) == 0 {
		t.Error("expected evidence on the sleep recommendation")
	}

	done, err := svc.CompleteRecommendation(ctx, byCategory[wellness.CategoryMedicalCheckup].ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedDate == nil {
		t.Error("expected completed date")
	}
	active, err := svc.ListRecommendations(ctx, profile.ID, wellness.RecommendationFilter{Status: wellness.StatusActive})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != len(recs)-1 {
		t.Errorf("expected %d active, got %d", len(recs)-1, len(active))
	}

	walk, mins := "Morning walk", 40
	when := time.Now().UTC().Add(-time.Hour)
	if _, err := svc.LogActivity(ctx, wellness.ActivityInput{
		HealthProfileID: &profile.ID, ActivityName: &walk, DurationMinutes: &mins, ActivityDate: &when,
	}); err != nil {
		t.Fatalf("log activity: %v", err)
	}

	dash, err := svc.Dashboard(ctx, patientID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TotalActivities != 1 || dash.ActivitiesThisWeek != 1 || dash.TotalActivityMinutes != 40 {
		t.Errorf("unexpected activity totals: %+v", dash)
	}
	if dash.CompletedRecommendations != 1 || dash.TotalRecommendations != len(recs) {
		t.Errorf("unexpected recommendation totals: %+v", dash)
	}
	if dash.AlzheimerRisk == nil || dash.AlzheimerRisk.MedicalRecordID != recordID {
		t.Errorf("expected risk summary from backend, got %+v", dash.AlzheimerRisk)
	}

	if err := svc.DeleteProfile(ctx, profile.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	left, err := svc.ListRecommendations(ctx, profile.ID, wellness.RecommendationFilter{})
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("expected recommendations to cascade, %d left", len(left))
	}
}
