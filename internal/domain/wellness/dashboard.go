package wellness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dashboard summarises a patient's prevention progress.
type Dashboard struct {
	PatientID                 uuid.UUID      `json:"patient_id"`
	HealthProfileID           uuid.UUID      `json:"health_profile_id"`
	WellnessScore             *float64       `json:"wellness_score,omitempty"`
	WellnessLevel             string         `json:"wellness_level"`
	TotalRecommendations      int            `json:"total_recommendations"`
	ActiveRecommendations     int            `json:"active_recommendations"`
	CompletedRecommendations  int            `json:"completed_recommendations"`
	TotalActivities           int            `json:"total_activities"`
	ActivitiesThisWeek        int            `json:"activities_this_week"`
	TotalActivityMinutes      int            `json:"total_activity_minutes"`
	ActivitiesByType          map[string]int `json:"activities_by_type"`
	RecommendationsByCategory map[string]int `json:"recommendations_by_category"`
	LastAssessmentDate        *time.Time     `json:"last_assessment_date,omitempty"`
	AlzheimerRisk             *RiskSummary   `json:"alzheimer_risk,omitempty"`
}

// Dashboard builds the patient's dashboard. The Alzheimer risk is omitted
// when the main server cannot be reached.
func (s *Service) Dashboard(ctx context.Context, patientID uuid.UUID) (*Dashboard, error) {
	p, err := s.profiles.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	recs, err := s.recommendations.ListByProfile(ctx, p.ID, RecommendationFilter{})
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	acts, err := s.activities.ListByProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	week, err := s.activities.CountSince(ctx, p.ID, s.now().AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("count recent activities: %w", err)
	}
	minutes, err := s.activities.SumDuration(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("sum activity minutes: %w", err)
	}

	d := &Dashboard{
		PatientID:                 patientID,
		HealthProfileID:           p.ID,
		WellnessScore:             p.WellnessScore,
		WellnessLevel:             Level(p.WellnessScore),
		TotalRecommendations:      len(recs),
		TotalActivities:           len(acts),
		ActivitiesThisWeek:        week,
		TotalActivityMinutes:      minutes,
		ActivitiesByType:          map[string]int{},
		RecommendationsByCategory: map[string]int{},
		LastAssessmentDate:        p.LastAssessmentDate,
	}
	for _, r := range recs {
		switch r.Status {
		case StatusActive:
			d.ActiveRecommendations++
		case StatusCompleted:
			d.CompletedRecommendations++
		}
		if r.Category != "" {
			d.RecommendationsByCategory[string(r.Category)]++
		}
	}
	for _, a := range acts {
		if a.ActivityType != "" {
			d.ActivitiesByType[string(a.ActivityType)]++
		}
	}

	if s.risk != nil {
		risk, err := s.risk.CurrentRisk(ctx, patientID)
		if err != nil {
			s.logger.Warn().Err(err).Str("patient_id", patientID.String()).Msg("alzheimer risk unavailable")
		} else {
			d.AlzheimerRisk = risk
		}
	}
	return d, nil
}
