package wellness

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

// ProfileInput creates or patches a profile. Nil fields are left unchanged.
type ProfileInput struct {
	PatientID                  *uuid.UUID `json:"patient_id"`
	MedicalRecordID            *uuid.UUID `json:"medical_record_id"`
	PhysicalActivityLevel      *string    `json:"physical_activity_level"`
	SleepHoursPerNight         *float64   `json:"sleep_hours_per_night"`
	DietQuality                *string    `json:"diet_quality"`
	StressLevel                *string    `json:"stress_level"`
	SmokingStatus              *bool      `json:"smoking_status"`
	AlcoholConsumption         *string    `json:"alcohol_consumption"`
	SocialEngagementLevel      *string    `json:"social_engagement_level"`
	CognitiveTrainingFrequency *string    `json:"cognitive_training_frequency"`
	Notes                      *string    `json:"notes"`
}

func enumField(field string, v *string, accepted []string, set func(string)) error {
	if v == nil {
		return nil
	}
	s, err := parseEnum(field, *v, accepted)
	if err != nil {
		return err
	}
	set(s)
	return nil
}

func (in ProfileInput) apply(p *HealthProfile) error {
	if in.PatientID != nil {
		p.PatientID = *in.PatientID
	}
	if in.MedicalRecordID != nil {
		p.MedicalRecordID = in.MedicalRecordID
	}
	if in.SleepHoursPerNight != nil {
		if h := *in.SleepHoursPerNight; h < 0 || h > 24 {
			return apperr.Validation("sleep_hours_per_night must be between 0 and 24",
				map[string]string{"sleep_hours_per_night": "out of range"})
		}
		p.SleepHoursPerNight = in.SleepHoursPerNight
	}
	if in.SmokingStatus != nil {
		p.SmokingStatus = *in.SmokingStatus
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
	steps := []error{
		enumField("physical_activity_level", in.PhysicalActivityLevel, activityLevels, func(s string) { p.PhysicalActivityLevel = ActivityLevel(s) }),
		enumField("diet_quality", in.DietQuality, dietQualities, func(s string) { p.DietQuality = DietQuality(s) }),
		enumField("stress_level", in.StressLevel, stressLevels, func(s string) { p.StressLevel = StressLevel(s) }),
		enumField("alcohol_consumption", in.AlcoholConsumption, alcoholLevels, func(s string) { p.AlcoholConsumption = AlcoholConsumption(s) }),
		enumField("social_engagement_level", in.SocialEngagementLevel, engagements, func(s string) { p.SocialEngagementLevel = EngagementLevel(s) }),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	if in.CognitiveTrainingFrequency != nil {
		f, err := parseTrainingFrequency(*in.CognitiveTrainingFrequency)
		if err != nil {
			return err
		}
		p.CognitiveTrainingFrequency = f
	}
	if p.PatientID == uuid.Nil {
		return apperr.Required("patient_id")
	}
	return nil
}

// parseTrainingFrequency canonicalises the free-text frequency to its
// capitalised form.
func parseTrainingFrequency(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	for _, f := range trainingFreqs {
		if strings.EqualFold(strings.TrimSpace(v), f) {
			return f, nil
		}
	}
	return "", apperr.InvalidEnum("cognitive_training_frequency", v, trainingFreqs)
}

// RecommendationInput creates or patches a recommendation.
type RecommendationInput struct {
	HealthProfileID *uuid.UUID `json:"health_profile_id"`
	Category        *string    `json:"category"`
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Priority        *string    `json:"priority"`
	Status          *string    `json:"status"`
	EvidenceBased   *bool      `json:"evidence_based"`
	Evidence        []string   `json:"evidence"`
	TargetDate      *time.Time `json:"target_date"`
}

func (in RecommendationInput) apply(r *HealthRecommendation) error {
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.EvidenceBased != nil {
		r.EvidenceBased = *in.EvidenceBased
	}
	if in.Evidence != nil {
		r.Evidence = datatypes.JSONSlice[string](in.Evidence)
	}
	if in.TargetDate != nil {
		r.TargetDate = in.TargetDate
	}
	steps := []error{
		enumField("category", in.Category, categories, func(s string) { r.Category = Category(s) }),
		enumField("priority", in.Priority, priorities, func(s string) { r.Priority = Priority(s) }),
		enumField("status", in.Status, recStatuses, func(s string) { r.Status = RecommendationStatus(s) }),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	if r.Title == "" {
		return apperr.Required("title")
	}
	if r.Category == "" {
		return apperr.Required("category")
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	return nil
}

// ActivityInput logs or patches an activity.
type ActivityInput struct {
	HealthProfileID *uuid.UUID `json:"health_profile_id"`
	ActivityName    *string    `json:"activity_name"`
	ActivityType    *string    `json:"activity_type"`
	DurationMinutes *int       `json:"duration_minutes"`
	ActivityDate    *time.Time `json:"activity_date"`
	IntensityLevel  *string    `json:"intensity_level"`
	MoodBefore      *string    `json:"mood_before"`
	MoodAfter       *string    `json:"mood_after"`
	Notes           *string    `json:"notes"`
	CaloriesBurned  *int       `json:"calories_burned"`
}

func (in ActivityInput) apply(a *WellnessActivity, now time.Time) error {
	if in.ActivityName != nil {
		a.ActivityName = strings.TrimSpace(*in.ActivityName)
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return apperr.Validation("duration_minutes must not be negative",
				map[string]string{"duration_minutes": "negative"})
		}
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.ActivityDate != nil {
		a.ActivityDate = in.ActivityDate.UTC()
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.CaloriesBurned != nil {
		a.CaloriesBurned = in.CaloriesBurned
	}
	if in.MoodBefore != nil || in.MoodAfter != nil {
		m := a.Moods.Data()
		if in.MoodBefore != nil {
			m.Before = *in.MoodBefore
		}
		if in.MoodAfter != nil {
			m.After = *in.MoodAfter
		}
		a.Moods = datatypes.NewJSONType(m)
	}
	steps := []error{
		enumField("activity_type", in.ActivityType, activityTypes, func(s string) { a.ActivityType = ActivityType(s) }),
		enumField("intensity_level", in.IntensityLevel, intensityLevels, func(s string) { a.IntensityLevel = Intensity(s) }),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	if a.ActivityName == "" {
		return apperr.Required("activity_name")
	}
	if a.ActivityDate.IsZero() {
		a.ActivityDate = now
	}
	if a.IntensityLevel == "" {
		a.IntensityLevel = IntensityModerate
	}
	return nil
}
