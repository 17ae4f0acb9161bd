package wellness

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "SEDENTARY"
	ActivityLightlyActive    ActivityLevel = "LIGHTLY_ACTIVE"
	ActivityModeratelyActive ActivityLevel = "MODERATELY_ACTIVE"
	ActivityVeryActive       ActivityLevel = "VERY_ACTIVE"
	ActivityExtremelyActive  ActivityLevel = "EXTREMELY_ACTIVE"
)

type DietQuality string

const (
	DietPoor         DietQuality = "POOR"
	DietBelowAverage DietQuality = "BELOW_AVERAGE"
	DietAverage      DietQuality = "AVERAGE"
	DietGood         DietQuality = "GOOD"
	DietExcellent    DietQuality = "EXCELLENT"
)

type StressLevel string

const (
	StressVeryHigh StressLevel = "VERY_HIGH"
	StressHigh     StressLevel = "HIGH"
	StressModerate StressLevel = "MODERATE"
	StressLow      StressLevel = "LOW"
	StressMinimal  StressLevel = "MINIMAL"
)

type AlcoholConsumption string

const (
	AlcoholNone       AlcoholConsumption = "NONE"
	AlcoholOccasional AlcoholConsumption = "OCCASIONAL"
	AlcoholModerate   AlcoholConsumption = "MODERATE"
	AlcoholHeavy      AlcoholConsumption = "HEAVY"
)

type EngagementLevel string

const (
	EngagementIsolated EngagementLevel = "ISOLATED"
	EngagementLow      EngagementLevel = "LOW"
	EngagementModerate EngagementLevel = "MODERATE"
	EngagementHigh     EngagementLevel = "HIGH"
	EngagementVeryHigh EngagementLevel = "VERY_HIGH"
)

// Cognitive training frequencies. Stored as free text and compared
// case-insensitively.
const (
	TrainingDaily  = "Daily"
	TrainingWeekly = "Weekly"
	TrainingRarely = "Rarely"
	TrainingNever  = "Never"
)

type Category string

const (
	CategoryPhysicalActivity  Category = "PHYSICAL_ACTIVITY"
	CategoryNutrition         Category = "NUTRITION"
	CategorySleep             Category = "SLEEP"
	CategoryCognitiveTraining Category = "COGNITIVE_TRAINING"
	CategoryStressManagement  Category = "STRESS_MANAGEMENT"
	CategorySocialEngagement  Category = "SOCIAL_ENGAGEMENT"
	CategoryMedication        Category = "MEDICATION"
	CategoryMedicalCheckup    Category = "MEDICAL_CHECKUP"
	CategoryLifestyleChange   Category = "LIFESTYLE_CHANGE"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

type RecommendationStatus string

const (
	StatusActive    RecommendationStatus = "ACTIVE"
	StatusCompleted RecommendationStatus = "COMPLETED"
	StatusDismissed RecommendationStatus = "DISMISSED"
)

type ActivityType string

const (
	TypeAerobic          ActivityType = "AEROBIC"
	TypeStrengthTraining ActivityType = "STRENGTH_TRAINING"
	TypeFlexibility      ActivityType = "FLEXIBILITY"
	TypeCognitive        ActivityType = "COGNITIVE"
	TypeSocial           ActivityType = "SOCIAL"
	TypeMeditation       ActivityType = "MEDITATION"
	TypeWalking          ActivityType = "WALKING"
	TypeSwimming         ActivityType = "SWIMMING"
	TypeYoga             ActivityType = "YOGA"
	TypeOther            ActivityType = "OTHER"
)

type Intensity string

const (
	IntensityLow      Intensity = "LOW"
	IntensityModerate Intensity = "MODERATE"
	IntensityHigh     Intensity = "HIGH"
)

var (
	activityLevels  = []string{"SEDENTARY", "LIGHTLY_ACTIVE", "MODERATELY_ACTIVE", "VERY_ACTIVE", "EXTREMELY_ACTIVE"}
	dietQualities   = []string{"POOR", "BELOW_AVERAGE", "AVERAGE", "GOOD", "EXCELLENT"}
	stressLevels    = []string{"VERY_HIGH", "HIGH", "MODERATE", "LOW", "MINIMAL"}
	alcoholLevels   = []string{"NONE", "OCCASIONAL", "MODERATE", "HEAVY"}
	engagements     = []string{"ISOLATED", "LOW", "MODERATE", "HIGH", "VERY_HIGH"}
	trainingFreqs   = []string{TrainingDaily, TrainingWeekly, TrainingRarely, TrainingNever}
	categories      = []string{"PHYSICAL_ACTIVITY", "NUTRITION", "SLEEP", "COGNITIVE_TRAINING", "STRESS_MANAGEMENT", "SOCIAL_ENGAGEMENT", "MEDICATION", "MEDICAL_CHECKUP", "LIFESTYLE_CHANGE"}
	priorities      = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	recStatuses     = []string{"ACTIVE", "COMPLETED", "DISMISSED"}
	activityTypes   = []string{"AEROBIC", "STRENGTH_TRAINING", "FLEXIBILITY", "COGNITIVE", "SOCIAL", "MEDITATION", "WALKING", "SWIMMING", "YOGA", "OTHER"}
	intensityLevels = []string{"LOW", "MODERATE", "HIGH"}
)

// parseEnum upper-cases v and checks it against accepted. Empty input is
// returned unchanged.
func parseEnum(field, v string, accepted []string) (string, error) {
	if v == "" {
		return "", nil
	}
	up := strings.ToUpper(strings.TrimSpace(v))
	for _, a := range accepted {
		if up == a {
			return a, nil
		}
	}
	return "", apperr.InvalidEnum(field, v, accepted)
}

func ParseCategory(v string) (Category, error) {
	s, err := parseEnum("category", v, categories)
	return Category(s), err
}

func ParseStatus(v string) (RecommendationStatus, error) {
	s, err := parseEnum("status", v, recStatuses)
	return RecommendationStatus(s), err
}

// HealthProfile is one patient's lifestyle assessment.
type HealthProfile struct {
	ID                         uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID                  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"patient_id"`
	MedicalRecordID            *uuid.UUID         `gorm:"type:uuid" json:"medical_record_id,omitempty"`
	PhysicalActivityLevel      ActivityLevel      `gorm:"size:30" json:"physical_activity_level,omitempty"`
	SleepHoursPerNight         *float64           `json:"sleep_hours_per_night,omitempty"`
	DietQuality                DietQuality        `gorm:"size:30" json:"diet_quality,omitempty"`
	StressLevel                StressLevel        `gorm:"size:30" json:"stress_level,omitempty"`
	SmokingStatus              bool               `gorm:"not null;default:false" json:"smoking_status"`
	AlcoholConsumption         AlcoholConsumption `gorm:"size:30" json:"alcohol_consumption,omitempty"`
	SocialEngagementLevel      EngagementLevel    `gorm:"size:30" json:"social_engagement_level,omitempty"`
	CognitiveTrainingFrequency string             `gorm:"size:30" json:"cognitive_training_frequency,omitempty"`
	WellnessScore              *float64           `json:"wellness_score,omitempty"`
	LastAssessmentDate         *time.Time         `json:"last_assessment_date,omitempty"`
	Notes                      string             `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt                  time.Time          `json:"created_at"`
	UpdatedAt                  time.Time          `json:"updated_at"`
}

func (HealthProfile) TableName() string { return "health_profiles" }

func (p *HealthProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HealthRecommendation is an actionable item attached to a profile.
type HealthRecommendation struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	HealthProfileID uuid.UUID                   `gorm:"type:uuid;not null;index" json:"health_profile_id"`
	Category        Category                    `gorm:"size:40;not null;index" json:"category"`
	Title           string                      `gorm:"size:200;not null" json:"title"`
	Description     string                      `gorm:"type:text" json:"description,omitempty"`
	Priority        Priority                    `gorm:"size:20;not null" json:"priority"`
	Status          RecommendationStatus        `gorm:"size:20;not null;index" json:"status"`
	EvidenceBased   bool                        `gorm:"not null;default:false" json:"evidence_based"`
	Evidence        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"evidence,omitempty"`
	TargetDate      *time.Time                  `json:"target_date,omitempty"`
	CompletedDate   *time.Time                  `json:"completed_date,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`

	HealthProfile *HealthProfile `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (HealthRecommendation) TableName() string { return "health_recommendations" }

func (r *HealthRecommendation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Moods holds the self-reported mood around an activity.
type Moods struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// WellnessActivity is one logged activity session.
type WellnessActivity struct {
	ID              uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
	HealthProfileID uuid.UUID                 `gorm:"type:uuid;not null;index" json:"health_profile_id"`
	ActivityName    string                    `gorm:"size:150;not null" json:"activity_name"`
	ActivityType    ActivityType              `gorm:"size:50" json:"activity_type,omitempty"`
	DurationMinutes int                       `json:"duration_minutes"`
	ActivityDate    time.Time                 `gorm:"not null;index" json:"activity_date"`
	IntensityLevel  Intensity                 `gorm:"size:30;not null;default:MODERATE" json:"intensity_level"`
	Moods           datatypes.JSONType[Moods] `gorm:"type:jsonb" json:"moods"`
	Notes           string                    `gorm:"type:text" json:"notes,omitempty"`
	CaloriesBurned  *int                      `json:"calories_burned,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`

	HealthProfile *HealthProfile `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (WellnessActivity) TableName() string { return "wellness_activities" }

func (a *WellnessActivity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Models lists every table owned by the prevention service, in dependency order.
func Models() []interface{} {
	return []interface{}{&HealthProfile{}, &HealthRecommendation{}, &WellnessActivity{}}
}
