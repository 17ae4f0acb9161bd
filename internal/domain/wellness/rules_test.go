package wellness

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoriesOf(recs []*HealthRecommendation) []Category {
	out := make([]Category, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Category)
	}
	return out
}

func TestGenerateRecommendations_HealthyProfileOnlyCheckup(t *testing.T) {
	p := &HealthProfile{
		ID:                         uuid.New(),
		PhysicalActivityLevel:      ActivityVeryActive,
		SleepHoursPerNight:         f64(8),
		DietQuality:                DietGood,
		StressLevel:                StressLow,
		SocialEngagementLevel:      EngagementHigh,
		CognitiveTrainingFrequency: TrainingDaily,
	}
	recs := GenerateRecommendations(p)
	require.Len(t, recs, 1)
	assert.Equal(t, CategoryMedicalCheckup, recs[0].Category)
	assert.Equal(t, "Annual Cognitive Assessment", recs[0].Title)
	assert.Equal(t, PriorityMedium, recs[0].Priority)
	assert.Equal(t, p.ID, recs[0].HealthProfileID)
}

func TestGenerateRecommendations_AllRules(t *testing.T) {
	p := &HealthProfile{
		ID:                         uuid.New(),
		PhysicalActivityLevel:      ActivitySedentary,
		SleepHoursPerNight:         f64(5),
		DietQuality:                DietPoor,
		StressLevel:                StressVeryHigh,
		SmokingStatus:              true,
		SocialEngagementLevel:      EngagementIsolated,
		CognitiveTrainingFrequency: "never",
	}
	recs := GenerateRecommendations(p)
	assert.Equal(t, []Category{
		CategoryPhysicalActivity,
		CategorySleep,
		CategoryNutrition,
		CategoryStressManagement,
		CategoryLifestyleChange,
		CategoryCognitiveTraining,
		CategorySocialEngagement,
		CategoryMedicalCheckup,
	}, categoriesOf(recs))

	for _, r := range recs {
		assert.Equal(t, StatusActive, r.Status)
		assert.True(t, r.EvidenceBased)
		assert.NotEmpty(t, r.Evidence)
	}
	assert.Equal(t, PriorityCritical, recs[4].Priority)
	assert.Equal(t, "Adopt MIND Diet", recs[2].Title)
	assert.Equal(t, []string{"sleep_hours_per_night=5"}, []string(recs[1].Evidence))
}

func TestGenerateRecommendations_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		p    HealthProfile
		want Category
		hit  bool
	}{
		{"lightly active", HealthProfile{PhysicalActivityLevel: ActivityLightlyActive}, CategoryPhysicalActivity, true},
		{"moderately active", HealthProfile{PhysicalActivityLevel: ActivityModeratelyActive}, CategoryPhysicalActivity, false},
		{"sleep 7h", HealthProfile{SleepHoursPerNight: f64(7)}, CategorySleep, false},
		{"sleep 9.5h", HealthProfile{SleepHoursPerNight: f64(9.5)}, CategorySleep, true},
		{"sleep unknown", HealthProfile{}, CategorySleep, false},
		{"below average diet", HealthProfile{DietQuality: DietBelowAverage}, CategoryNutrition, true},
		{"average diet", HealthProfile{DietQuality: DietAverage}, CategoryNutrition, false},
		{"high stress", HealthProfile{StressLevel: StressHigh}, CategoryStressManagement, true},
		{"moderate stress", HealthProfile{StressLevel: StressModerate}, CategoryStressManagement, false},
		{"rarely trains", HealthProfile{CognitiveTrainingFrequency: "RARELY"}, CategoryCognitiveTraining, true},
		{"weekly training", HealthProfile{CognitiveTrainingFrequency: TrainingWeekly}, CategoryCognitiveTraining, false},
		{"low social", HealthProfile{SocialEngagementLevel: EngagementLow}, CategorySocialEngagement, true},
		{"moderate social", HealthProfile{SocialEngagementLevel: EngagementModerate}, CategorySocialEngagement, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categoriesOf(GenerateRecommendations(&tt.p))
			if tt.hit {
				assert.Contains(t, got, tt.want)
			} else {
				assert.NotContains(t, got, tt.want)
			}
			assert.Equal(t, CategoryMedicalCheckup, got[len(got)-1])
		})
	}
}
