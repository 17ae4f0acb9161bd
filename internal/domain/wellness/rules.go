package wellness

import (
	"fmt"
	"strings"
)

type rule struct {
	category    Category
	priority    Priority
	title       string
	description string
	// applies returns the profile facts that trigger the rule, or nil.
	applies func(p *HealthProfile) []string
}

var rules = []rule{
	{
		category: CategoryPhysicalActivity,
		priority: PriorityHigh,
		title:    "Increase Daily Physical Activity",
		description: "Aim for at least 150 minutes of moderate-intensity aerobic activity per week. " +
			"Physical activity is associated with up to 45% lower Alzheimer's risk. " +
			"Start with 10-minute walks and gradually increase duration.",
		applies: func(p *HealthProfile) []string {
			if p.PhysicalActivityLevel == ActivitySedentary || p.PhysicalActivityLevel == ActivityLightlyActive {
				return []string{"physical_activity_level=" + string(p.PhysicalActivityLevel)}
			}
			return nil
		},
	},
	{
		category: CategorySleep,
		priority: PriorityHigh,
		title:    "Optimize Sleep Duration",
		description: "Maintain 7-9 hours of quality sleep per night. Poor sleep is linked to increased " +
			"amyloid-beta accumulation in the brain. Keep a consistent sleep schedule " +
			"and avoid screens 1 hour before bed.",
		applies: func(p *HealthProfile) []string {
			if h := p.SleepHoursPerNight; h != nil && (*h < 7 || *h > 9) {
				return []string{fmt.Sprintf("sleep_hours_per_night=%g", *h)}
			}
			return nil
		},
	},
	{
		category: CategoryNutrition,
		priority: PriorityHigh,
		title:    "Adopt MIND Diet",
		description: "The MIND diet (Mediterranean-DASH Intervention for Neurodegenerative Delay) is associated " +
			"with up to 53% lower Alzheimer's risk. Focus on leafy greens, berries, fish, olive oil " +
			"and whole grains. Reduce red meat, butter and processed foods.",
		applies: func(p *HealthProfile) []string {
			if p.DietQuality == DietPoor || p.DietQuality == DietBelowAverage {
				return []string{"diet_quality=" + string(p.DietQuality)}
			}
			return nil
		},
	},
	{
		category: CategoryStressManagement,
		priority: PriorityMedium,
		title:    "Practice Daily Stress Reduction",
		description: "Chronic stress elevates cortisol, which damages hippocampal neurons. " +
			"Practice mindfulness meditation for 20 minutes daily. " +
			"Yoga, tai chi or guided breathing exercises also help.",
		applies: func(p *HealthProfile) []string {
			if p.StressLevel == StressHigh || p.StressLevel == StressVeryHigh {
				return []string{"stress_level=" + string(p.StressLevel)}
			}
			return nil
		},
	},
	{
		category: CategoryLifestyleChange,
		priority: PriorityCritical,
		title:    "Smoking Cessation Program",
		description: "Smoking doubles the risk of Alzheimer's disease and dementia. " +
			"Consult your doctor about cessation programs. " +
			"Nicotine replacement therapy and counseling have high success rates.",
		applies: func(p *HealthProfile) []string {
			if p.SmokingStatus {
				return []string{"smoking_status=true"}
			}
			return nil
		},
	},
	{
		category: CategoryCognitiveTraining,
		priority: PriorityMedium,
		title:    "Daily Cognitive Training",
		description: "Engage in cognitive exercises at least 3 times per week: puzzles, reading, " +
			"learning new skills, music or a new language.",
		applies: func(p *HealthProfile) []string {
			f := p.CognitiveTrainingFrequency
			if strings.EqualFold(f, TrainingRarely) || strings.EqualFold(f, TrainingNever) {
				return []string{"cognitive_training_frequency=" + f}
			}
			return nil
		},
	},
	{
		category: CategorySocialEngagement,
		priority: PriorityMedium,
		title:    "Increase Social Connections",
		description: "Social isolation is a significant risk factor for cognitive decline. " +
			"Join community groups, volunteer or attend regular social events.",
		applies: func(p *HealthProfile) []string {
			if p.SocialEngagementLevel == EngagementIsolated || p.SocialEngagementLevel == EngagementLow {
				return []string{"social_engagement_level=" + string(p.SocialEngagementLevel)}
			}
			return nil
		},
	},
	{
		category: CategoryMedicalCheckup,
		priority: PriorityMedium,
		title:    "Annual Cognitive Assessment",
		description: "Schedule annual cognitive assessments including MMSE testing. " +
			"Monitor blood pressure, cholesterol and blood sugar. " +
			"Regular checkups enable early detection and intervention.",
		applies: func(*HealthProfile) []string { return []string{"annual"} },
	},
}

// GenerateRecommendations evaluates the rule set against p. The annual
// checkup is always last.
func GenerateRecommendations(p *HealthProfile) []*HealthRecommendation {
	var out []*HealthRecommendation
	for _, r := range rules {
		facts := r.applies(p)
		if facts == nil {
			continue
		}
		out = append(out, &HealthRecommendation{
			HealthProfileID: p.ID,
			Category:        r.category,
			Priority:        r.priority,
			Title:           r.title,
			Description:     r.description,
			Status:          StatusActive,
			EvidenceBased:   true,
			Evidence:        facts,
		})
	}
	return out
}
