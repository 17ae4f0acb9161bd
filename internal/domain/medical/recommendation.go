package medical

import "strings"

// ── Advice blocks ──

var (
	criticalTierAdvice = []string{
		"🔴 URGENT: Immediate consultation with a neurologist is strongly recommended",
		"🧠 Schedule comprehensive cognitive assessment (MMSE, MoCA tests)",
		"🏥 Consider referral to memory clinic or specialized care center",
		"💊 Discuss potential pharmacological interventions with your physician",
		"👨‍👩‍👧 Family education on Alzheimer's care and support strategies",
	}
	highTierAdvice = []string{
		"⚠️ Schedule appointment with neurologist within next month",
		"🧠 Annual cognitive screening recommended (MMSE, Clock Drawing Test)",
		"🏃‍♂️ Engage in moderate physical exercise 5 times per week (30 min)",
		"🥗 Follow Mediterranean or MIND diet strictly",
		"🧘‍♀️ Practice stress reduction techniques daily (meditation, yoga)",
		"🎯 Daily cognitive training exercises (puzzles, memory games)",
	}
	mediumTierAdvice = []string{
		"📅 Annual check-up with primary care physician recommended",
		"🧠 Bi-annual cognitive health screening",
		"🏃‍♂️ Regular physical activity: 150 min/week moderate exercise",
		"🥗 Maintain balanced diet rich in omega-3, antioxidants",
		"😴 Ensure 7-8 hours of quality sleep per night",
		"🧩 Engage in mentally stimulating activities regularly",
		"👥 Maintain active social life and relationships",
	}
	lowTierAdvice = []string{
		"✅ Continue maintaining healthy lifestyle habits",
		"🏃‍♂️ Regular physical activity: at least 150 min/week",
		"🥗 Balanced nutrition with emphasis on brain-healthy foods",
		"🧠 Keep mind active: reading, learning new skills, hobbies",
		"😴 Maintain good sleep hygiene",
		"📅 Routine health check-ups as per age guidelines",
	}
	seniorAdvice = []string{
		"💉 Ensure vaccinations are up-to-date (flu, pneumonia)",
		"🩺 Monitor cardiovascular health closely",
		"💊 Regular medication review to prevent cognitive side effects",
	}
	midlifeAdvice = []string{
		"🔍 Monitor blood pressure and cholesterol levels",
		"🍷 Limit alcohol consumption (max 1 drink/day)",
	}
	familyHistoryAdvice = []string{
		"🧬 Consider genetic counseling and testing if not already done",
		"📚 Educate yourself about early warning signs",
		"🗓️ More frequent cognitive monitoring than average-risk individuals",
	}
	cardiovascularAdvice = []string{
		"❤️ Strict management of cardiovascular risk factors is essential",
		"💊 Ensure medications for chronic conditions are taken as prescribed",
	}
	memoryAdvice = []string{
		"📝 Keep a daily journal to track cognitive changes",
		"⏰ Use calendars, reminders, and organizational tools",
	}
	sleepAdvice = []string{
		"😴 Establish consistent sleep schedule and bedtime routine",
		"🛌 Create optimal sleep environment (dark, cool, quiet)",
	}
	generalAdvice = []string{
		"🚭 Avoid smoking and secondhand smoke",
		"🎵 Engage in activities you enjoy (music, art, social events)",
		"📖 Continuous learning: take classes, read, learn new skills",
	}
	lifestyleAdvice = []string{
		"Exercise: Aerobic activity 30 min, 5 days/week",
		"Diet: Mediterranean diet with plenty of vegetables, fruits, fish",
		"Sleep: Aim for 7-9 hours of quality sleep",
		"Mental Stimulation: Daily puzzles, reading, learning",
		"Social Engagement: Regular interaction with friends and family",
		"Stress Management: Mindfulness, meditation, relaxation techniques",
	}
)

func tierAdvice(score float64) []string {
	switch {
	case score > 75:
		return criticalTierAdvice
	case score > 50:
		return highTierAdvice
	case score > 25:
		return mediumTierAdvice
	default:
		return lowTierAdvice
	}
}

// GenerateRecommendations composes the advice list for a record. Blocks
// are appended in a fixed order: tier, age, family history, cardiovascular
// factors, symptoms, general.
func GenerateRecommendations(r *MedicalRecord, factors []*RiskFactor, score float64) []string {
	out := append([]string(nil), tierAdvice(score)...)
	if r == nil {
		return append(out, generalAdvice...)
	}

	if r.Age != nil {
		if *r.Age > 65 {
			out = append(out, seniorAdvice...)
		}
		if *r.Age > 50 {
			out = append(out, midlifeAdvice...)
		}
	}

	if r.FamilyHistory == FamilyHistoryYes {
		out = append(out, familyHistoryAdvice...)
	}

	for _, f := range ActiveFactors(factors) {
		if isVascular(f.FactorType) {
			out = append(out, cardiovascularAdvice...)
			break
		}
	}

	if r.CurrentSymptoms != nil && strings.TrimSpace(*r.CurrentSymptoms) != "" {
		s := strings.ToLower(*r.CurrentSymptoms)
		if containsAny(s, "memory", "confusion") {
			out = append(out, memoryAdvice...)
		}
		if containsAny(s, "sleep", "insomnia") {
			out = append(out, sleepAdvice...)
		}
	}

	return append(out, generalAdvice...)
}

// GenerateLifestyleRecommendations returns the fixed lifestyle checklist.
func GenerateLifestyleRecommendations() []string {
	return append([]string(nil), lifestyleAdvice...)
}

const (
	PriorityHigh   = "High Priority"
	PriorityMedium = "Medium Priority"
)

type ActionSuggestion struct {
	ActionType  string `json:"action_type"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Priority    string `json:"priority"`
}

// SuggestPreventionActions proposes prevention actions for a score. Above
// 50 cognitive training and a medical follow-up lead the list and every
// suggestion is high priority.
func SuggestPreventionActions(_ *MedicalRecord, score float64) []ActionSuggestion {
	elevated := score > 50
	priority := PriorityMedium
	var out []ActionSuggestion
	if elevated {
		priority = PriorityHigh
		out = append(out,
			ActionSuggestion{"Cognitive Training", "Daily cognitive exercises (20-30 minutes)", "Daily", PriorityHigh},
			ActionSuggestion{"Medical Follow-up", "Schedule neurologist appointment", "One-time", PriorityHigh},
		)
	}
	return append(out,
		ActionSuggestion{"Physical Exercise", "Moderate aerobic exercise (walking, swimming, cycling)", "5 times per week", priority},
		ActionSuggestion{"Diet Modification", "Follow Mediterranean or MIND diet", "Daily", priority},
		ActionSuggestion{"Social Activity", "Engage in group activities or social events", "Weekly", priority},
	)
}
