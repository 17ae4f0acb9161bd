package wellness

import "math"

const baselineScore = 50.0

// Wellness levels.
const (
	LevelExcellent = "EXCELLENT"
	LevelGood      = "GOOD"
	LevelFair      = "FAIR"
	LevelPoor      = "POOR"
	LevelUnknown   = "UNKNOWN"
)

var (
	activityPoints = map[ActivityLevel]float64{
		ActivitySedentary:        0,
		ActivityLightlyActive:    5,
		ActivityModeratelyActive: 10,
		ActivityVeryActive:       15,
		ActivityExtremelyActive:  20,
	}
	dietPoints = map[DietQuality]float64{
		DietPoor:         0,
		DietBelowAverage: 2,
		DietAverage:      5,
		DietGood:         8,
		DietExcellent:    10,
	}
	stressPoints = map[StressLevel]float64{
		StressVeryHigh: -10,
		StressHigh:     -6,
		StressModerate: -2,
		StressLow:      0,
		StressMinimal:  2,
	}
	socialPoints = map[EngagementLevel]float64{
		EngagementIsolated: 0,
		EngagementLow:      1,
		EngagementModerate: 3,
		EngagementHigh:     4,
		EngagementVeryHigh: 5,
	}
)

func sleepPoints(hours *float64) float64 {
	if hours == nil {
		return 0
	}
	switch h := *hours; {
	case h >= 7 && h <= 9:
		return 10
	case h >= 6 && h <= 10:
		return 5
	}
	return 0
}

// Score computes the wellness score of p in [0, 100]. Unset answers
// contribute nothing.
func Score(p *HealthProfile) float64 {
	score := baselineScore
	score += activityPoints[p.PhysicalActivityLevel]
	score += sleepPoints(p.SleepHoursPerNight)
	score += dietPoints[p.DietQuality]
	score += stressPoints[p.StressLevel]
	if p.SmokingStatus {
		score -= 10
	}
	score += socialPoints[p.SocialEngagementLevel]
	return math.Max(0, math.Min(100, score))
}

// Level buckets a wellness score. A nil score is UNKNOWN.
func Level(score *float64) string {
	if score == nil {
		return LevelUnknown
	}
	switch s := *score; {
	case s >= 80:
		return LevelExcellent
	case s >= 60:
		return LevelGood
	case s >= 40:
		return LevelFair
	}
	return LevelPoor
}
