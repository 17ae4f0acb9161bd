package medical

import (
	"math"
	"strings"
	"time"
)

const (
	maxRiskScore        = 100.0
	maxAgePoints        = 30.0
	familyHistoryPoints = 25.0
	maxRiskFactorPoints = 25.0
	maxSymptomPoints    = 20.0
	symptomBasePoints   = 5.0
	symptomKeywordBonus = 2.0
	vascularMultiplier  = 1.3
)

var criticalSymptoms = []string{
	"memory loss", "confusion", "disorientation",
	"difficulty speaking", "personality change",
	"poor judgment", "withdrawal", "mood changes",
}

var vascularKeywords = []string{"diabetes", "hypertension", "cardiovascular"}

// ScoreBreakdown lists each weighted term of a risk score. Total is the
// clamped, rounded sum.
type ScoreBreakdown struct {
	Age           float64 `json:"age"`
	FamilyHistory float64 `json:"family_history"`
	Gender        float64 `json:"gender"`
	Education     float64 `json:"education"`
	RiskFactors   float64 `json:"risk_factors"`
	Symptoms      float64 `json:"symptoms"`
	Total         float64 `json:"total"`
}

// Breakdown computes every term of the risk score. Inactive factors are
// ignored; missing optional fields contribute zero.
func Breakdown(r *MedicalRecord, factors []*RiskFactor) ScoreBreakdown {
	if r == nil {
		return ScoreBreakdown{}
	}
	b := ScoreBreakdown{
		Age:           ageFactor(r.Age),
		FamilyHistory: familyHistoryFactor(r.FamilyHistory),
		Gender:        genderFactor(r.Gender, r.Age),
		Education:     educationFactor(r.EducationLevel),
		RiskFactors:   riskFactorsScore(factors),
		Symptoms:      symptomsScore(r.CurrentSymptoms),
	}
	sum := b.Age + b.FamilyHistory + b.Gender + b.Education + b.RiskFactors + b.Symptoms
	b.Total = round2(math.Max(0, math.Min(maxRiskScore, sum)))
	return b
}

// CalculateRiskScore returns the record's risk score in [0,100], rounded to
// two decimals.
func CalculateRiskScore(r *MedicalRecord, factors []*RiskFactor) float64 {
	return Breakdown(r, factors).Total
}

// DetermineRiskLevel maps a score to its tier. Upper bounds are inclusive.
func DetermineRiskLevel(score float64) RiskLevel {
	switch {
	case score <= 25:
		return RiskLevelLow
	case score <= 50:
		return RiskLevelMedium
	case score <= 75:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// ScoreChange describes the effect of UpdateRiskScore on a record.
type ScoreChange struct {
	PreviousScore float64
	PreviousLevel RiskLevel
	NewScore      float64
	NewLevel      RiskLevel
}

func (c ScoreChange) Changed() bool {
	return c.PreviousScore != c.NewScore || c.PreviousLevel != c.NewLevel
}

// UpdateRiskScore recomputes the score and level from factors and stamps
// the calculation time on r.
func UpdateRiskScore(r *MedicalRecord, factors []*RiskFactor, at time.Time) ScoreChange {
	change := ScoreChange{PreviousScore: r.RiskScore, PreviousLevel: r.RiskLevel}
	score := CalculateRiskScore(r, factors)
	r.RiskScore = score
	r.RiskLevel = DetermineRiskLevel(score)
	stamp := at
	r.LastRiskCalculation = &stamp
	change.NewScore = r.RiskScore
	change.NewLevel = r.RiskLevel
	return change
}

func ageFactor(age *int) float64 {
	if age == nil {
		return 0
	}
	switch a := *age; {
	case a < 50:
		return 0
	case a < 60:
		return 5
	case a < 65:
		return 10
	case a < 70:
		return 15
	case a < 75:
		return 20
	case a < 80:
		return 25
	default:
		return maxAgePoints
	}
}

func familyHistoryFactor(fh FamilyHistory) float64 {
	if fh == FamilyHistoryYes {
		return familyHistoryPoints
	}
	return 0
}

func genderFactor(g Gender, age *int) float64 {
	if age == nil {
		return 0
	}
	switch {
	case g == GenderFemale && *age > 65:
		return 5
	case g == GenderMale && *age > 70:
		return 3
	}
	return 0
}

func educationFactor(level *string) float64 {
	if level == nil {
		return 0
	}
	l := strings.ToLower(*level)
	switch {
	case containsAny(l, "phd", "doctorate", "master"):
		return -10
	case containsAny(l, "bachelor", "college"):
		return -5
	case strings.Contains(l, "high school"):
		return -2
	}
	return 0
}

func severityPoints(s Severity) float64 {
	switch s {
	case SeverityLow:
		return 2
	case SeverityHigh:
		return 5
	case SeverityCritical:
		return 7
	default:
		return 3
	}
}

// factorPoints is the uncapped contribution of a single active factor.
func factorPoints(f *RiskFactor) float64 {
	pts := severityPoints(f.Severity)
	if isVascular(f.FactorType) {
		pts *= vascularMultiplier
	}
	return pts
}

func riskFactorsScore(factors []*RiskFactor) float64 {
	var score float64
	for _, f := range ActiveFactors(factors) {
		score += factorPoints(f)
	}
	return math.Min(maxRiskFactorPoints, score)
}

func symptomsScore(symptoms *string) float64 {
	if symptoms == nil || strings.TrimSpace(*symptoms) == "" {
		return 0
	}
	lower := strings.ToLower(*symptoms)
	score := symptomBasePoints
	for _, kw := range criticalSymptoms {
		if strings.Contains(lower, kw) {
			score += symptomKeywordBonus
		}
	}
	return math.Min(maxSymptomPoints, score)
}

func isVascular(factorType string) bool {
	return containsAny(strings.ToLower(factorType), vascularKeywords...)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
