package mmse

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

// Subscale maxima of the Mini-Mental State Examination.
const (
	MaxOrientation  = 10
	MaxRegistration = 3
	MaxAttention    = 5
	MaxRecall       = 3
	MaxLanguage     = 9
	MaxTotal        = MaxOrientation + MaxRegistration + MaxAttention + MaxRecall + MaxLanguage
)

const (
	InterpretationNormal   = "Normal cognition"
	InterpretationMild     = "Mild cognitive impairment"
	InterpretationModerate = "Moderate cognitive impairment"
	InterpretationSevere   = "Severe cognitive impairment"
)

const dateLayout = "2006-01-02"

// Test is one stored MMSE result. TotalScore and Interpretation are always
// derived from the subscales.
type Test struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientName       string     `db:"patient_name" json:"patient_name"`
	PatientID         *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	OrientationScore  int        `db:"orientation" json:"orientation_score"`
	RegistrationScore int        `db:"registration" json:"registration_score"`
	AttentionScore    int        `db:"attention" json:"attention_score"`
	RecallScore       int        `db:"recall" json:"recall_score"`
	LanguageScore     int        `db:"language" json:"language_score"`
	TotalScore        int        `db:"total_score" json:"total_score"`
	Interpretation    string     `db:"interpretation" json:"interpretation"`
	TestDate          time.Time  `db:"test_date" json:"test_date"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Interpret maps a total score to its clinical band.
func Interpret(total int) string {
	switch {
	case total >= 24:
		return InterpretationNormal
	case total >= 18:
		return InterpretationMild
	case total >= 10:
		return InterpretationModerate
	default:
		return InterpretationSevere
	}
}

// Score recomputes TotalScore and Interpretation.
func (t *Test) Score() {
	t.TotalScore = t.OrientationScore + t.RegistrationScore + t.AttentionScore + t.RecallScore + t.LanguageScore
	t.Interpretation = Interpret(t.TotalScore)
}

// SubmitRequest is the wire form of a submitted test. TotalScore and
// Interpretation are accepted for compatibility; a total that disagrees with
// the subscales is rejected and the interpretation is always recomputed.
type SubmitRequest struct {
	PatientName       string     `json:"patient_name"`
	PatientID         *uuid.UUID `json:"patient_id"`
	OrientationScore  int        `json:"orientation_score"`
	RegistrationScore int        `json:"registration_score"`
	AttentionScore    int        `json:"attention_score"`
	RecallScore       int        `json:"recall_score"`
	LanguageScore     int        `json:"language_score"`
	TotalScore        *int       `json:"total_score"`
	Interpretation    string     `json:"interpretation"`
	TestDate          string     `json:"test_date"`
	Notes             *string    `json:"notes"`
}

// Validate checks ranges and the optional client total.
func (r SubmitRequest) Validate() error {
	details := map[string]string{}
	if strings.TrimSpace(r.PatientName) == "" {
		details["patient_name"] = "required"
	}
	checkRange(details, "orientation_score", r.OrientationScore, MaxOrientation)
	checkRange(details, "registration_score", r.RegistrationScore, MaxRegistration)
	checkRange(details, "attention_score", r.AttentionScore, MaxAttention)
	checkRange(details, "recall_score", r.RecallScore, MaxRecall)
	checkRange(details, "language_score", r.LanguageScore, MaxLanguage)
	if r.TestDate != "" {
		if _, err := time.Parse(dateLayout, r.TestDate); err != nil {
			details["test_date"] = "must be YYYY-MM-DD"
		}
	}
	if len(details) > 0 {
		return apperr.Validation("invalid MMSE test", details)
	}
	if r.TotalScore != nil {
		sum := r.OrientationScore + r.RegistrationScore + r.AttentionScore + r.RecallScore + r.LanguageScore
		if *r.TotalScore != sum {
			return apperr.Validation(
				fmt.Sprintf("total_score %d does not match subscale sum %d", *r.TotalScore, sum),
				map[string]string{"total_score": "mismatch"})
		}
	}
	return nil
}

func checkRange(details map[string]string, field string, v, max int) {
	if v < 0 || v > max {
		details[field] = fmt.Sprintf("must be between 0 and %d", max)
	}
}

// apply copies the request onto t. An empty test date keeps t's date, or
// today for a new test.
func (r SubmitRequest) apply(t *Test, today time.Time) {
	t.PatientName = strings.TrimSpace(r.PatientName)
	t.PatientID = r.PatientID
	t.OrientationScore = r.OrientationScore
	t.RegistrationScore = r.RegistrationScore
	t.AttentionScore = r.AttentionScore
	t.RecallScore = r.RecallScore
	t.LanguageScore = r.LanguageScore
	t.Notes = r.Notes
	if r.TestDate != "" {
		t.TestDate, _ = time.Parse(dateLayout, r.TestDate)
	} else if t.TestDate.IsZero() {
		y, m, d := today.Date()
		t.TestDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	t.Score()
}
