package cognitive

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

// ActivityInput creates or patches a catalogue entry. Nil fields are left
// unchanged.
type ActivityInput struct {
	Title            *string         `json:"title"`
	Description      *string         `json:"description"`
	Type             *string         `json:"type"`
	Difficulty       *string         `json:"difficulty"`
	Content          json.RawMessage `json:"content"`
	TimeLimitSeconds *int            `json:"time_limit_seconds"`
	MaxScore         *int            `json:"max_score"`
	Instructions     *string         `json:"instructions"`
	ImageURL         *string         `json:"image_url"`
}

func nonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return apperr.Validation(field+" must not be negative", map[string]string{field: "negative"})
	}
	return nil
}

func (in ActivityInput) apply(a *Activity) error {
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Instructions != nil {
		a.Instructions = *in.Instructions
	}
	if in.ImageURL != nil {
		a.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if len(in.Content) > 0 {
		if !json.Valid(in.Content) {
			return apperr.Validation("content must be valid JSON", map[string]string{"content": "invalid"})
		}
		a.Content = datatypes.JSON(in.Content)
	}
	for field, v := range map[string]*int{"time_limit_seconds": in.TimeLimitSeconds, "max_score": in.MaxScore} {
		if err := nonNegative(field, v); err != nil {
			return err
		}
	}
	if in.TimeLimitSeconds != nil {
		a.TimeLimitSeconds = in.TimeLimitSeconds
	}
	if in.MaxScore != nil {
		a.MaxScore = in.MaxScore
	}
	if in.Type != nil {
		t, err := ParseActivityType(*in.Type)
		if err != nil {
			return err
		}
		a.Type = t
	}
	if in.Difficulty != nil {
		d, err := ParseDifficulty(*in.Difficulty)
		if err != nil {
			return err
		}
		a.Difficulty = d
	}
	switch {
	case a.Title == "":
		return apperr.Required("title")
	case a.Type == "":
		return apperr.Required("type")
	case a.Difficulty == "":
		return apperr.Required("difficulty")
	}
	return nil
}

// StartInput opens a session for a patient.
type StartInput struct {
	PatientID uuid.UUID `json:"patient_id"`
}

// FinishInput closes a session.
type FinishInput struct {
	Score            *int `json:"score"`
	TimeSpentSeconds *int `json:"time_spent_seconds"`
}

func (in FinishInput) validate(a *Activity, requireScore bool) error {
	if requireScore && in.Score == nil {
		return apperr.Required("score")
	}
	if err := nonNegative("score", in.Score); err != nil {
		return err
	}
	if err := nonNegative("time_spent_seconds", in.TimeSpentSeconds); err != nil {
		return err
	}
	if in.Score != nil && a != nil && a.MaxScore != nil && *in.Score > *a.MaxScore {
		return apperr.Validation("score exceeds the activity's max_score",
			map[string]string{"score": "above max_score"})
	}
	return nil
}
