package medical

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar-date form accepted alongside RFC 3339.
const DateLayout = "2006-01-02"

// ParseDate reads an RFC 3339 timestamp or a YYYY-MM-DD date. Bare dates
// are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// flexDate decodes a JSON date with ParseDate. A JSON null leaves it unset.
type flexDate struct{ t *time.Time }

func (d *flexDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.t = &t
	return nil
}

func (f *RiskFactor) UnmarshalJSON(b []byte) error {
	type plain RiskFactor
	aux := struct {
		*plain
		DiagnosedDate flexDate `json:"diagnosed_date"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.DiagnosedDate.t != nil {
		f.DiagnosedDate = aux.DiagnosedDate.t
	}
	return nil
}

func (p *RiskFactorPatch) UnmarshalJSON(b []byte) error {
	type plain RiskFactorPatch
	aux := struct {
		*plain
		DiagnosedDate flexDate `json:"diagnosed_date"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.DiagnosedDate.t != nil {
		p.DiagnosedDate = aux.DiagnosedDate.t
	}
	return nil
}

func (a *PreventionAction) UnmarshalJSON(b []byte) error {
	type plain PreventionAction
	aux := struct {
		*plain
		ActionDate flexDate `json:"action_date"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.ActionDate.t != nil {
		a.ActionDate = *aux.ActionDate.t
	}
	return nil
}

func (p *PreventionActionPatch) UnmarshalJSON(b []byte) error {
	type plain PreventionActionPatch
	aux := struct {
		*plain
		ActionDate flexDate `json:"action_date"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.ActionDate.t != nil {
		p.ActionDate = aux.ActionDate.t
	}
	return nil
}
