package medical

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2024-06-01":                time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"2024-06-01T08:15:00Z":      time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC),
		"2024-06-01T10:15:00+02:00": time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%s: expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseDate("01/06/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestRiskFactor_DecodesDateOnly(t *testing.T) {
	var f RiskFactor
	if err := json.Unmarshal([]byte(`{"factor_type":"Hypertension","diagnosed_date":"2023-11-20"}`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FactorType != "Hypertension" {
		t.Errorf("expected other fields decoded, got %+v", f)
	}
	if f.DiagnosedDate == nil || !f.DiagnosedDate.Equal(time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected diagnosed date: %v", f.DiagnosedDate)
	}

	f = RiskFactor{}
	if err := json.Unmarshal([]byte(`{"factor_type":"x","diagnosed_date":null}`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.DiagnosedDate != nil {
		t.Errorf("expected null to leave the date unset, got %v", f.DiagnosedDate)
	}
	if err := json.Unmarshal([]byte(`{"diagnosed_date":"yesterday"}`), &f); err == nil {
		t.Error("expected error for an unparseable date")
	}
}

func TestPreventionAction_DecodesDateOnly(t *testing.T) {
	var a PreventionAction
	if err := json.Unmarshal([]byte(`{"action_type":"Walk","action_date":"2025-03-01"}`), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.ActionDate.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) || a.ActionType != "Walk" {
		t.Errorf("unexpected action: %+v", a)
	}

	var patch PreventionActionPatch
	if err := json.Unmarshal([]byte(`{"action_date":"2025-03-02","status":"COMPLETED"}`), &patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.ActionDate == nil || patch.ActionDate.Day() != 2 || patch.Status == nil {
		t.Errorf("unexpected patch: %+v", patch)
	}

	var fp RiskFactorPatch
	if err := json.Unmarshal([]byte(`{"diagnosed_date":"2022-01-05T00:00:00Z"}`), &fp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp.DiagnosedDate == nil || fp.DiagnosedDate.Year() != 2022 {
		t.Errorf("expected RFC 3339 still accepted, got %v", fp.DiagnosedDate)
	}
}

func TestRiskFactor_EncodesRFC3339(t *testing.T) {
	d := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
	b, err := json.Marshal(RiskFactor{FactorType: "x", DiagnosedDate: &d})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back RiskFactor
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back.DiagnosedDate == nil || !back.DiagnosedDate.Equal(d) {
		t.Errorf("expected %v, got %v", d, back.DiagnosedDate)
	}
}
