package medical

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSeverityDistribution(t *testing.T) {
	factors := []*RiskFactor{
		{Severity: SeverityHigh, IsActive: true},
		{Severity: SeverityHigh, IsActive: true},
		{Severity: SeverityLow, IsActive: true},
		{Severity: SeverityCritical, IsActive: false},
	}
	d := SeverityDistribution(factors)
	wantLabels := []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"}
	wantCounts := []int{0, 2, 0, 1}
	for i := range wantLabels {
		if d.Labels[i] != wantLabels[i] || d.Counts[i] != wantCounts[i] {
			t.Errorf("bucket %d: expected %s=%d, got %s=%d", i, wantLabels[i], wantCounts[i], d.Labels[i], d.Counts[i])
		}
	}
	if d.Total != 3 {
		t.Errorf("expected total 3, got %d", d.Total)
	}
}

func TestActionsPerMonth(t *testing.T) {
	actions := []*PreventionAction{
		{ActionDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
		{ActionDate: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)},
		{ActionDate: time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)},
		{ActionDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	d := ActionsPerMonth(actions)
	want := []string{"Dec 2024", "Jan 2025", "Mar 2025"}
	if len(d.Labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, d.Labels)
	}
	for i := range want {
		if d.Labels[i] != want[i] {
			t.Errorf("label %d: expected %s, got %s", i, want[i], d.Labels[i])
		}
	}
	if d.Counts[2] != 2 || d.Total != 4 {
		t.Errorf("unexpected counts: %+v", d)
	}

	empty := ActionsPerMonth(nil)
	if empty.Labels == nil || len(empty.Labels) != 0 {
		t.Errorf("expected empty non-nil labels, got %v", empty.Labels)
	}
}

func TestBuildRiskEvolution_FromEvents(t *testing.T) {
	r := &MedicalRecord{RiskScore: 40, RiskLevel: RiskLevelMedium}
	events := []*TimelineEvent{
		{EventType: EventRiskScoreUpdated, EventDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			ChangedFields: map[string]interface{}{"new_score": 40.0, "new_level": "MEDIUM"}},
		{EventType: EventRiskFactorAdded, EventDate: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		{EventType: EventRiskScoreUpdated, EventDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			ChangedFields: map[string]interface{}{"new_score": 20.0}},
	}
	ev := BuildRiskEvolution(r, events)
	if len(ev.DataPoints) != 2 {
		t.Fatalf("expected 2 points, got %d", len(ev.DataPoints))
	}
	if ev.Scores[0] != 20 || ev.Scores[1] != 40 {
		t.Errorf("expected oldest first, got %v", ev.Scores)
	}
	if ev.DataPoints[0].Level != RiskLevelLow {
		t.Errorf("expected level derived from score, got %s", ev.DataPoints[0].Level)
	}
	if ev.Labels[0] != "Jan 10" || ev.Labels[1] != "Feb 01" {
		t.Errorf("unexpected labels: %v", ev.Labels)
	}
}

func TestBuildRiskEvolution_SameInstantUsesSequence(t *testing.T) {
	at := time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)
	r := &MedicalRecord{RiskScore: 55, RiskLevel: RiskLevelHigh}
	events := []*TimelineEvent{
		{Seq: 7, EventType: EventRiskScoreUpdated, EventDate: at,
			ChangedFields: map[string]interface{}{"new_score": 55.0}},
		{Seq: 5, EventType: EventRiskScoreUpdated, EventDate: at,
			ChangedFields: map[string]interface{}{"new_score": 30.0}},
		{Seq: 6, EventType: EventRiskScoreUpdated, EventDate: at,
			ChangedFields: map[string]interface{}{"new_score": 45.0}},
	}
	ev := BuildRiskEvolution(r, events)
	want := []float64{30, 45, 55}
	if len(ev.Scores) != len(want) {
		t.Fatalf("expected %d points, got %v", len(want), ev.Scores)
	}
	for i := range want {
		if ev.Scores[i] != want[i] {
			t.Errorf("expected insertion order %v, got %v", want, ev.Scores)
			break
		}
	}
}

func TestBuildRiskEvolution_CurrentFallback(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &MedicalRecord{RiskScore: 12, RiskLevel: RiskLevelLow, LastRiskCalculation: &at}
	ev := BuildRiskEvolution(r, nil)
	if len(ev.DataPoints) != 1 {
		t.Fatalf("expected 1 point, got %d", len(ev.DataPoints))
	}
	p := ev.DataPoints[0]
	if p.Label != "Current" || p.Score != 12 || !p.Date.Equal(at) {
		t.Errorf("unexpected point: %+v", p)
	}
}

func TestService_RiskEvolution(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	r := scenarioRecord()
	env.svc.CreateRecord(ctx, r)

	ev, err := env.svc.RiskEvolution(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ev.Scores) != 1 || ev.Scores[0] != 59 {
		t.Errorf("expected one point at 59, got %v", ev.Scores)
	}
}

func TestService_PatientOverview(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	pid := uuid.New()

	empty, err := env.svc.PatientOverview(ctx, pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.TotalRecords != 0 || empty.CurrentRiskLevel != RiskLevelLow {
		t.Errorf("unexpected empty overview: %+v", empty)
	}

	older := youngRecord()
	older.PatientID = pid
	env.svc.CreateRecord(ctx, older)
	latest := scenarioRecord()
	latest.PatientID = pid
	env.svc.CreateRecord(ctx, latest)
	env.svc.AddPreventionAction(ctx, &PreventionAction{MedicalRecordID: latest.ID, ActionType: "A", Status: StatusCompleted})
	env.svc.AddPreventionAction(ctx, &PreventionAction{MedicalRecordID: latest.ID, ActionType: "B"})

	ov, err := env.svc.PatientOverview(ctx, pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.TotalRecords != 2 || ov.LatestRecordID != latest.ID {
		t.Errorf("expected latest record selected, got %+v", ov)
	}
	if ov.CurrentRiskScore != 59 || ov.TotalPreventionActions != 2 || ov.AdherenceRate != 50 {
		t.Errorf("unexpected overview: %+v", ov)
	}
}

func TestService_Dashboard(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	r := scenarioRecord()
	env.svc.CreateRecord(ctx, r)
	env.svc.AddRiskFactor(ctx, &RiskFactor{MedicalRecordID: r.ID, FactorType: "Hypertension", Severity: SeverityCritical})

	d, err := env.svc.Dashboard(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 59 + 7*1.3
	if d.RiskStats.Score != 68.1 || d.RiskStats.Critical != 1 || d.RiskStats.ActiveCount != 1 {
		t.Errorf("unexpected risk stats: %+v", d.RiskStats)
	}
	if d.RiskStats.Breakdown.Total != d.RiskStats.Score {
		t.Errorf("expected breakdown total to match score, got %v", d.RiskStats.Breakdown.Total)
	}
	if d.TimelineCount != 3 {
		t.Errorf("expected 3 timeline events, got %d", d.TimelineCount)
	}
	if len(d.SuggestedActions) != 5 || len(d.Lifestyle) != 6 {
		t.Errorf("unexpected suggestions: %d/%d", len(d.SuggestedActions), len(d.Lifestyle))
	}
}
