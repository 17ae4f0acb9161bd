package medical

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChartData is the label/count shape consumed by dashboard charts.
type ChartData struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
	Total  int      `json:"total"`
}

var distributionOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// SeverityDistribution counts active factors per severity, most severe first.
func SeverityDistribution(factors []*RiskFactor) ChartData {
	active := ActiveFactors(factors)
	counts := map[Severity]int{}
	for _, f := range active {
		counts[f.Severity]++
	}
	out := ChartData{Total: len(active)}
	for _, sev := range distributionOrder {
		out.Labels = append(out.Labels, string(sev))
		out.Counts = append(out.Counts, counts[sev])
	}
	return out
}

// ActionsPerMonth buckets actions by calendar month of ActionDate, oldest first.
func ActionsPerMonth(actions []*PreventionAction) ChartData {
	counts := map[time.Time]int{}
	for _, a := range actions {
		d := a.ActionDate.UTC()
		counts[time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)]++
	}
	months := make([]time.Time, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := ChartData{Total: len(actions), Labels: []string{}, Counts: []int{}}
	for _, m := range months {
		out.Labels = append(out.Labels, m.Format("Jan 2006"))
		out.Counts = append(out.Counts, counts[m])
	}
	return out
}

type EvolutionPoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
	Level RiskLevel `json:"level"`
	Label string    `json:"label"`
}

type RiskEvolution struct {
	Labels     []string         `json:"labels"`
	Scores     []float64        `json:"scores"`
	DataPoints []EvolutionPoint `json:"data_points"`
}

// BuildRiskEvolution replays RISK_SCORE_UPDATED events oldest first, in
// insertion order when timestamps tie. A record with no recorded changes
// yields its current score as one point.
func BuildRiskEvolution(r *MedicalRecord, events []*TimelineEvent) RiskEvolution {
	var updates []*TimelineEvent
	for _, ev := range events {
		if ev.EventType == EventRiskScoreUpdated {
			updates = append(updates, ev)
		}
	}
	sort.SliceStable(updates, func(i, j int) bool {
		if !updates[i].EventDate.Equal(updates[j].EventDate) {
			return updates[i].EventDate.Before(updates[j].EventDate)
		}
		return updates[i].Seq < updates[j].Seq
	})

	var points []EvolutionPoint
	for _, ev := range updates {
		score, ok := number(ev.ChangedFields["new_score"])
		if !ok {
			continue
		}
		level := DetermineRiskLevel(score)
		if l, ok := ev.ChangedFields["new_level"].(string); ok && l != "" {
			level = RiskLevel(l)
		}
		points = append(points, EvolutionPoint{Date: ev.EventDate, Score: score, Level: level, Label: string(ev.EventType)})
	}

	if len(points) == 0 {
		at := r.UpdatedAt
		if r.LastRiskCalculation != nil {
			at = *r.LastRiskCalculation
		}
		points = append(points, EvolutionPoint{Date: at, Score: r.RiskScore, Level: r.RiskLevel, Label: "Current"})
	}

	out := RiskEvolution{DataPoints: points}
	for _, p := range points {
		out.Labels = append(out.Labels, p.Date.Format("Jan 02"))
		out.Scores = append(out.Scores, p.Score)
	}
	return out
}

// number reads a numeric changed-field value, which is a float64 after a
// JSON round trip.
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (s *Service) RiskFactorDistribution(ctx context.Context, recordID uuid.UUID) (ChartData, error) {
	factors, err := s.factors.ListByRecord(ctx, recordID, true)
	if err != nil {
		return ChartData{}, err
	}
	return SeverityDistribution(factors), nil
}

func (s *Service) ActionsPerMonth(ctx context.Context, recordID uuid.UUID) (ChartData, error) {
	actions, err := s.actions.ListByRecord(ctx, recordID, "")
	if err != nil {
		return ChartData{}, err
	}
	return ActionsPerMonth(actions), nil
}

func (s *Service) RiskEvolution(ctx context.Context, recordID uuid.UUID) (RiskEvolution, error) {
	r, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return RiskEvolution{}, err
	}
	events, err := s.timeline.ListByType(ctx, recordID, EventRiskScoreUpdated)
	if err != nil {
		return RiskEvolution{}, err
	}
	return BuildRiskEvolution(r, events), nil
}

// PatientOverview summarizes a patient's most recent record.
type PatientOverview struct {
	TotalRecords           int       `json:"total_records"`
	LatestRecordID         uuid.UUID `json:"latest_record_id"`
	CurrentRiskScore       float64   `json:"current_risk_score"`
	CurrentRiskLevel       RiskLevel `json:"current_risk_level"`
	TotalRiskFactors       int       `json:"total_risk_factors"`
	ActiveRiskFactors      int       `json:"active_risk_factors"`
	TotalPreventionActions int       `json:"total_prevention_actions"`
	CompletedActions       int       `json:"completed_actions"`
	AdherenceRate          float64   `json:"adherence_rate"`
}

func (s *Service) PatientOverview(ctx context.Context, patientID uuid.UUID) (*PatientOverview, error) {
	records, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	ov := &PatientOverview{TotalRecords: len(records), CurrentRiskLevel: RiskLevelLow}
	if len(records) == 0 {
		return ov, nil
	}
	latest := records[0]
	ov.LatestRecordID = latest.ID
	ov.CurrentRiskScore = latest.RiskScore
	ov.CurrentRiskLevel = latest.RiskLevel

	fst, err := s.RiskFactorStats(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	ov.TotalRiskFactors = fst.Total
	ov.ActiveRiskFactors = fst.Active

	ast, err := s.PreventionStats(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	ov.TotalPreventionActions = ast.Total
	ov.CompletedActions = ast.Completed
	ov.AdherenceRate = ast.AdherenceRate
	return ov, nil
}

// ── Dashboard ──

type RiskStats struct {
	Score        float64        `json:"score"`
	Level        RiskLevel      `json:"level"`
	TotalFactors int            `json:"total_factors"`
	ActiveCount  int            `json:"active_factors"`
	Critical     int            `json:"critical_factors"`
	High         int            `json:"high_factors"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
}

type Dashboard struct {
	Record           *MedicalRecord     `json:"record"`
	RiskStats        RiskStats          `json:"risk_stats"`
	PreventionStats  AdherenceStats     `json:"prevention_stats"`
	TimelineCount    int                `json:"timeline_count"`
	Recommendations  []string           `json:"recommendations"`
	SuggestedActions []ActionSuggestion `json:"suggested_actions"`
	Lifestyle        []string           `json:"lifestyle"`
}

func (s *Service) Dashboard(ctx context.Context, recordID uuid.UUID) (*Dashboard, error) {
	r, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	all, err := s.factors.ListByRecord(ctx, recordID, false)
	if err != nil {
		return nil, err
	}
	active := ActiveFactors(all)
	prevention, err := s.PreventionStats(ctx, recordID)
	if err != nil {
		return nil, err
	}
	count, err := s.timeline.Count(ctx, recordID)
	if err != nil {
		return nil, err
	}

	rs := RiskStats{
		Score:        r.RiskScore,
		Level:        r.RiskLevel,
		TotalFactors: len(all),
		ActiveCount:  len(active),
		Breakdown:    Breakdown(r, active),
	}
	for _, f := range active {
		switch f.Severity {
		case SeverityCritical:
			rs.Critical++
		case SeverityHigh:
			rs.High++
		}
	}

	return &Dashboard{
		Record:           r,
		RiskStats:        rs,
		PreventionStats:  prevention,
		TimelineCount:    count,
		Recommendations:  GenerateRecommendations(r, active, r.RiskScore),
		SuggestedActions: SuggestPreventionActions(r, r.RiskScore),
		Lifestyle:        GenerateLifestyleRecommendations(),
	}, nil
}
