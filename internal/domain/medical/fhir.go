package medical

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/fhir"
	"github.com/alzcare/alzcare/pkg/pagination"
)

const (
	snomedSystem    = "http://snomed.info/sct"
	alzheimersCode  = "26929004"
	riskLevelSystem = "http://terminology.hl7.org/CodeSystem/risk-probability"
)

var riskProbabilityCodes = map[RiskLevel]string{
	RiskLevelLow:      "low",
	RiskLevelMedium:   "moderate",
	RiskLevelHigh:     "high",
	RiskLevelCritical: "certain",
}

// ToFHIR renders the record's current assessment as a FHIR R4 RiskAssessment.
func ToFHIR(r *MedicalRecord, factors []*RiskFactor) *fhir.RiskAssessment {
	probability := round2(r.RiskScore / 100)
	ra := &fhir.RiskAssessment{
		ResourceType: "RiskAssessment",
		ID:           r.ID.String(),
		Meta:         &fhir.Meta{LastUpdated: r.UpdatedAt},
		Status:       "final",
		Code:         &fhir.CodeableConcept{Text: "Alzheimer's disease risk score"},
		Subject:      fhir.Reference{Reference: fhir.FormatReference("Patient", r.PatientID.String())},
		Prediction: []fhir.RiskPrediction{{
			Outcome: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{System: snomedSystem, Code: alzheimersCode, Display: "Alzheimer's disease"}},
				Text:   "Alzheimer's disease",
			},
			ProbabilityDecimal: &probability,
			QualitativeRisk: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{System: riskLevelSystem, Code: riskProbabilityCodes[r.RiskLevel], Display: string(r.RiskLevel)}},
				Text:   string(r.RiskLevel),
			},
		}},
		Mitigation: strings.Join(GenerateRecommendations(r, factors, r.RiskScore), "\n"),
	}
	if r.LastRiskCalculation != nil {
		ra.OccurrenceDateTime = r.LastRiskCalculation.UTC().Format(time.RFC3339)
	}
	if r.DiagnosisNotes != nil && *r.DiagnosisNotes != "" {
		ra.Note = []fhir.Annotation{{Text: *r.DiagnosisNotes}}
	}
	return ra
}

// CapabilityResource describes the RiskAssessment interactions served.
func CapabilityResource() fhir.CapabilityResource {
	return fhir.CapabilityResource{
		Type:        "RiskAssessment",
		Interaction: []fhir.CapabilityInteraction{{Code: "read"}, {Code: "search-type"}},
		SearchParam: []fhir.CapabilitySearchParam{
			{Name: "subject", Type: "reference"},
			{Name: "risk", Type: "token"},
		},
	}
}

// -- FHIR Handlers --

func (h *Handler) GetFHIR(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("RiskAssessment", c.Param("id")))
	}
	view, err := h.svc.GetRecordView(c.Request().Context(), id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("RiskAssessment", c.Param("id")))
		}
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome("failed to load risk assessment"))
	}
	fhir.SetVersionHeaders(c, 1, view.UpdatedAt)
	return c.JSON(http.StatusOK, ToFHIR(view.MedicalRecord, view.RiskFactors))
}

// SearchFHIR supports subject=Patient/<id> and risk=<level>.
func (h *Handler) SearchFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	if n, err := strconv.Atoi(c.QueryParam("_count")); err == nil && n > 0 && n <= pagination.MaxLimit {
		pg.Limit = n
	}
	var f RecordFilter
	if subject := c.QueryParam("subject"); subject != "" {
		pid, err := uuid.Parse(fhir.ParseReference("Patient", subject))
		if err != nil {
			return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("subject must reference a Patient"))
		}
		f.PatientID = pid
	}
	if risk := c.QueryParam("risk"); risk != "" {
		lvl, err := ParseRiskLevel(risk)
		if err != nil {
			return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
		}
		f.RiskLevel = lvl
	}

	ctx := c.Request().Context()
	records, total, err := h.svc.ListRecords(ctx, f, pg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome("search failed"))
	}
	resources := make([]interface{}, 0, len(records))
	for _, r := range records {
		factors, err := h.svc.ListRiskFactors(ctx, r.ID, true)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome("search failed"))
		}
		resources = append(resources, ToFHIR(r, factors))
	}
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, "/fhir/RiskAssessment"))
}
