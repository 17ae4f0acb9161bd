package medical

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alzcare/alzcare/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func seedRecord(t *testing.T, h *Handler) *MedicalRecord {
	t.Helper()
	r := scenarioRecord()
	if err := h.svc.CreateRecord(context.Background(), r); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return r
}

// ── Medical records ──

func TestHandler_CreateRecord(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","age":82,"gender":"Female","family_history":"Yes","education_level":"PhD","current_symptoms":"memory loss and confusion"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var out MedicalRecord
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.RiskScore != 59 || out.RiskLevel != RiskLevelHigh {
		t.Errorf("expected 59/HIGH, got %v/%s", out.RiskScore, out.RiskLevel)
	}
}

func TestHandler_CreateRecord_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	body := `{"age":50}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h.CreateRecord(c)
	if httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetRecord(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	if err := h.GetRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["id"] != r.ID.String() {
		t.Errorf("expected embedded record fields, got %v", out)
	}
	if recs, ok := out["recommendations"].([]interface{}); !ok || len(recs) == 0 {
		t.Errorf("expected recommendations, got %v", out["recommendations"])
	}
}

func TestHandler_GetRecord_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.GetRecord(c); httpStatus(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetRecord_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.GetRecord(c); httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ListRecords(t *testing.T) {
	h, e := newTestHandler()
	seedRecord(t, h)

	req := httptest.NewRequest(http.MethodGet, "/?risk_level=high&limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListRecords(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["total"] != 1.0 {
		t.Errorf("expected total 1, got %v", out["total"])
	}
}

func TestHandler_ListRecords_BadFilter(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?gender=robot", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListRecords(c); httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_UpdateRecord(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	body := `{"family_history":"No"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	if err := h.UpdateRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out MedicalRecord
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.RiskScore != 34 || out.RiskLevel != RiskLevelMedium {
		t.Errorf("expected 34/MEDIUM, got %v/%s", out.RiskScore, out.RiskLevel)
	}
}

func TestHandler_DeleteRecord(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	if err := h.DeleteRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

// ── Risk factors ──

func TestHandler_CreateRiskFactor(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	body := `{"medical_record_id":"` + r.ID.String() + `","factor_type":"Hypertension","severity":"HIGH"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateRiskFactor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateRiskFactor_DateOnly(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	body := `{"medical_record_id":"` + r.ID.String() + `","factor_type":"Diabetes","diagnosed_date":"2024-06-01"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateRiskFactor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var created RiskFactor
	json.Unmarshal(rec.Body.Bytes(), &created)
	stored, err := h.svc.factors.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("stored factor: %v", err)
	}
	if stored.DiagnosedDate == nil || stored.DiagnosedDate.Format(DateLayout) != "2024-06-01" {
		t.Errorf("unexpected diagnosed date: %v", stored.DiagnosedDate)
	}

	body = `{"medical_record_id":"` + r.ID.String() + `","factor_type":"Diabetes","diagnosed_date":"06/01/2024"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	if err := h.CreateRiskFactor(c); httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown date layout, got %v", err)
	}
}

func TestHandler_CreatePreventionAction_DateOnly(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	body := `{"medical_record_id":"` + r.ID.String() + `","action_type":"Memory workshop","action_date":"2025-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreatePreventionAction(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var created PreventionAction
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ActionDate.Format(DateLayout) != "2025-03-01" {
		t.Errorf("unexpected action date: %v", created.ActionDate)
	}
}

func TestHandler_CreateRiskFactor_UnknownRecord(t *testing.T) {
	h, e := newTestHandler()
	body := `{"medical_record_id":"` + uuid.New().String() + `","factor_type":"Hypertension"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreateRiskFactor(c); httpStatus(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_DeleteRiskFactor_KeepsRow(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)
	f := &RiskFactor{MedicalRecordID: r.ID, FactorType: "Smoking"}
	h.svc.AddRiskFactor(context.Background(), f)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.ID.String())
	if err := h.DeleteRiskFactor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("record_id")
	c.SetParamValues(r.ID.String())
	if err := h.ListRiskFactors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var all []RiskFactor
	json.Unmarshal(rec.Body.Bytes(), &all)
	if len(all) != 1 || all[0].IsActive {
		t.Errorf("expected one inactive factor, got %+v", all)
	}
}

// ── Prevention actions ──

func TestHandler_PreventionActionLifecycle(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	body := `{"medical_record_id":"` + r.ID.String() + `","action_type":"Cognitive Training"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.CreatePreventionAction(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var created PreventionAction
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}

	req = httptest.NewRequest(http.MethodPatch, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.CompletePreventionAction(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var done PreventionAction
	json.Unmarshal(rec.Body.Bytes(), &done)
	if done.Status != StatusCompleted || done.CompletedDate == nil {
		t.Errorf("expected completed with date, got %+v", done)
	}

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"IN_PROGRESS"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.UpdatePreventionActionStatus(c); httpStatus(err) != http.StatusConflict {
		t.Errorf("expected 409 leaving terminal state, got %v", err)
	}
}

func TestHandler_UpdatePreventionActionStatus_Missing(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.UpdatePreventionActionStatus(c); httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ListPreventionActionsByStatus_Invalid(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("record_id", "status")
	c.SetParamValues(uuid.New().String(), "DONE")
	if err := h.ListPreventionActionsByStatus(c); httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_FilterPreventionActions_BadDates(t *testing.T) {
	h, e := newTestHandler()
	tests := []string{
		"/?start=2025-01-01",
		"/?start=01/01/2025&end=2025-02-01",
		"/?start=2025-02-01&end=2025-01-01",
	}
	for _, target := range tests {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("record_id")
		c.SetParamValues(uuid.New().String())
		if err := h.FilterPreventionActions(c); httpStatus(err) != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", target, err)
		}
	}
}

// ── Timeline ──

func TestHandler_ListTimeline(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("record_id")
	c.SetParamValues(r.ID.String())
	if err := h.ListTimeline(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["total"] != 1.0 {
		t.Errorf("expected 1 event, got %v", out["total"])
	}
}

func TestHandler_FilterTimeline_InclusiveDays(t *testing.T) {
	h, e := newTestHandler()
	r := seedRecord(t, h)
	day := fixedNow.Format("2006-01-02")

	req := httptest.NewRequest(http.MethodGet, "/?start="+day+"&end="+day, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("record_id")
	c.SetParamValues(r.ID.String())
	if err := h.FilterTimeline(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []TimelineEvent
	json.Unmarshal(rec.Body.Bytes(), &out)
	if len(out) != 1 {
		t.Errorf("expected the same-day event, got %d", len(out))
	}
}

func TestHandler_ListTimelineByType_Invalid(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("record_id", "event_type")
	c.SetParamValues(uuid.New().String(), "SOMETHING")
	if err := h.ListTimelineByType(c); httpStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

// ── Routing & roles ──

func newRoutedEcho(h *Handler, roles ...string) *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, "user-1")
			ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	h.RegisterRoutes(e.Group("/api/v1"), e.Group("/fhir"))
	return e
}

func TestRegisterRoutes_RoleEnforcement(t *testing.T) {
	h, _ := newTestHandler()
	r := seedRecord(t, h)

	tests := []struct {
		name   string
		role   string
		method string
		path   string
		want   int
	}{
		{"patient reads record", auth.RolePatient, http.MethodGet, "/api/v1/medical-records/" + r.ID.String(), http.StatusOK},
		{"patient cannot create", auth.RolePatient, http.MethodPost, "/api/v1/medical-records", http.StatusForbidden},
		{"caregiver cannot see stats", auth.RoleCaregiver, http.MethodGet, "/api/v1/medical-records/stats", http.StatusForbidden},
		{"doctor sees stats", auth.RoleDoctor, http.MethodGet, "/api/v1/medical-records/stats", http.StatusOK},
		{"admin bypass", auth.RoleAdmin, http.MethodGet, "/api/v1/medical-records/stats", http.StatusOK},
		{"fhir read", auth.RoleCaregiver, http.MethodGet, "/fhir/RiskAssessment/" + r.ID.String(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newRoutedEcho(h, tt.role)
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
