package medical

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/auth"
	"github.com/alzcare/alzcare/pkg/pagination"
)

// Handler provides HTTP handlers for medical records, risk factors,
// prevention actions, the timeline and statistics.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the REST routes on api and the FHIR routes on fhirGroup.
func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/medical-records", h.ListRecords)
	read.GET("/medical-records/:id", h.GetRecord)
	read.GET("/medical-records/patient/:patient_id", h.ListRecordsByPatient)
	read.GET("/medical-records/:id/dashboard", h.GetDashboard)

	read.GET("/risk-factors/:id", h.GetRiskFactor)
	read.GET("/risk-factors/medical-record/:record_id", h.ListRiskFactors)
	read.GET("/risk-factors/medical-record/:record_id/active", h.ListActiveRiskFactors)
	read.GET("/risk-factors/medical-record/:record_id/stats", h.GetRiskFactorStats)

	read.GET("/prevention-actions/:id", h.GetPreventionAction)
	read.GET("/prevention-actions/medical-record/:record_id", h.ListPreventionActions)
	read.GET("/prevention-actions/medical-record/:record_id/status/:status", h.ListPreventionActionsByStatus)
	read.GET("/prevention-actions/medical-record/:record_id/stats", h.GetPreventionStats)
	read.GET("/prevention-actions/medical-record/:record_id/filter", h.FilterPreventionActions)

	read.GET("/timeline/medical-record/:record_id", h.ListTimeline)
	read.GET("/timeline/medical-record/:record_id/type/:event_type", h.ListTimelineByType)
	read.GET("/timeline/medical-record/:record_id/filter", h.FilterTimeline)

	read.GET("/statistics/medical-record/:record_id/risk-factors-distribution", h.GetRiskFactorDistribution)
	read.GET("/statistics/medical-record/:record_id/actions-per-month", h.GetActionsPerMonth)
	read.GET("/statistics/medical-record/:record_id/adherence", h.GetPreventionStats)
	read.GET("/statistics/medical-record/:record_id/risk-evolution", h.GetRiskEvolution)
	read.GET("/statistics/patient/:patient_id/overview", h.GetPatientOverview)

	write := api.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/medical-records", h.CreateRecord)
	write.PUT("/medical-records/:id", h.UpdateRecord)
	write.DELETE("/medical-records/:id", h.DeleteRecord)
	write.POST("/risk-factors", h.CreateRiskFactor)
	write.PUT("/risk-factors/:id", h.UpdateRiskFactor)
	write.DELETE("/risk-factors/:id", h.DeleteRiskFactor)
	write.POST("/prevention-actions", h.CreatePreventionAction)
	write.PUT("/prevention-actions/:id", h.UpdatePreventionAction)
	write.PATCH("/prevention-actions/:id/complete", h.CompletePreventionAction)
	write.PATCH("/prevention-actions/:id/status", h.UpdatePreventionActionStatus)
	write.DELETE("/prevention-actions/:id", h.DeletePreventionAction)

	stats := api.Group("", auth.RequireRole(auth.StatsRoles...))
	stats.GET("/medical-records/stats", h.GetRecordStats)

	fhirRead := fhirGroup.Group("", auth.RequireRole(auth.ReadRoles...))
	fhirRead.GET("/RiskAssessment", h.SearchFHIR)
	fhirRead.GET("/RiskAssessment/:id", h.GetFHIR)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// dateRange reads start and end (YYYY-MM-DD) as a half-open range covering
// both days in full.
func dateRange(c echo.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, c.QueryParam("start"))
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "start must be YYYY-MM-DD")
	}
	end, err := time.Parse(DateLayout, c.QueryParam("end"))
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "end must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "end must not be before start")
	}
	return start, end.AddDate(0, 0, 1), nil
}

// -- Medical records --

func (h *Handler) CreateRecord(c echo.Context) error {
	var r MedicalRecord
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRecord(c.Request().Context(), &r); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.svc.GetRecordView(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f RecordFilter
	var err error
	if v := c.QueryParam("risk_level"); v != "" {
		if f.RiskLevel, err = ParseRiskLevel(v); err != nil {
			return apperr.HTTPError(err)
		}
	}
	if v := c.QueryParam("gender"); v != "" {
		if f.Gender, err = ParseGender(v); err != nil {
			return apperr.HTTPError(err)
		}
	}
	if v := c.QueryParam("family_history"); v != "" {
		if f.FamilyHistory, err = ParseFamilyHistory(v); err != nil {
			return apperr.HTTPError(err)
		}
	}
	if v := c.QueryParam("patient_id"); v != "" {
		if f.PatientID, err = uuid.Parse(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
	}
	items, total, err := h.svc.ListRecords(c.Request().Context(), f, pg)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListRecordsByPatient(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListRecordsByPatient(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var patch RecordPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.UpdateRecord(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetRecordStats(c echo.Context) error {
	st, err := h.svc.RecordStats(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// -- Risk factors --

func (h *Handler) CreateRiskFactor(c echo.Context) error {
	var f RiskFactor
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddRiskFactor(c.Request().Context(), &f); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetRiskFactor(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	f, err := h.svc.GetRiskFactor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) listRiskFactors(c echo.Context, activeOnly bool) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListRiskFactors(c.Request().Context(), rid, activeOnly)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListRiskFactors(c echo.Context) error {
	return h.listRiskFactors(c, c.QueryParam("active") == "true")
}

func (h *Handler) ListActiveRiskFactors(c echo.Context) error {
	return h.listRiskFactors(c, true)
}

func (h *Handler) GetRiskFactorStats(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	st, err := h.svc.RiskFactorStats(c.Request().Context(), rid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateRiskFactor(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var patch RiskFactorPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.UpdateRiskFactor(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteRiskFactor(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveRiskFactor(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Prevention actions --

func (h *Handler) CreatePreventionAction(c echo.Context) error {
	var a PreventionAction
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddPreventionAction(c.Request().Context(), &a); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetPreventionAction(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.GetPreventionAction(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) listPreventionActions(c echo.Context, rawStatus string) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	var status ActionStatus
	if rawStatus != "" {
		if status, err = ParseActionStatus(rawStatus); err != nil {
			return apperr.HTTPError(err)
		}
	}
	items, err := h.svc.ListPreventionActions(c.Request().Context(), rid, status)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPreventionActions(c echo.Context) error {
	return h.listPreventionActions(c, c.QueryParam("status"))
}

func (h *Handler) ListPreventionActionsByStatus(c echo.Context) error {
	return h.listPreventionActions(c, c.Param("status"))
}

func (h *Handler) GetPreventionStats(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	st, err := h.svc.PreventionStats(c.Request().Context(), rid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) FilterPreventionActions(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPreventionActionsBetween(c.Request().Context(), rid, start, end)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdatePreventionAction(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var patch PreventionActionPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdatePreventionAction(c.Request().Context(), id, patch)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CompletePreventionAction(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.CompletePreventionAction(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdatePreventionActionStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == "" {
		return apperr.HTTPError(apperr.Required("status"))
	}
	a, err := h.svc.UpdatePreventionActionStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeletePreventionAction(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePreventionAction(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Timeline --

func (h *Handler) ListTimeline(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Timeline(c.Request().Context(), rid, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListTimelineByType(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	et, err := ParseEventType(c.Param("event_type"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	items, err := h.svc.TimelineByType(c.Request().Context(), rid, et)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) FilterTimeline(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	items, err := h.svc.TimelineBetween(c.Request().Context(), rid, start, end)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Statistics --

func (h *Handler) GetRiskFactorDistribution(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	d, err := h.svc.RiskFactorDistribution(c.Request().Context(), rid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetActionsPerMonth(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	d, err := h.svc.ActionsPerMonth(c.Request().Context(), rid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetRiskEvolution(c echo.Context) error {
	rid, err := uuidParam(c, "record_id")
	if err != nil {
		return err
	}
	ev, err := h.svc.RiskEvolution(c.Request().Context(), rid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *Handler) GetPatientOverview(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	ov, err := h.svc.PatientOverview(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ov)
}
