package cognitive

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the activity catalogue and sessions under
// api/cognitive-activities. Patients may play; only clinicians curate the
// catalogue.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/cognitive-activities")

	read := g.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("", h.ListActive)
	read.GET("/filter", h.Filter)
	read.GET("/search", h.Search)
	read.GET("/type/:type", h.ByType)
	read.GET("/difficulty/:difficulty", h.ByDifficulty)
	read.GET("/:id", h.GetActivity)
	read.POST("/:id/start", h.Start)
	read.GET("/sessions/:id", h.GetSession)
	read.PUT("/sessions/:id/complete", h.Complete)
	read.PUT("/sessions/:id/abandon", h.Abandon)
	read.GET("/patients/:patient_id/history", h.History)
	read.GET("/patients/:patient_id/completed", h.Completed)
	read.GET("/patients/:patient_id/recommendations", h.Recommendations)
	read.GET("/statistics/patient/:patient_id", h.PatientStats)

	write := g.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("", h.CreateActivity)
	write.PUT("/:id", h.UpdateActivity)
	write.PATCH("/:id/deactivate", h.Deactivate)
	write.DELETE("/:id", h.DeleteActivity)
	write.GET("/statistics/global", h.GlobalStats)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// ── Catalogue ──

func (h *Handler) CreateActivity(c echo.Context) error {
	var in ActivityInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.CreateActivity(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetActivity(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.GetActivity(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateActivity(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in ActivityInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateActivity(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.DeactivateActivity(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteActivity(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteActivity(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) list(c echo.Context, f ActivityFilter) error {
	items, err := h.svc.ListActivities(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListActive(c echo.Context) error {
	return h.list(c, ActivityFilter{ActiveOnly: true})
}

func (h *Handler) ByType(c echo.Context) error {
	t, err := ParseActivityType(c.Param("type"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return h.list(c, ActivityFilter{Type: t})
}

func (h *Handler) ByDifficulty(c echo.Context) error {
	d, err := ParseDifficulty(c.Param("difficulty"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return h.list(c, ActivityFilter{Difficulty: d})
}

// Filter lists active activities, optionally narrowed by type and difficulty.
func (h *Handler) Filter(c echo.Context) error {
	f := ActivityFilter{ActiveOnly: true}
	if v := c.QueryParam("type"); v != "" {
		t, err := ParseActivityType(v)
		if err != nil {
			return apperr.HTTPError(err)
		}
		f.Type = t
	}
	if v := c.QueryParam("difficulty"); v != "" {
		d, err := ParseDifficulty(v)
		if err != nil {
			return apperr.HTTPError(err)
		}
		f.Difficulty = d
	}
	return h.list(c, f)
}

func (h *Handler) Search(c echo.Context) error {
	kw := c.QueryParam("keyword")
	if kw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "keyword is required")
	}
	return h.list(c, ActivityFilter{Keyword: kw})
}

// ── Sessions ──

func (h *Handler) Start(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in StartInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.StartActivity(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) finish(c echo.Context, fn func(context.Context, uuid.UUID, FinishInput) (*Session, error)) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in FinishInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := fn(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Complete(c echo.Context) error { return h.finish(c, h.svc.CompleteSession) }
func (h *Handler) Abandon(c echo.Context) error  { return h.finish(c, h.svc.AbandonSession) }

func (h *Handler) History(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	var status SessionStatus
	if v := c.QueryParam("status"); v != "" {
		if status, err = ParseSessionStatus(v); err != nil {
			return apperr.HTTPError(err)
		}
	}
	items, err := h.svc.History(c.Request().Context(), pid, status)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Completed(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	items, err := h.svc.CompletedActivities(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Recommendations(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	items, err := h.svc.Recommendations(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// ── Statistics ──

func (h *Handler) PatientStats(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	st, err := h.svc.PatientStats(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GlobalStats(c echo.Context) error {
	st, err := h.svc.GlobalStats(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}
