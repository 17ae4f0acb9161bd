package wellness

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alzcare/alzcare/internal/platform/apperr"
	"github.com/alzcare/alzcare/internal/platform/auth"
	"github.com/alzcare/alzcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the prevention API under api/health-prevention.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/health-prevention")

	read := g.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/profiles", h.ListProfiles)
	read.GET("/profiles/:id", h.GetProfile)
	read.GET("/profiles/patient/:patient_id", h.GetProfileByPatient)
	read.GET("/profiles/patient/:patient_id/dashboard", h.GetDashboard)
	read.GET("/recommendations/:id", h.GetRecommendation)
	read.GET("/recommendations/profile/:profile_id", h.ListRecommendations)
	read.GET("/recommendations/profile/:profile_id/status/:status", h.ListRecommendationsByStatus)
	read.GET("/recommendations/profile/:profile_id/category/:category", h.ListRecommendationsByCategory)
	read.GET("/activities/:id", h.GetActivity)
	read.GET("/activities/profile/:profile_id", h.ListActivities)

	write := g.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/profiles", h.CreateProfile)
	write.PUT("/profiles/:id", h.UpdateProfile)
	write.DELETE("/profiles/:id", h.DeleteProfile)
	write.POST("/profiles/:id/generate-recommendations", h.GenerateRecommendations)
	write.POST("/recommendations", h.CreateRecommendation)
	write.PUT("/recommendations/:id", h.UpdateRecommendation)
	write.PATCH("/recommendations/:id/complete", h.CompleteRecommendation)
	write.DELETE("/recommendations/:id", h.DeleteRecommendation)
	write.POST("/activities", h.LogActivity)
	write.PUT("/activities/:id", h.UpdateActivity)
	write.DELETE("/activities/:id", h.DeleteActivity)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// ── Profiles ──

func (h *Handler) CreateProfile(c echo.Context) error {
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreateProfile(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetProfileByPatient(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfileByPatient(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProfiles(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListProfiles(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProfile(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProfile(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	pid, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GenerateRecommendations(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	recs, err := h.svc.GenerateRecommendations(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, recs)
}

// ── Recommendations ──

func (h *Handler) CreateRecommendation(c echo.Context) error {
	var in RecommendationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.CreateRecommendation(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRecommendation(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.GetRecommendation(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) listRecommendations(c echo.Context, f RecommendationFilter) error {
	pid, err := uuidParam(c, "profile_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListRecommendations(c.Request().Context(), pid, f)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListRecommendations(c echo.Context) error {
	return h.listRecommendations(c, RecommendationFilter{})
}

func (h *Handler) ListRecommendationsByStatus(c echo.Context) error {
	st, err := ParseStatus(c.Param("status"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return h.listRecommendations(c, RecommendationFilter{Status: st})
}

func (h *Handler) ListRecommendationsByCategory(c echo.Context) error {
	cat, err := ParseCategory(c.Param("category"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return h.listRecommendations(c, RecommendationFilter{Category: cat})
}

func (h *Handler) UpdateRecommendation(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in RecommendationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.UpdateRecommendation(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CompleteRecommendation(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.CompleteRecommendation(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteRecommendation(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRecommendation(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ── Activities ──

func (h *Handler) LogActivity(c echo.Context) error {
	var in ActivityInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.LogActivity(c.Request().Context(), in)
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

func (h *Handler) ListActivities(c echo.Context) error {
	pid, err := uuidParam(c, "profile_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListActivities(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
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
