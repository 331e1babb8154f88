package tracking

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinictrack/clinictrack/internal/platform/auth"
	"github.com/clinictrack/clinictrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "data_clerk", "clinician", "case_worker")
	g := api.Group("", role)
	g.POST("/tracking", h.Create)
	g.GET("/tracking/:id", h.Get)
	g.GET("/clients/:client_id/tracking", h.ListByClient)
	g.POST("/tracking/:id/resolve", h.Resolve)
}

type createRequest struct {
	ClientID         uuid.UUID  `json:"client_id"`
	Kind             string     `json:"kind"`
	InterventionDate time.Time  `json:"intervention_date"`
	Findings         string     `json:"findings"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec := &Record{
		ClientID:         req.ClientID,
		ActorID:          auth.UserIDFromContext(c.Request().Context()),
		Kind:             req.Kind,
		InterventionDate: req.InterventionDate,
		Findings:         req.Findings,
		FollowUpDate:     req.FollowUpDate,
	}
	if err := h.svc.Create(c.Request().Context(), rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tracking record not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListByClient(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client_id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByClient(c.Request().Context(), clientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Resolve(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "tracking record not found")
	}
	return c.NoContent(http.StatusNoContent)
}
