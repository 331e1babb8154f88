package exchange

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinictrack/clinictrack/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "data_clerk"))
	g.POST("/clients/import", h.Import)
	g.GET("/clients/export", h.Export)
}

// Import accepts a CSV roster, either as a multipart "file" field or as
// the raw request body.
func (h *Handler) Import(c echo.Context) error {
	facilityID, err := uuid.Parse(c.QueryParam("facility_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "facility_id is required")
	}

	body := c.Request().Body
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		defer f.Close()
		body = f
	}

	report, err := h.svc.ImportCSV(c.Request().Context(), facilityID, body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(report.Errors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, report)
	}
	return c.JSON(http.StatusOK, report)
}

// Export streams the facility roster as CSV (default) or Excel.
func (h *Handler) Export(c echo.Context) error {
	var facilityID uuid.UUID
	if fid := c.QueryParam("facility_id"); fid != "" {
		id, err := uuid.Parse(fid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility_id")
		}
		facilityID = id
	}

	switch c.QueryParam("format") {
	case "", "csv":
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="clients.csv"`)
		c.Response().WriteHeader(http.StatusOK)
		return h.svc.ExportCSV(c.Request().Context(), facilityID, c.Response())
	case "xlsx":
		c.Response().Header().Set(echo.HeaderContentType,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="clients.xlsx"`)
		c.Response().WriteHeader(http.StatusOK)
		return h.svc.ExportExcel(c.Request().Context(), facilityID, c.Response())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "format must be csv or xlsx")
	}
}
