package terminology

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayushmap/ayushmap/pkg/pagination"
)

// Handler provides REST endpoints for the ICD reference table.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes on an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/terminology")
	g.GET("/icd", h.SearchICD)
	g.GET("/icd/:code", h.LookupICD)
}

// SearchICD handles GET /api/v1/terminology/icd?q=...
func (h *Handler) SearchICD(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	p := pagination.FromContext(c)
	results, err := h.svc.SearchICD(c.Request().Context(), query, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "terminology search failed")
	}
	if results == nil {
		results = []*ICDCode{}
	}
	return c.JSON(http.StatusOK, results)
}

// LookupICD handles GET /api/v1/terminology/icd/:code
func (h *Handler) LookupICD(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	result, err := h.svc.LookupICD(c.Request().Context(), code)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "code not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "terminology lookup failed")
	}
	return c.JSON(http.StatusOK, result)
}
