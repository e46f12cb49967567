package mapping

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ayushmap/ayushmap/internal/platform/auth"
	"github.com/ayushmap/ayushmap/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the mapping endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/mappings")
	g.POST("/map-ayush/", h.MapAyush)
	g.GET("/history/", h.History)
}

// MapAyush handles POST /api/mappings/map-ayush/.
func (h *Handler) MapAyush(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req MapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string][]string{"non_field_errors": {"Malformed request body."}})
	}

	rec, err := h.svc.MapTerm(c.Request().Context(), userID, req.AyushTerm)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// History handles GET /api/mappings/history/. Without limit or offset every
// record is returned.
func (h *Handler) History(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var limit, offset int
	if pagination.Requested(c) {
		p := pagination.FromContext(c)
		limit, offset = p.Limit, p.Offset
	}

	records, err := h.svc.History(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	if records == nil {
		records = []*MappingRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
	}
	return id, nil
}

func toHTTPError(err error) error {
	var verr *ValidationError
	var perr *PersistenceError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
	case errors.As(err, &perr):
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"error": "failed to save mapping"}).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"error": "failed to process mapping"}).SetInternal(err)
	}
}
