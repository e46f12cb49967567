package users

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayushmap/ayushmap/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the account endpoints. They are public; the auth
// skipper lists the same paths.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/users")
	g.POST("/register/", h.Register)
	g.POST("/login/", h.Login)
	g.POST("/token/refresh/", h.Refresh)
	g.POST("/logout/", h.Logout)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	u, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	verr := &ValidationError{}
	if req.Email == "" {
		verr.add("email", "This field is required.")
	}
	if req.Password == "" {
		verr.add("password", "This field is required.")
	}
	if err := verr.orNil(); err != nil {
		return toHTTPError(err)
	}

	pair, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Refresh == "" {
		return toHTTPError(&ValidationError{Fields: map[string][]string{"refresh": {"This field is required."}}})
	}
	access, err := h.svc.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"access": access})
}

func (h *Handler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Refresh == "" {
		return toHTTPError(&ValidationError{Fields: map[string][]string{"refresh": {"This field is required."}}})
	}
	if err := h.svc.Logout(c.Request().Context(), req.Refresh); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toHTTPError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked):
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"detail": "internal server error"}).SetInternal(err)
	}
}
