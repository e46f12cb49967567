package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiHeaders are fixed for every response. Mapping results and history are
// scoped to the bearer token, so nothing may be stored by shared caches.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"Cache-Control", "no-store, private"},
	{"Pragma", "no-cache"},
}

// SecurityHeaders sets the response headers for the JSON API before the
// handler runs, so error responses carry them too.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			h.Add(echo.HeaderVary, echo.HeaderAuthorization)
			return next(c)
		}
	}
}
