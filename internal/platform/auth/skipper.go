package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths reachable without an access token: health
// checks, the API document, and the account endpoints that hand tokens out.
var publicPaths = map[string]bool{
	"/health":                   true,
	"/health/db":                true,
	"/api/openapi.json":         true,
	"/api/users/register/":      true,
	"/api/users/login/":         true,
	"/api/users/token/refresh/": true,
	"/api/users/logout/":        true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication. It matches on the registered route path, not the raw URL.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
