package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware guards the dashboard. Public paths pass through, an
// unauthenticated WebSocket upgrade gets a plain 403, and everything else
// redirects to the login page.
func Middleware(sessions *Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if isPublicPath(path) {
				return next(c)
			}

			_, ok := sessions.UserFromRequest(c)
			if ok {
				return next(c)
			}

			if path == "/ws" {
				return c.String(http.StatusForbidden, "Unauthorized")
			}
			return c.Redirect(http.StatusFound, "/login")
		}
	}
}

func isPublicPath(path string) bool {
	switch path {
	case "/login", "/logout", "/health", "/metrics", "/favicon.ico":
		return true
	}
	return strings.HasPrefix(path, "/static")
}
