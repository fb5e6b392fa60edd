package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/teledrop/teledrop/internal/auth"
	"github.com/teledrop/teledrop/internal/config"
)

// AuthHandler serves the login form and manages dashboard sessions.
type AuthHandler struct {
	logger    *slog.Logger
	sessions  *auth.Sessions
	cfg       config.DashboardConfig
	staticDir string
}

func NewAuthHandler(log *slog.Logger, sessions *auth.Sessions, cfg config.DashboardConfig, staticDir string) *AuthHandler {
	return &AuthHandler{
		logger:    log.With(slog.String("handler", "auth")),
		sessions:  sessions,
		cfg:       cfg,
		staticDir: staticDir,
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	e.GET("/login", h.LoginPage)
	e.POST("/login", h.Login)
	e.GET("/logout", h.Logout)
}

func (h *AuthHandler) LoginPage(c echo.Context) error {
	if _, ok := h.sessions.UserFromRequest(c); ok {
		return c.Redirect(http.StatusFound, "/")
	}
	return c.File(filepath.Join(h.staticDir, "login.html"))
}

func (h *AuthHandler) Login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.Password)) == 1
	if !userOK || !passOK {
		h.logger.Warn("failed login attempt", slog.String("username", username), slog.String("remote", c.RealIP()))
		return c.Redirect(http.StatusFound, "/login?error=1")
	}

	token := h.sessions.Issue(username)
	c.SetCookie(h.sessions.Cookie(token))
	h.logger.Info("dashboard login", slog.String("username", username))
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(auth.CookieName); err == nil {
		h.sessions.Revoke(cookie.Value)
	}
	c.SetCookie(auth.ClearCookie())
	return c.Redirect(http.StatusFound, "/login")
}
