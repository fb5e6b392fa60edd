package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/teledrop/teledrop/internal/events"
)

// BotPresence reports whether each Telegram lane is up. Implemented by the
// composition root so the handler does not depend on the clients directly.
type BotPresence interface {
	BotConnected() bool
	LargeFileLaneReady() bool
}

// DashboardHandler serves the single-page dashboard and the health probe.
type DashboardHandler struct {
	logger    *slog.Logger
	staticDir string
	hub       *events.Hub
	presence  BotPresence
}

func NewDashboardHandler(log *slog.Logger, staticDir string, hub *events.Hub, presence BotPresence) *DashboardHandler {
	return &DashboardHandler{
		logger:    log.With(slog.String("handler", "dashboard")),
		staticDir: staticDir,
		hub:       hub,
		presence:  presence,
	}
}

func (h *DashboardHandler) Register(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/health", h.Health)
	e.Static("/static", h.staticDir)
}

func (h *DashboardHandler) Index(c echo.Context) error {
	return c.File(filepath.Join(h.staticDir, "index.html"))
}

func (h *DashboardHandler) Health(c echo.Context) error {
	resp := map[string]any{
		"status":     "ok",
		"ws_clients": h.hub.Len(),
	}
	if h.presence != nil {
		resp["bot_connected"] = h.presence.BotConnected()
		resp["large_files"] = h.presence.LargeFileLaneReady()
	}
	return c.JSON(http.StatusOK, resp)
}
