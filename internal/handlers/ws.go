package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/teledrop/teledrop/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard and the websocket are served from the same origin, and
	// the session cookie gates the upgrade before this runs.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades dashboard connections and feeds them into the hub.
type WSHandler struct {
	logger *slog.Logger
	hub    *events.Hub
}

func NewWSHandler(log *slog.Logger, hub *events.Hub) *WSHandler {
	return &WSHandler{
		logger: log.With(slog.String("handler", "ws")),
		hub:    hub,
	}
}

func (h *WSHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

func (h *WSHandler) Serve(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return nil
	}
	h.logger.Info("dashboard connected", slog.String("remote", c.RealIP()))

	h.hub.Register(ws)
	defer func() {
		h.hub.Unregister(ws)
		h.logger.Info("dashboard disconnected", slog.String("remote", c.RealIP()))
	}()

	// Broadcasts flow out through the hub; the read loop acknowledges every
	// client frame and detects the peer going away.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
		h.hub.Send(ws, events.Pong())
	}
}
