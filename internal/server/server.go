package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/teledrop/teledrop/internal/auth"
	"github.com/teledrop/teledrop/internal/handlers"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(log *slog.Logger, addr string, sessions *auth.Sessions, dashboardHandler *handlers.DashboardHandler, authHandler *handlers.AuthHandler, downloadsHandler *handlers.DownloadsHandler, wsHandler *handlers.WSHandler, metricsHandler *handlers.MetricsHandler) *Server {
	if addr == "" {
		addr = ":8000"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status))
			return nil
		},
	}))
	e.Use(auth.Middleware(sessions))

	if dashboardHandler != nil {
		dashboardHandler.Register(e)
	}
	if authHandler != nil {
		authHandler.Register(e)
	}
	if downloadsHandler != nil {
		downloadsHandler.Register(e)
	}
	if wsHandler != nil {
		wsHandler.Register(e)
	}
	if metricsHandler != nil {
		metricsHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
