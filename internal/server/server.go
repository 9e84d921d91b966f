// Package server exposes the coordinator over HTTP: the WebSocket
// endpoint plus a liveness probe and a small stats document.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/config"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/handlers"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/room"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/session"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/transport"
)

// Stats is the body of GET /stats.
type Stats struct {
	Sessions    int `json:"sessions"`
	Connections int `json:"connections"`
}

type Server struct {
	cfg      config.Config
	registry *session.Registry
	hub      *room.Hub
	e        *echo.Echo
}

// NewServer wires the registry, hub, router and transport for cfg.
func NewServer(cfg config.Config) *Server {
	registry := session.NewRegistry()
	hub := room.NewHub()
	router := handlers.NewMessageRouter(registry, room.NewBroadcaster(hub, registry))
	ws := transport.NewHandler(hub, router, cfg.RateLimit(), cfg.IPRateLimit(), cfg.Domains)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		hub:      hub,
		e:        echo.New(),
	}

	e := s.e
	e.HideBanner = true
	e.Logger.SetLevel(cfg.Level())
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.GET("/ping", s.Ping)
	e.GET("/stats", s.Stats)
	e.GET("/ws", echo.WrapHandler(ws))
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

// StartServer listens on the configured port until Shutdown.
func (s *Server) StartServer() error {
	log.Infof("Collaboration server listening on %s", s.cfg.Addr())
	if err := s.e.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StopServer drains the HTTP server within ten seconds.
func (s *Server) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Collaboration server is running")
}

// Stats reports live sessions and connections.
func (s *Server) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, Stats{
		Sessions:    s.registry.SessionCount(),
		Connections: s.hub.Count(),
	})
}
