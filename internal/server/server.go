// Package server exposes the controller's small operator HTTP API: health,
// live proxy stats, and manual reload triggering.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sidharthv96/caprover/internal/loadbalancer"
	"github.com/sidharthv96/caprover/pkg/logger"
)

// Server wires the operator API routes onto an echo instance.
type Server struct {
	echo        *echo.Echo
	coordinator *loadbalancer.Coordinator
	stats       *loadbalancer.StatsClient
}

func New(coordinator *loadbalancer.Coordinator, stats *loadbalancer.StatsClient) *Server {
	e := echo.New()
	e.HideBanner = true

	s := &Server{echo: e, coordinator: coordinator, stats: stats}

	e.GET("/health", s.handleHealth)
	e.GET("/api/stats", s.handleStats)
	e.POST("/api/reload", s.handleReload)

	return s
}

// Start blocks serving the API on addr.
func (s *Server) Start(addr string) error {
	logger.Info("Operator API listening", "addr", addr)
	return s.echo.Start(addr)
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"busy":   s.coordinator.Busy(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.stats.FetchStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleReload(c echo.Context) error {
	ns := loadbalancer.Namespace(c.QueryParam("namespace"))
	if ns == "" {
		ns = loadbalancer.NamespaceApps
	}

	if err := s.coordinator.Reload(c.Request().Context(), ns); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"namespace": string(ns)})
}
