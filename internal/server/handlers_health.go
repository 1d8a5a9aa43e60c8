package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 5 * time.Second

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

// handleReadiness reports ready when the store is reachable. An unreachable
// cache is degraded but still ready: the service keeps serving from the store.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	if s.storePing != nil {
		if err := s.storePing.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":       "unhealthy",
				"failed_check": "store",
				"error":        err.Error(),
			})
		}
	}

	status := "ready"
	cacheStatus := "ok"
	if err := s.app.CachePing(ctx); err != nil {
		status = "degraded"
		cacheStatus = "unavailable"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": status,
		"cache":  cacheStatus,
	})
}
