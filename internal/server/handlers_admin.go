package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleCacheMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app.CacheMetrics())
}

func (s *Server) handleCacheFlush(c echo.Context) error {
	flushed := s.app.FlushCache(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"flushed": flushed})
}

func (s *Server) handleClearArticles(c echo.Context) error {
	if err := s.app.ClearArticles(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
