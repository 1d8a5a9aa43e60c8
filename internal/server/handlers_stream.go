package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newswire-dev/newswire/internal/errors"
	"github.com/newswire-dev/newswire/internal/metrics"
)

// handleStream serves the live event stream over SSE. The request blocks
// until the client disconnects or the connection is evicted.
func (s *Server) handleStream(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.StreamConnectionsRejected.WithLabelValues(string(reason)).Inc()
		return echo.NewHTTPError(http.StatusTooManyRequests, "stream connection limit reached")
	}
	defer s.limits.Release(ip)

	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return errors.InternalError("response writer does not support streaming", nil)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return s.registry.ServeStream(c.Request().Context(), w, flusher.Flush)
}
