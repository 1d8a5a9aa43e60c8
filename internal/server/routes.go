package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no session required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Article reads
	s.echo.GET("/api/articles", s.handleListArticles, s.withSession)
	s.echo.GET("/api/articles/:id", s.handleGetArticle, s.withSession)

	// Bookmarks (session scoped)
	s.echo.GET("/api/bookmarks", s.handleListBookmarks, s.withSession)
	s.echo.GET("/api/bookmarks/count", s.handleCountBookmarks, s.withSession)
	s.echo.POST("/api/bookmarks/:id", s.handleAddBookmark, s.withSession)
	s.echo.DELETE("/api/bookmarks/:id", s.handleRemoveBookmark, s.withSession)

	// Social content: trigger plus the generator's callback (no session)
	s.echo.POST("/api/articles/:id/social", s.handleRequestSocial, s.withSession)
	s.echo.POST("/webhooks/social", s.handleSocialCallback)

	// Live event stream
	s.echo.GET("/api/stream", s.handleStream)

	// Admin / diagnostics
	s.echo.GET("/api/admin/cache/metrics", s.handleCacheMetrics)
	s.echo.POST("/api/admin/cache/flush", s.handleCacheFlush)
	s.echo.POST("/api/admin/articles/clear", s.handleClearArticles)
}
