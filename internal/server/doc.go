// Package server implements the HTTP server using Echo framework.
//
// Routes: articles (list/search/get), bookmarks (session scoped), social
// content (trigger + generator callback), live SSE stream, admin, health.
// Handlers split by domain: handlers_articles.go, handlers_bookmarks.go,
// handlers_social.go, handlers_stream.go, handlers_admin.go, handlers_health.go.
package server
