package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleListBookmarks(c echo.Context) error {
	articles, err := s.app.ListBookmarks(c.Request().Context(), sessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articlesResponse{Articles: articles, Count: len(articles)})
}

func (s *Server) handleCountBookmarks(c echo.Context) error {
	count, err := s.app.CountBookmarks(c.Request().Context(), sessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleAddBookmark(c echo.Context) error {
	id, err := parseArticleID(c)
	if err != nil {
		return err
	}

	if err := s.app.AddBookmark(c.Request().Context(), sessionID(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "bookmarked"})
}

func (s *Server) handleRemoveBookmark(c echo.Context) error {
	id, err := parseArticleID(c)
	if err != nil {
		return err
	}

	if err := s.app.RemoveBookmark(c.Request().Context(), sessionID(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "removed"})
}
