package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/newswire-dev/newswire/internal/domain"
	"github.com/newswire-dev/newswire/internal/errors"
)

// articlesResponse wraps a list endpoint's payload with its count.
type articlesResponse struct {
	Articles []domain.Article `json:"articles"`
	Count    int              `json:"count"`
}

func (s *Server) handleListArticles(c echo.Context) error {
	query := c.QueryParam("q")

	articles, err := s.app.SearchArticles(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articlesResponse{Articles: articles, Count: len(articles)})
}

func (s *Server) handleGetArticle(c echo.Context) error {
	id, err := parseArticleID(c)
	if err != nil {
		return err
	}

	article, err := s.app.GetArticle(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, article)
}

func parseArticleID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ValidationError("invalid article ID").WithField("id", c.Param("id"))
	}
	return id, nil
}
