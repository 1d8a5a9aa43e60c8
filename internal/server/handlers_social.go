package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/newswire-dev/newswire/internal/errors"
)

// handleRequestSocial returns cached social content, or triggers generation
// and tells the client to come back.
func (s *Server) handleRequestSocial(c echo.Context) error {
	id, err := parseArticleID(c)
	if err != nil {
		return err
	}

	content, cached, err := s.app.RequestSocialContent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if cached {
		return c.JSON(http.StatusOK, content)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "generating"})
}

// socialCallback is the generator's POST body.
type socialCallback struct {
	ArticleID string `json:"article_id"`
	Body      string `json:"body"`
}

func (s *Server) handleSocialCallback(c echo.Context) error {
	var payload socialCallback
	if err := c.Bind(&payload); err != nil {
		return errors.ValidationError("invalid callback payload")
	}

	id, err := uuid.Parse(payload.ArticleID)
	if err != nil {
		return errors.ValidationError("invalid article ID").WithField("article_id", payload.ArticleID)
	}

	content, err := s.app.StoreSocialContent(c.Request().Context(), id, payload.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, content)
}
