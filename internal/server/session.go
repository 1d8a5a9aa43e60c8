package server

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	sessionName  = "newswire-session"
	sessionKeyID = "session_id"
)

// withSession ensures every request carries a session ID, minting one on
// first contact. The ID lands in the echo context under "sessionID" and the
// session record's last-seen timestamp is refreshed.
func (s *Server) withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			// Corrupt or foreign cookie: start over with a fresh session.
			slog.Debug("Resetting unreadable session cookie", "error", err)
			session, _ = s.sessionStore.New(c.Request(), sessionName)
		}

		sessionID, ok := session.Values[sessionKeyID].(string)
		if !ok || sessionID == "" {
			sessionID = uuid.NewString()
			session.Values[sessionKeyID] = sessionID
			if err := session.Save(c.Request(), c.Response().Writer); err != nil {
				slog.Warn("Failed to persist session cookie", "error", err)
			}
		}

		c.Set("sessionID", sessionID)
		s.app.TouchSession(c.Request().Context(), sessionID)
		return next(c)
	}
}

// sessionID reads the session ID the middleware placed in the context.
func sessionID(c echo.Context) string {
	id, _ := c.Get("sessionID").(string)
	return id
}
