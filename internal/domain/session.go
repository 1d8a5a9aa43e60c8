package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionRecord identifies one browser session. Bookmarks are scoped to it.
type SessionRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Bookmark marks an article as saved by a session.
type Bookmark struct {
	SessionID string    `json:"session_id"`
	ArticleID uuid.UUID `json:"article_id"`
	CreatedAt time.Time `json:"created_at"`
}
