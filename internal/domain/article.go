package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Article is a single aggregated news item.
type Article struct {
	ID          uuid.UUID `json:"id"`
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Matches reports whether the article matches a free-text search query.
// Case-insensitive substring match over title, description, and source.
func (a Article) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Description), q) ||
		strings.Contains(strings.ToLower(a.Source), q)
}

// SocialContent is generated social-media copy for one article.
type SocialContent struct {
	ArticleID   uuid.UUID `json:"article_id"`
	Body        string    `json:"body"`
	GeneratedAt time.Time `json:"generated_at"`
}
