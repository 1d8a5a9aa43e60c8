package domain

import (
	"context"

	"github.com/google/uuid"
)

// ArticleStore is the slow backing store the cache falls through to.
// It is the source of truth; the cache layer is only an accelerator.
type ArticleStore interface {
	// List returns all articles, newest first.
	List(ctx context.Context) ([]Article, error)
	// Search returns articles matching a free-text query, newest first.
	Search(ctx context.Context, query string) ([]Article, error)
	// Get returns a single article by ID, or ErrArticleNotFound.
	Get(ctx context.Context, id uuid.UUID) (Article, error)
	// Upsert inserts articles that are not yet present (matched by GUID)
	// and returns the number of newly inserted articles.
	Upsert(ctx context.Context, articles []Article) (int, error)
	// Clear removes all articles.
	Clear(ctx context.Context) error
}

// BookmarkStore persists per-session bookmarks.
type BookmarkStore interface {
	Add(ctx context.Context, sessionID string, articleID uuid.UUID) error
	Remove(ctx context.Context, sessionID string, articleID uuid.UUID) error
	IsBookmarked(ctx context.Context, sessionID string, articleID uuid.UUID) (bool, error)
	// ListBookmarks returns the session's bookmarked article IDs, most recent first.
	ListBookmarks(ctx context.Context, sessionID string) ([]uuid.UUID, error)
	Count(ctx context.Context, sessionID string) (int, error)
}
