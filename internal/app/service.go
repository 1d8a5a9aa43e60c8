// Package app holds the application service: cache-aside reads over the
// article store, per-session bookmarks, session tracking, and the
// social-content webhook flow.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/newswire-dev/newswire/internal/cache"
	"github.com/newswire-dev/newswire/internal/domain"
	"github.com/newswire-dev/newswire/internal/errors"
	"github.com/newswire-dev/newswire/internal/sse"
)

const (
	// searchTTL is shorter than the list TTL because query results go stale
	// invisibly: the list key is invalidated on ingest, search keys are not.
	searchTTL  = 60 * time.Second
	sessionTTL = 24 * time.Hour
	socialTTL  = time.Hour
)

// Service implements the application operations over store, cache, and broadcaster.
type Service struct {
	articles  domain.ArticleStore
	bookmarks domain.BookmarkStore
	cache     *cache.Client
	registry  *sse.Registry
	clock     clockwork.Clock
	group     singleflight.Group

	webhookURL string
	webhook    webhookPoster
}

// NewService wires a service. webhookURL may be empty, which disables
// social-content generation.
func NewService(articles domain.ArticleStore, bookmarks domain.BookmarkStore, cacheClient *cache.Client, registry *sse.Registry, clock clockwork.Clock, webhookURL string) *Service {
	return &Service{
		articles:   articles,
		bookmarks:  bookmarks,
		cache:      cacheClient,
		registry:   registry,
		clock:      clock,
		webhookURL: webhookURL,
		webhook:    newWebhookClient(),
	}
}

// ListArticles returns all articles, newest first, serving from cache when
// possible. Concurrent cold-cache reads collapse into one store load.
func (s *Service) ListArticles(ctx context.Context) ([]domain.Article, error) {
	var cached []domain.Article
	if s.cache.Get(ctx, cache.ArticlesKey(), &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(cache.ArticlesKey(), func() (any, error) {
		articles, err := s.articles.List(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, cache.ArticlesKey(), articles, 0)
		return articles, nil
	})
	if err != nil {
		return nil, errors.InternalError("failed to load articles", err)
	}
	return v.([]domain.Article), nil
}

// SearchArticles returns articles matching a free-text query, newest first.
// An empty query is the full list.
func (s *Service) SearchArticles(ctx context.Context, query string) ([]domain.Article, error) {
	if query == "" {
		return s.ListArticles(ctx)
	}

	key := cache.SearchKey(query)
	var cached []domain.Article
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		articles, err := s.articles.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, articles, searchTTL)
		return articles, nil
	})
	if err != nil {
		return nil, errors.InternalError("failed to search articles", err)
	}
	return v.([]domain.Article), nil
}

// GetArticle returns one article by ID.
func (s *Service) GetArticle(ctx context.Context, id uuid.UUID) (domain.Article, error) {
	article, err := s.articles.Get(ctx, id)
	if err != nil {
		if err == domain.ErrArticleNotFound {
			return domain.Article{}, errors.NotFoundError("article not found").WithField("article_id", id.String())
		}
		return domain.Article{}, errors.InternalError("failed to load article", err)
	}
	return article, nil
}

// ClearArticles wipes the article collection, invalidates the cache, and
// broadcasts articles_cleared. Bookmarks survive; they re-resolve to nothing.
func (s *Service) ClearArticles(ctx context.Context) error {
	if err := s.articles.Clear(ctx); err != nil {
		return errors.InternalError("failed to clear articles", err)
	}
	s.cache.Del(ctx, cache.ArticlesKey())

	s.registry.Broadcast(sse.Event{
		Type:      sse.EventArticlesCleared,
		Timestamp: s.clock.Now(),
	})
	return nil
}

// AddBookmark saves an article for the session. Adding an already-bookmarked
// article is a no-op.
func (s *Service) AddBookmark(ctx context.Context, sessionID string, articleID uuid.UUID) error {
	if _, err := s.articles.Get(ctx, articleID); err != nil {
		if err == domain.ErrArticleNotFound {
			return errors.NotFoundError("article not found").WithField("article_id", articleID.String())
		}
		return errors.InternalError("failed to load article", err)
	}

	if err := s.bookmarks.Add(ctx, sessionID, articleID); err != nil {
		return errors.InternalError("failed to add bookmark", err)
	}

	s.cache.SAdd(ctx, cache.BookmarkSetKey(sessionID), articleID.String())
	s.invalidateBookmarkViews(ctx, sessionID)
	return nil
}

// RemoveBookmark deletes a bookmark. Removing a bookmark that does not exist
// returns a not-found error.
func (s *Service) RemoveBookmark(ctx context.Context, sessionID string, articleID uuid.UUID) error {
	if err := s.bookmarks.Remove(ctx, sessionID, articleID); err != nil {
		if err == domain.ErrBookmarkNotFound {
			return errors.NotFoundError("bookmark not found").WithField("article_id", articleID.String())
		}
		return errors.InternalError("failed to remove bookmark", err)
	}

	s.cache.SRem(ctx, cache.BookmarkSetKey(sessionID), articleID.String())
	s.invalidateBookmarkViews(ctx, sessionID)
	return nil
}

// IsBookmarked reports whether the session has bookmarked the article. A
// positive cache-set answer is trusted; anything else falls through to the
// store, since an unavailable cache and a genuine non-member look the same.
func (s *Service) IsBookmarked(ctx context.Context, sessionID string, articleID uuid.UUID) (bool, error) {
	if s.cache.SIsMember(ctx, cache.BookmarkSetKey(sessionID), articleID.String()) {
		return true, nil
	}
	bookmarked, err := s.bookmarks.IsBookmarked(ctx, sessionID, articleID)
	if err != nil {
		return false, errors.InternalError("failed to check bookmark", err)
	}
	return bookmarked, nil
}

// ListBookmarks returns the session's bookmarked articles, most recently
// bookmarked first. Bookmarks pointing at deleted articles are skipped.
func (s *Service) ListBookmarks(ctx context.Context, sessionID string) ([]domain.Article, error) {
	key := cache.BookmarkListKey(sessionID)
	var cached []domain.Article
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	ids, err := s.bookmarks.ListBookmarks(ctx, sessionID)
	if err != nil {
		return nil, errors.InternalError("failed to list bookmarks", err)
	}

	articles := make([]domain.Article, 0, len(ids))
	for _, id := range ids {
		article, err := s.articles.Get(ctx, id)
		if err == domain.ErrArticleNotFound {
			continue
		}
		if err != nil {
			return nil, errors.InternalError("failed to resolve bookmark", err)
		}
		articles = append(articles, article)
	}

	s.cache.Set(ctx, key, articles, 0)
	return articles, nil
}

// CountBookmarks returns the session's bookmark count.
func (s *Service) CountBookmarks(ctx context.Context, sessionID string) (int, error) {
	var cached int
	if s.cache.Get(ctx, cache.BookmarkCountKey(sessionID), &cached) {
		return cached, nil
	}

	count, err := s.bookmarks.Count(ctx, sessionID)
	if err != nil {
		return 0, errors.InternalError("failed to count bookmarks", err)
	}
	s.cache.Set(ctx, cache.BookmarkCountKey(sessionID), count, 0)
	return count, nil
}

// TouchSession records session activity, creating the record on first sight.
func (s *Service) TouchSession(ctx context.Context, sessionID string) domain.SessionRecord {
	now := s.clock.Now().UTC()

	var record domain.SessionRecord
	if !s.cache.Get(ctx, cache.SessionKey(sessionID), &record) {
		record = domain.SessionRecord{ID: sessionID, CreatedAt: now}
	}
	record.LastSeen = now

	s.cache.Set(ctx, cache.SessionKey(sessionID), record, sessionTTL)
	return record
}

// CacheMetrics exposes the cache client's per-instance counters.
func (s *Service) CacheMetrics() cache.MetricsSnapshot {
	return s.cache.Metrics()
}

// FlushCache drops every cached entry. Store contents are untouched.
func (s *Service) FlushCache(ctx context.Context) bool {
	return s.cache.FlushAll(ctx)
}

// CachePing checks cache reachability for readiness reporting.
func (s *Service) CachePing(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// CacheAvailable reports whether the cache client currently holds a connection.
func (s *Service) CacheAvailable() bool {
	return s.cache.Available()
}

func (s *Service) invalidateBookmarkViews(ctx context.Context, sessionID string) {
	s.cache.Del(ctx, cache.BookmarkListKey(sessionID))
	s.cache.Del(ctx, cache.BookmarkCountKey(sessionID))
}
