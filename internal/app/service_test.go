package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/newswire-dev/newswire/internal/cache"
	"github.com/newswire-dev/newswire/internal/domain"
	"github.com/newswire-dev/newswire/internal/errors"
	"github.com/newswire-dev/newswire/internal/sse"
	"github.com/newswire-dev/newswire/internal/store"
)

type testEnv struct {
	service *Service
	store   *store.FileStore
	cache   *cache.Client
	reg     *sse.Registry
	clock   clockwork.Clock
}

func newTestEnv(t *testing.T, webhookURL string) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient := cache.New("redis://"+mr.Addr(), clockwork.NewRealClock())
	t.Cleanup(func() { cacheClient.Close() })

	registry := sse.NewRegistry(clockwork.NewRealClock(), sse.Options{})
	t.Cleanup(registry.Close)

	fileStore := store.NewFileStore(t.TempDir() + "/articles.json")
	clock := clockwork.NewRealClock()

	return &testEnv{
		service: NewService(fileStore, fileStore, cacheClient, registry, clock, webhookURL),
		store:   fileStore,
		cache:   cacheClient,
		reg:     registry,
		clock:   clock,
	}
}

func seedArticles(t *testing.T, env *testEnv, n int) []domain.Article {
	t.Helper()
	ctx := context.Background()

	articles := make([]domain.Article, n)
	base := time.Now().UTC()
	for i := range articles {
		articles[i] = domain.Article{
			GUID:        fmt.Sprintf("guid-%d", i),
			Title:       fmt.Sprintf("Article %d", i),
			Link:        fmt.Sprintf("https://example.com/%d", i),
			Source:      "Test Wire",
			Description: fmt.Sprintf("Body %d", i),
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
			FetchedAt:   base,
		}
	}
	_, err := env.store.Upsert(ctx, articles)
	require.NoError(t, err)

	stored, err := env.store.List(ctx)
	require.NoError(t, err)
	return stored
}

type memWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (m *memWriter) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}

func (m *memWriter) contents() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

func attachListener(t *testing.T, env *testEnv) *memWriter {
	t.Helper()
	w := &memWriter{}
	conn := env.reg.NewConn(w, func() {})
	env.reg.Register(conn)
	require.Eventually(t, func() bool {
		return strings.Contains(w.contents(), `"connected"`)
	}, 2*time.Second, 5*time.Millisecond)
	return w
}

func TestListArticles_CacheAside(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	seedArticles(t, env, 3)

	articles, err := env.service.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	require.True(t, env.cache.Exists(ctx, cache.ArticlesKey()))

	// A write that bypasses invalidation is invisible until the key drops.
	_, err = env.store.Upsert(ctx, []domain.Article{{
		GUID: "late", Title: "Late", Link: "https://example.com/late",
		PublishedAt: time.Now().UTC(), FetchedAt: time.Now().UTC(),
	}})
	require.NoError(t, err)

	articles, err = env.service.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	env.cache.Del(ctx, cache.ArticlesKey())
	articles, err = env.service.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 4)
}

func TestSearchArticles_CachesPerQuery(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	seedArticles(t, env, 3)

	matches, err := env.service.SearchArticles(ctx, "Article 1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.True(t, env.cache.Exists(ctx, cache.SearchKey("Article 1")))
	require.False(t, env.cache.Exists(ctx, cache.SearchKey("Article 2")))

	// Empty query is the full list, cached under the list key.
	all, err := env.service.SearchArticles(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, env.cache.Exists(ctx, cache.ArticlesKey()))
}

func TestGetArticle_NotFound(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.service.GetArticle(context.Background(), uuid.New())
	require.Error(t, err)
	structured := errors.AsStructuredError(err)
	require.Equal(t, errors.TypeNotFound, structured.Type)
}

func TestClearArticles_InvalidatesAndBroadcasts(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	seedArticles(t, env, 2)

	_, err := env.service.ListArticles(ctx)
	require.NoError(t, err)
	require.True(t, env.cache.Exists(ctx, cache.ArticlesKey()))

	w := attachListener(t, env)

	require.NoError(t, env.service.ClearArticles(ctx))
	require.False(t, env.cache.Exists(ctx, cache.ArticlesKey()))

	articles, err := env.service.ListArticles(ctx)
	require.NoError(t, err)
	require.Empty(t, articles)

	require.Eventually(t, func() bool {
		return strings.Contains(w.contents(), `"articles_cleared"`)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBookmarks_FullFlow(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	articles := seedArticles(t, env, 2)
	const sessionID = "sess-1"

	require.NoError(t, env.service.AddBookmark(ctx, sessionID, articles[0].ID))
	require.NoError(t, env.service.AddBookmark(ctx, sessionID, articles[1].ID))

	bookmarked, err := env.service.IsBookmarked(ctx, sessionID, articles[0].ID)
	require.NoError(t, err)
	require.True(t, bookmarked)

	count, err := env.service.CountBookmarks(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	list, err := env.service.ListBookmarks(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, env.service.RemoveBookmark(ctx, sessionID, articles[0].ID))

	bookmarked, err = env.service.IsBookmarked(ctx, sessionID, articles[0].ID)
	require.NoError(t, err)
	require.False(t, bookmarked)

	// Cached count and list were invalidated on remove.
	count, err = env.service.CountBookmarks(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	list, err = env.service.ListBookmarks(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, articles[1].ID, list[0].ID)
}

func TestAddBookmark_UnknownArticle(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.service.AddBookmark(context.Background(), "sess-1", uuid.New())
	require.Error(t, err)
	require.Equal(t, errors.TypeNotFound, errors.AsStructuredError(err).Type)
}

func TestRemoveBookmark_Missing(t *testing.T) {
	env := newTestEnv(t, "")
	articles := seedArticles(t, env, 1)

	err := env.service.RemoveBookmark(context.Background(), "sess-1", articles[0].ID)
	require.Error(t, err)
	require.Equal(t, errors.TypeNotFound, errors.AsStructuredError(err).Type)
}

func TestListBookmarks_SkipsDeletedArticles(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	articles := seedArticles(t, env, 2)
	const sessionID = "sess-1"

	require.NoError(t, env.service.AddBookmark(ctx, sessionID, articles[0].ID))
	require.NoError(t, env.service.AddBookmark(ctx, sessionID, articles[1].ID))

	require.NoError(t, env.store.Clear(ctx))
	env.cache.Del(ctx, cache.BookmarkListKey(sessionID))

	list, err := env.service.ListBookmarks(ctx, sessionID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestIsBookmarked_StoreFallback(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	articles := seedArticles(t, env, 1)
	const sessionID = "sess-1"

	require.NoError(t, env.service.AddBookmark(ctx, sessionID, articles[0].ID))

	// Dropping the cache set must not lose the membership answer.
	require.True(t, env.cache.FlushAll(ctx))

	bookmarked, err := env.service.IsBookmarked(ctx, sessionID, articles[0].ID)
	require.NoError(t, err)
	require.True(t, bookmarked)
}

func TestTouchSession_PreservesCreatedAt(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	first := env.service.TouchSession(ctx, "sess-1")
	require.Equal(t, "sess-1", first.ID)
	require.False(t, first.CreatedAt.IsZero())

	time.Sleep(10 * time.Millisecond)
	second := env.service.TouchSession(ctx, "sess-1")
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.True(t, second.LastSeen.After(first.LastSeen))
}

func TestRequestSocialContent_TriggersWebhook(t *testing.T) {
	received := make(chan socialRequest, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req socialRequest
		require.NoError(t, json.Unmarshal(body, &req))
		received <- req
	}))
	t.Cleanup(webhook.Close)

	env := newTestEnv(t, webhook.URL)
	ctx := context.Background()
	articles := seedArticles(t, env, 1)

	content, cached, err := env.service.RequestSocialContent(ctx, articles[0].ID)
	require.NoError(t, err)
	require.False(t, cached)
	require.Empty(t, content.Body)

	select {
	case req := <-received:
		require.Equal(t, articles[0].ID.String(), req.ArticleID)
		require.Equal(t, articles[0].Title, req.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestSocialContent_CallbackCachesAndBroadcasts(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	ctx := context.Background()
	articles := seedArticles(t, env, 1)

	w := attachListener(t, env)

	stored, err := env.service.StoreSocialContent(ctx, articles[0].ID, "Hot take about article 0")
	require.NoError(t, err)
	require.Equal(t, articles[0].ID, stored.ArticleID)

	require.Eventually(t, func() bool {
		return strings.Contains(w.contents(), `"article_update"`)
	}, 2*time.Second, 5*time.Millisecond)

	// Now cached, so the next request serves it without a webhook call.
	content, cached, err := env.service.RequestSocialContent(ctx, articles[0].ID)
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, "Hot take about article 0", content.Body)
}

func TestStoreSocialContent_Validation(t *testing.T) {
	env := newTestEnv(t, "")
	articles := seedArticles(t, env, 1)

	_, err := env.service.StoreSocialContent(context.Background(), articles[0].ID, "")
	require.Error(t, err)
	require.Equal(t, errors.TypeValidation, errors.AsStructuredError(err).Type)

	_, err = env.service.StoreSocialContent(context.Background(), uuid.New(), "body")
	require.Error(t, err)
	require.Equal(t, errors.TypeNotFound, errors.AsStructuredError(err).Type)
}

func TestRequestSocialContent_NotConfigured(t *testing.T) {
	env := newTestEnv(t, "")
	articles := seedArticles(t, env, 1)

	_, _, err := env.service.RequestSocialContent(context.Background(), articles[0].ID)
	require.Error(t, err)
	require.Equal(t, errors.TypeUnavailable, errors.AsStructuredError(err).Type)
}
