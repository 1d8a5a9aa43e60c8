package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire-dev/newswire/internal/domain"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "articles.json"))
}

func testArticle(title string, published time.Time) domain.Article {
	return domain.Article{
		ID:          uuid.New(),
		GUID:        "guid-" + title,
		Title:       title,
		Link:        "https://example.com/" + title,
		Source:      "example",
		Description: "about " + title,
		PublishedAt: published,
		FetchedAt:   time.Now().UTC(),
	}
}

func TestFileStore_UpsertAndList(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	older := testArticle("older", now.Add(-time.Hour))
	newer := testArticle("newer", now)

	inserted, err := s.Upsert(ctx, []domain.Article{older, newer})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	articles, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "newer", articles[0].Title)
	assert.Equal(t, "older", articles[1].Title)
}

func TestFileStore_UpsertDeduplicatesByGUID(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	a := testArticle("dup", time.Now().UTC())
	inserted, err := s.Upsert(ctx, []domain.Article{a})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Same GUID, different ID: must not insert again.
	again := a
	again.ID = uuid.New()
	inserted, err = s.Upsert(ctx, []domain.Article{again})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	articles, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestFileStore_GetAndNotFound(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	a := testArticle("one", time.Now().UTC())
	_, err := s.Upsert(ctx, []domain.Article{a})
	require.NoError(t, err)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)
}

func TestFileStore_Search(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := s.Upsert(ctx, []domain.Article{
		testArticle("Climate summit opens", now),
		testArticle("Markets rally", now.Add(-time.Minute)),
	})
	require.NoError(t, err)

	matched, err := s.Search(ctx, "climate")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Contains(t, matched[0].Title, "Climate")

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFileStore_Clear(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, []domain.Article{testArticle("gone", time.Now().UTC())})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	articles, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	ctx := context.Background()

	a := testArticle("persisted", time.Now().UTC())
	s1 := NewFileStore(path)
	_, err := s1.Upsert(ctx, []domain.Article{a})
	require.NoError(t, err)

	s2 := NewFileStore(path)
	got, err := s2.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.GUID, got.GUID)
}

func TestFileStore_Bookmarks(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	session := "sess-1"

	a := testArticle("saved", time.Now().UTC())
	b := testArticle("also-saved", time.Now().UTC())
	_, err := s.Upsert(ctx, []domain.Article{a, b})
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx, session, a.ID))
	require.NoError(t, s.Add(ctx, session, b.ID))
	// Duplicate add is a no-op.
	require.NoError(t, s.Add(ctx, session, a.ID))

	bookmarked, err := s.IsBookmarked(ctx, session, a.ID)
	require.NoError(t, err)
	assert.True(t, bookmarked)

	count, err := s.Count(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ids, err := s.ListBookmarks(ctx, session)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)

	require.NoError(t, s.Remove(ctx, session, a.ID))
	bookmarked, err = s.IsBookmarked(ctx, session, a.ID)
	require.NoError(t, err)
	assert.False(t, bookmarked)

	assert.ErrorIs(t, s.Remove(ctx, session, a.ID), domain.ErrBookmarkNotFound)

	// Other sessions are isolated.
	count, err = s.Count(ctx, "other-session")
	require.NoError(t, err)
	assert.Zero(t, count)
}
