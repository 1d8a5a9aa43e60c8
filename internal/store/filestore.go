package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newswire-dev/newswire/internal/domain"
)

// FileStore persists articles and bookmarks in one JSON file. Writes go
// through a temp file and rename, so a crash never leaves a torn file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var (
	_ domain.ArticleStore  = (*FileStore)(nil)
	_ domain.BookmarkStore = (*FileStore)(nil)
)

type fileData struct {
	Articles  []domain.Article             `json:"articles"`
	Bookmarks map[string][]domain.Bookmark `json:"bookmarks"`
}

// NewFileStore creates a store backed by the given path. The file is created
// lazily on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (*fileData, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &fileData{Bookmarks: make(map[string][]domain.Bookmark)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode store file: %w", err)
	}
	if data.Bookmarks == nil {
		data.Bookmarks = make(map[string][]domain.Bookmark)
	}
	return &data, nil
}

func (s *FileStore) save(data *fileData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// List returns all articles, newest first.
func (s *FileStore) List(_ context.Context) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	articles := make([]domain.Article, len(data.Articles))
	copy(articles, data.Articles)
	sortNewestFirst(articles)
	return articles, nil
}

// Search returns articles matching the query, newest first.
func (s *FileStore) Search(ctx context.Context, query string) ([]domain.Article, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Article, 0, len(all))
	for _, a := range all {
		if a.Matches(query) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// Get returns one article by ID.
func (s *FileStore) Get(_ context.Context, id uuid.UUID) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return domain.Article{}, err
	}
	for _, a := range data.Articles {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Article{}, domain.ErrArticleNotFound
}

// Upsert inserts articles not already present, matched by GUID (falling back
// to link). Returns the number of newly inserted articles.
func (s *FileStore) Upsert(_ context.Context, articles []domain.Article) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return 0, err
	}

	known := make(map[string]struct{}, len(data.Articles))
	for _, a := range data.Articles {
		known[dedupeKey(a)] = struct{}{}
	}

	inserted := 0
	for _, a := range articles {
		key := dedupeKey(a)
		if _, exists := known[key]; exists {
			continue
		}
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		known[key] = struct{}{}
		data.Articles = append(data.Articles, a)
		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}
	if err := s.save(data); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Clear removes all articles. Bookmarks are kept; resolution simply skips
// articles that no longer exist.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data.Articles = nil
	return s.save(data)
}

// Add records a bookmark. Adding an existing bookmark is a no-op.
func (s *FileStore) Add(_ context.Context, sessionID string, articleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	for _, b := range data.Bookmarks[sessionID] {
		if b.ArticleID == articleID {
			return nil
		}
	}
	data.Bookmarks[sessionID] = append(data.Bookmarks[sessionID], domain.Bookmark{
		SessionID: sessionID,
		ArticleID: articleID,
		CreatedAt: time.Now().UTC(),
	})
	return s.save(data)
}

// Remove deletes a bookmark, or returns domain.ErrBookmarkNotFound.
func (s *FileStore) Remove(_ context.Context, sessionID string, articleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	marks := data.Bookmarks[sessionID]
	for i, b := range marks {
		if b.ArticleID == articleID {
			data.Bookmarks[sessionID] = append(marks[:i], marks[i+1:]...)
			if len(data.Bookmarks[sessionID]) == 0 {
				delete(data.Bookmarks, sessionID)
			}
			return s.save(data)
		}
	}
	return domain.ErrBookmarkNotFound
}

// IsBookmarked reports whether the session bookmarked the article.
func (s *FileStore) IsBookmarked(_ context.Context, sessionID string, articleID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return false, err
	}
	for _, b := range data.Bookmarks[sessionID] {
		if b.ArticleID == articleID {
			return true, nil
		}
	}
	return false, nil
}

// List returns the session's bookmarked article IDs, most recent first.
func (s *FileStore) ListBookmarks(_ context.Context, sessionID string) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	marks := make([]domain.Bookmark, len(data.Bookmarks[sessionID]))
	copy(marks, data.Bookmarks[sessionID])
	sort.Slice(marks, func(i, j int) bool { return marks[i].CreatedAt.After(marks[j].CreatedAt) })

	ids := make([]uuid.UUID, len(marks))
	for i, b := range marks {
		ids[i] = b.ArticleID
	}
	return ids, nil
}

// Count returns the session's bookmark count.
func (s *FileStore) Count(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(data.Bookmarks[sessionID]), nil
}

func sortNewestFirst(articles []domain.Article) {
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}

func dedupeKey(a domain.Article) string {
	if a.GUID != "" {
		return a.GUID
	}
	return a.Link
}
