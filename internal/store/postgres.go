package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/newswire-dev/newswire/internal/domain"
)

// PostgresStore persists articles and bookmarks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var (
	_ domain.ArticleStore  = (*PostgresStore)(nil)
	_ domain.BookmarkStore = (*PostgresStore)(nil)
)

// ConnectPostgres opens a connection pool, verifies it, and runs migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings for production use
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Ping verifies the connection for health checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id UUID PRIMARY KEY,
			guid TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC)`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			session_id TEXT NOT NULL,
			article_id UUID NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (session_id, article_id)
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

const articleColumns = "id, guid, title, link, source, description, content, image_url, published_at, fetched_at"

func scanArticle(row interface{ Scan(...any) error }) (domain.Article, error) {
	var a domain.Article
	err := row.Scan(&a.ID, &a.GUID, &a.Title, &a.Link, &a.Source, &a.Description,
		&a.Content, &a.ImageURL, &a.PublishedAt, &a.FetchedAt)
	return a, err
}

// List returns all articles, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+articleColumns+" FROM articles ORDER BY published_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Search returns articles matching the query, newest first.
func (s *PostgresStore) Search(ctx context.Context, query string) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+articleColumns+` FROM articles
		 WHERE title ILIKE '%' || $1 || '%'
		    OR description ILIKE '%' || $1 || '%'
		    OR source ILIKE '%' || $1 || '%'
		 ORDER BY published_at DESC`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Get returns one article by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (domain.Article, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE id = $1", id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

// Upsert inserts articles not already present, matched by GUID.
// Returns the number of newly inserted articles.
func (s *PostgresStore) Upsert(ctx context.Context, articles []domain.Article) (int, error) {
	inserted := 0
	for _, a := range articles {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO articles (`+articleColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (guid) DO NOTHING`,
			a.ID, a.GUID, a.Title, a.Link, a.Source, a.Description,
			a.Content, a.ImageURL, a.PublishedAt, a.FetchedAt)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert article: %w", err)
		}
		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// Clear removes all articles (and, via cascade, all bookmarks).
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM articles"); err != nil {
		return fmt.Errorf("failed to clear articles: %w", err)
	}
	return nil
}

// Add records a bookmark. Adding an existing bookmark is a no-op.
func (s *PostgresStore) Add(ctx context.Context, sessionID string, articleID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (session_id, article_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, sessionID, articleID)
	if err != nil {
		return fmt.Errorf("failed to add bookmark: %w", err)
	}
	return nil
}

// Remove deletes a bookmark, or returns domain.ErrBookmarkNotFound.
func (s *PostgresStore) Remove(ctx context.Context, sessionID string, articleID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM bookmarks WHERE session_id = $1 AND article_id = $2", sessionID, articleID)
	if err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.ErrBookmarkNotFound
	}
	return nil
}

// IsBookmarked reports whether the session bookmarked the article.
func (s *PostgresStore) IsBookmarked(ctx context.Context, sessionID string, articleID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM bookmarks WHERE session_id = $1 AND article_id = $2)",
		sessionID, articleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return exists, nil
}

// ListBookmarks returns the session's bookmarked article IDs, most recent first.
func (s *PostgresStore) ListBookmarks(ctx context.Context, sessionID string) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT article_id FROM bookmarks WHERE session_id = $1 ORDER BY created_at DESC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the session's bookmark count.
func (s *PostgresStore) Count(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookmarks WHERE session_id = $1", sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return count, nil
}
