package cache

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// Key schema:
//   articles:all                     — JSON array of the full article collection
//   articles:search:{b64url(query)}  — JSON array of search results for one query
//   session:{sessionID}              — JSON session record
//   bookmarks:{sessionID}            — set of bookmarked article IDs
//   bookmarks:list:{sessionID}       — JSON array of resolved bookmarked articles
//   bookmarks:count:{sessionID}      — JSON integer
//   social:{articleID}               — JSON generated social content
//
// All keys are produced here; callers never build keys ad hoc, so per-entity
// invalidation stays targetable.

// ArticlesKey is the cache key for the full article collection.
func ArticlesKey() string {
	return "articles:all"
}

// SearchKey is the cache key for one search query's results. The query is
// base64url-encoded so the key is safe and the query remains recoverable.
func SearchKey(query string) string {
	return "articles:search:" + base64.RawURLEncoding.EncodeToString([]byte(query))
}

// SearchKeyQuery recovers the original query from a search cache key.
// Returns false if the key is not a search key or the encoding is invalid.
func SearchKeyQuery(key string) (string, bool) {
	const prefix = "articles:search:"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(key, prefix))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// SessionKey is the cache key for one session record.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// BookmarkSetKey is the cache key for a session's bookmark membership set.
func BookmarkSetKey(sessionID string) string {
	return "bookmarks:" + sessionID
}

// BookmarkListKey is the cache key for a session's resolved bookmark list.
func BookmarkListKey(sessionID string) string {
	return "bookmarks:list:" + sessionID
}

// BookmarkCountKey is the cache key for a session's bookmark count.
func BookmarkCountKey(sessionID string) string {
	return "bookmarks:count:" + sessionID
}

// SocialKey is the cache key for one article's generated social content.
func SocialKey(articleID uuid.UUID) string {
	return "social:" + articleID.String()
}
