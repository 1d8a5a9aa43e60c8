// Package store provides the persistent backing stores the cache layer falls through to.
//
// FileStore keeps everything in a single JSON file and is the default backend;
// PostgresStore is selected when DATABASE_URL is configured. Both implement
// domain.ArticleStore and domain.BookmarkStore.
package store
