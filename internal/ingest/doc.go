// Package ingest polls RSS/Atom feeds and turns new items into articles.
//
// New articles are upserted into the backing store, the article cache keys are
// invalidated, and a new_articles event is broadcast to all connected SSE clients.
package ingest
