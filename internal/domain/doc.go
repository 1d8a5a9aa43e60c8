// Package domain defines the core entities and store contracts shared across the application.
//
// Contains Article, Bookmark, SocialContent, and SessionRecord plus the ArticleStore and
// BookmarkStore interfaces implemented by the file and Postgres backends.
package domain
