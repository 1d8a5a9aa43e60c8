package domain

import "errors"

var (
	// ErrArticleNotFound is returned when an article ID is unknown to the store.
	ErrArticleNotFound = errors.New("article not found")
	// ErrBookmarkNotFound is returned when removing a bookmark that does not exist.
	ErrBookmarkNotFound = errors.New("bookmark not found")
)
