package sse

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags a broadcast event.
type EventType string

const (
	EventNewArticles      EventType = "new_articles"
	EventArticleUpdate    EventType = "article_update"
	EventConnectionStatus EventType = "connection_status"
	EventArticlesCleared  EventType = "articles_cleared"
)

// Event is one broadcast message. Immutable once constructed.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewArticlesData is the payload of an EventNewArticles event.
type NewArticlesData struct {
	TotalCount int `json:"totalCount"`
	NewCount   int `json:"newCount,omitempty"`
}

// frame renders the event in SSE wire form: "data: <JSON>\n\n".
func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// keepAliveFrame is the comment line written to defeat proxy idle timeouts.
var keepAliveFrame = []byte(": keep-alive\n\n")

// connectedFrame confirms the channel is live immediately after registration.
var connectedFrame = []byte("data: {\"type\":\"connected\"}\n\n")
