package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/newswire-dev/newswire/internal/cache"
	"github.com/newswire-dev/newswire/internal/domain"
	"github.com/newswire-dev/newswire/internal/errors"
	"github.com/newswire-dev/newswire/internal/metrics"
	"github.com/newswire-dev/newswire/internal/sse"
)

const webhookTimeout = 30 * time.Second

// webhookPoster posts a JSON payload to the social-content generator.
type webhookPoster interface {
	Post(ctx context.Context, url string, payload any) error
}

type webhookClient struct {
	inner *retryablehttp.Client
}

func newWebhookClient() *webhookClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = webhookTimeout
	return &webhookClient{inner: client}
}

func (w *webhookClient) Post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.inner.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// socialRequest is what the generator receives.
type socialRequest struct {
	ArticleID   string `json:"article_id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// RequestSocialContent returns cached social content if present, otherwise
// kicks off generation via the webhook and reports that it is pending.
// Generation is fire-and-forget: webhook failures are logged, never surfaced.
func (s *Service) RequestSocialContent(ctx context.Context, articleID uuid.UUID) (domain.SocialContent, bool, error) {
	var cached domain.SocialContent
	if s.cache.Get(ctx, cache.SocialKey(articleID), &cached) {
		return cached, true, nil
	}

	article, err := s.articles.Get(ctx, articleID)
	if err != nil {
		if err == domain.ErrArticleNotFound {
			return domain.SocialContent{}, false, errors.NotFoundError("article not found").WithField("article_id", articleID.String())
		}
		return domain.SocialContent{}, false, errors.InternalError("failed to load article", err)
	}

	if s.webhookURL == "" {
		return domain.SocialContent{}, false, errors.UnavailableError("social content generation is not configured", nil)
	}

	go s.postWebhook(article)
	return domain.SocialContent{}, false, nil
}

func (s *Service) postWebhook(article domain.Article) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	payload := socialRequest{
		ArticleID:   article.ID.String(),
		Title:       article.Title,
		Link:        article.Link,
		Description: article.Description,
		Source:      article.Source,
	}

	if err := s.webhook.Post(ctx, s.webhookURL, payload); err != nil {
		metrics.SocialWebhookTotal.WithLabelValues("error").Inc()
		slog.Warn("Social webhook failed", "article_id", article.ID, "error", err)
		return
	}
	metrics.SocialWebhookTotal.WithLabelValues("success").Inc()
}

// StoreSocialContent saves generated content delivered by the webhook callback
// and broadcasts an article_update so connected clients refresh.
func (s *Service) StoreSocialContent(ctx context.Context, articleID uuid.UUID, body string) (domain.SocialContent, error) {
	if body == "" {
		return domain.SocialContent{}, errors.ValidationError("social content body must not be empty")
	}
	if _, err := s.articles.Get(ctx, articleID); err != nil {
		if err == domain.ErrArticleNotFound {
			return domain.SocialContent{}, errors.NotFoundError("article not found").WithField("article_id", articleID.String())
		}
		return domain.SocialContent{}, errors.InternalError("failed to load article", err)
	}

	content := domain.SocialContent{
		ArticleID:   articleID,
		Body:        body,
		GeneratedAt: s.clock.Now().UTC(),
	}
	s.cache.Set(ctx, cache.SocialKey(articleID), content, socialTTL)

	s.registry.Broadcast(sse.Event{
		Type:      sse.EventArticleUpdate,
		Data:      map[string]string{"article_id": articleID.String()},
		Timestamp: s.clock.Now(),
	})
	return content, nil
}
