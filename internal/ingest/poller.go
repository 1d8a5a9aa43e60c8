package ingest

import (
	"context"
	"log/slog"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/jonboulle/clockwork"
	"github.com/mmcdole/gofeed"

	"github.com/newswire-dev/newswire/internal/cache"
	"github.com/newswire-dev/newswire/internal/domain"
	"github.com/newswire-dev/newswire/internal/metrics"
	"github.com/newswire-dev/newswire/internal/sse"
)

const (
	fetchTimeout       = 20 * time.Second
	readabilityTimeout = 10 * time.Second
)

// Poller periodically fetches the configured feeds and publishes new articles.
type Poller struct {
	feeds    []string
	fetcher  *Fetcher
	parser   *gofeed.Parser
	store    domain.ArticleStore
	cache    *cache.Client
	registry *sse.Registry
	clock    clockwork.Clock
	interval time.Duration

	// extractContent enables full-text extraction for items whose feed entry
	// carries no body. Off in tests.
	extractContent bool
}

// NewPoller wires a poller over the given store, cache, and broadcaster.
func NewPoller(feeds []string, store domain.ArticleStore, cacheClient *cache.Client, registry *sse.Registry, clock clockwork.Clock, interval time.Duration, extractContent bool) *Poller {
	return &Poller{
		feeds:          feeds,
		fetcher:        NewFetcher(fetchTimeout),
		parser:         gofeed.NewParser(),
		store:          store,
		cache:          cacheClient,
		registry:       registry,
		clock:          clock,
		interval:       interval,
		extractContent: extractContent,
	}
}

// Run polls immediately and then on every interval tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if len(p.feeds) == 0 {
		slog.Info("No feeds configured, ingest poller idle")
		return
	}

	p.poll(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			p.poll(ctx)
		case <-ctx.Done():
			slog.Info("Ingest poller stopped")
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	start := p.clock.Now()
	inserted, err := p.PollOnce(ctx)
	metrics.IngestPollDuration.Observe(p.clock.Since(start).Seconds())

	if err != nil {
		slog.Error("Feed poll failed", "error", err)
		return
	}
	slog.Info("Feed poll complete", "new_articles", inserted, "feeds", len(p.feeds))
}

// PollOnce fetches every feed once, upserts the results, and broadcasts a
// new_articles event if anything was inserted. Returns the insert count.
// A single failing feed is logged and skipped, never fatal to the cycle.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	var collected []domain.Article
	for _, feedURL := range p.feeds {
		articles, err := p.pollFeed(ctx, feedURL)
		if err != nil {
			metrics.IngestFeedErrors.WithLabelValues(feedURL).Inc()
			slog.Warn("Skipping feed", "feed_url", feedURL, "error", err)
			continue
		}
		collected = append(collected, articles...)
	}

	inserted, err := p.store.Upsert(ctx, collected)
	if err != nil {
		return 0, err
	}
	if inserted == 0 {
		return 0, nil
	}

	// Invalidate before broadcasting so reconnecting clients re-fetch fresh state.
	p.cache.Del(ctx, cache.ArticlesKey())

	total := inserted
	if all, err := p.store.List(ctx); err == nil {
		total = len(all)
	}

	p.registry.Broadcast(sse.Event{
		Type:      sse.EventNewArticles,
		Data:      sse.NewArticlesData{TotalCount: total, NewCount: inserted},
		Timestamp: p.clock.Now(),
	})

	return inserted, nil
}

func (p *Poller) pollFeed(ctx context.Context, feedURL string) ([]domain.Article, error) {
	body, err := p.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := p.parser.ParseString(string(body))
	if err != nil {
		return nil, err
	}

	now := p.clock.Now().UTC()
	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		articles = append(articles, p.itemToArticle(feed, item, now))
	}

	metrics.IngestArticlesTotal.WithLabelValues(feed.Title).Add(float64(len(articles)))
	return articles, nil
}

func (p *Poller) itemToArticle(feed *gofeed.Feed, item *gofeed.Item, now time.Time) domain.Article {
	article := domain.Article{
		GUID:        item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Source:      feed.Title,
		Description: item.Description,
		Content:     item.Content,
		PublishedAt: now,
		FetchedAt:   now,
	}
	if article.GUID == "" {
		article.GUID = item.Link
	}
	if item.PublishedParsed != nil {
		article.PublishedAt = item.PublishedParsed.UTC()
	}
	if item.Image != nil {
		article.ImageURL = item.Image.URL
	}

	if p.extractContent && article.Content == "" {
		if extracted, err := readability.FromURL(item.Link, readabilityTimeout); err == nil {
			article.Content = extracted.Content
			if article.Description == "" {
				article.Description = extracted.Excerpt
			}
		} else {
			slog.Debug("Readability extraction failed", "link", item.Link, "error", err)
		}
	}

	return article
}
