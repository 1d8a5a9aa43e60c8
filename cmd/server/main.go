package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/newswire-dev/newswire/internal/app"
	"github.com/newswire-dev/newswire/internal/cache"
	"github.com/newswire-dev/newswire/internal/config"
	"github.com/newswire-dev/newswire/internal/domain"
	"github.com/newswire-dev/newswire/internal/ingest"
	"github.com/newswire-dev/newswire/internal/logging"
	"github.com/newswire-dev/newswire/internal/server"
	"github.com/newswire-dev/newswire/internal/sse"
	"github.com/newswire-dev/newswire/internal/store"
)

// articleBookmarkStore is what both backing stores satisfy.
type articleBookmarkStore interface {
	domain.ArticleStore
	domain.BookmarkStore
}

func setupConfig() *config.Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config) (articleBookmarkStore, *store.PostgresStore) {
	if cfg.DatabaseURL == "" {
		slog.Info("Using file-backed store", "path", cfg.DataFile)
		return store.NewFileStore(cfg.DataFile), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("Using postgres store")
	return pg, pg
}

func runGracefulShutdown(srv *server.Server, registry *sse.Registry, cacheClient *cache.Client, pg *store.PostgresStore, cancelPoller context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelPoller()
		registry.Close()

		if err := cacheClient.Close(); err != nil {
			slog.Error("Cache close error", "error", err)
		}
		if pg != nil {
			if err := pg.Close(); err != nil {
				slog.Error("Store close error", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	backing, pg := setupStore(cfg)

	// The cache connects lazily; an unreachable Redis degrades reads to the
	// store instead of blocking startup.
	cacheClient := cache.New(cfg.RedisURL, clock)

	registry := sse.NewRegistry(clock, sse.Options{})

	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	poller := ingest.NewPoller(cfg.FeedURLs, backing, cacheClient, registry, clock, cfg.PollInterval, true)
	go poller.Run(pollerCtx)

	service := app.NewService(backing, backing, cacheClient, registry, clock, cfg.SocialWebhookURL)

	// Pass nil explicitly when file-backed to avoid a typed-nil interface.
	var srv *server.Server
	if pg != nil {
		srv = server.NewServer(cfg, service, registry, pg)
	} else {
		srv = server.NewServer(cfg, service, registry, nil)
	}

	done := runGracefulShutdown(srv, registry, cacheClient, pg, cancelPoller)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
