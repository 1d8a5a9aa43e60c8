package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/newswire-dev/newswire/internal/app"
	"github.com/newswire-dev/newswire/internal/config"
	"github.com/newswire-dev/newswire/internal/errors"
	"github.com/newswire-dev/newswire/internal/sse"
)

const sessionMaxAgeDays = 30

// storePinger is the optional health hook a backing store may expose.
// The file-backed store has nothing to ping and simply doesn't implement it.
type storePinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	app          *app.Service
	registry     *sse.Registry
	limits       *streamLimits
	sessionStore *sessions.CookieStore
	storePing    storePinger
	startTime    time.Time
}

// NewServer assembles the HTTP layer. storePing may be nil for stores
// without a health check.
func NewServer(cfg *config.Config, service *app.Service, registry *sse.Registry, storePing storePinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(errors.Middleware())

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * sessionMaxAgeDays,
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          service,
		registry:     registry,
		limits:       newStreamLimits(cfg.StreamMaxConns, cfg.StreamMaxPerIP, cfg.StreamRatePerSec, cfg.StreamRateBurst),
		sessionStore: sessionStore,
		storePing:    storePing,
		startTime:    time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
