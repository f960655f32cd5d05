// Package postpilot is an automated blog publishing pipeline built with
// Go, Echo, and the OpenAI API. A background scheduler picks up due
// draft posts, generates word-count-constrained articles section by
// section, resolves affiliate product images from a booking catalog,
// converts the result to WordPress block markup, and publishes it to a
// remote WordPress site. A JSON admin API manages posts and settings.
package postpilot

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	_ "modernc.org/sqlite"

	"github.com/juniperhq/postpilot/catalog"
	"github.com/juniperhq/postpilot/llm"
	"github.com/juniperhq/postpilot/wordpress"
	"github.com/juniperhq/postpilot/writer"
)

// App is the central postpilot application. It wires together the
// store, pipeline, scheduler, handlers, and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store

	llm          llm.Client
	pipeline     *Pipeline
	scheduler    *Scheduler
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
	log          *slog.Logger
}

// New creates a new postpilot App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
		log:       slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, pipeline, scheduler, middleware, and
// routes, then starts the server. It blocks until the server stops.
func (a *App) Start() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("postpilot: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("postpilot: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("postpilot: init store: %w", err)
	}
	a.Store = store

	if a.llm == nil {
		client, err := llm.NewOpenAI(llm.Settings{
			Model:   a.Config.OpenAIModel,
			APIKey:  a.Config.OpenAIAPIKey,
			BaseURL: a.Config.OpenAIBaseURL,
		})
		if err != nil {
			return fmt.Errorf("postpilot: init llm: %w", err)
		}
		a.llm = client
	}

	var cat *catalog.Client
	if a.Config.CatalogBaseURL != "" {
		cat = catalog.NewClient(a.Config.CatalogBaseURL, a.Config.CatalogAPIKey)
	}

	a.pipeline = NewPipeline(a.Store, writer.New(a.llm), cat, wordpress.Config{
		BaseURL:  a.Config.WordPressBaseURL,
		Username: a.Config.WordPressUser,
		Token:    a.Config.WordPressToken,
	}, a.featuredImage, a.log)

	a.scheduler = NewScheduler(a.Store, a.pipeline, a.Config.SchedulerInterval, a.log)
	a.scheduler.Start()

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close stops the scheduler and releases resources. Call this when the
// app is shutting down.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally
// exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
