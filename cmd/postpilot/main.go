package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juniperhq/postpilot"
)

func main() {
	setupLogging()

	cfg := postpilot.Config{
		Addr:         postpilot.EnvOr("ADDR", ":3000"),
		DatabasePath: postpilot.EnvOr("DATABASE_PATH", "data/postpilot.db"),

		AdminPassword: postpilot.MustEnv("ADMIN_PASSWORD"),
		SessionSecret: postpilot.MustEnv("SESSION_SECRET"),
		CookieSecure:  os.Getenv("COOKIE_SECURE") == "true",

		OpenAIAPIKey:  postpilot.MustEnv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   postpilot.EnvOr("OPENAI_MODEL", "gpt-4o"),

		CatalogBaseURL: os.Getenv("CATALOG_BASE_URL"),
		CatalogAPIKey:  os.Getenv("CATALOG_API_KEY"),

		WordPressBaseURL: postpilot.MustEnv("WORDPRESS_URL"),
		WordPressUser:    os.Getenv("WORDPRESS_USER"),
		WordPressToken:   os.Getenv("WORDPRESS_TOKEN"),
	}
	if v := os.Getenv("SCHEDULER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid SCHEDULER_INTERVAL", "value", v, "error", err)
			os.Exit(1)
		}
		cfg.SchedulerInterval = d
	}

	app := postpilot.New(cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Echo.Shutdown(ctx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
		app.Close()
	}()

	if err := app.Start(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
