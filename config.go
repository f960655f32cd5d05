package postpilot

import (
	"time"

	"github.com/juniperhq/postpilot/llm"
)

// Config holds all configuration for a postpilot instance.
type Config struct {
	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/postpilot.db")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	OpenAIAPIKey  string // Required unless a custom LLM client is injected
	OpenAIBaseURL string // Optional override for OpenAI-compatible endpoints
	OpenAIModel   string // Chat model (default "gpt-4o")

	CatalogBaseURL string // Product catalog API base URL
	CatalogAPIKey  string // Product catalog API key

	WordPressBaseURL string // Target WordPress site URL
	WordPressUser    string // WordPress application username
	WordPressToken   string // WordPress application password

	SchedulerInterval time.Duration // Due-post poll interval (default 1min)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/postpilot.db"
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = "gpt-4o"
	}
	if c.SchedulerInterval == 0 {
		c.SchedulerInterval = time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithLLM injects a custom LLM client, replacing the OpenAI default.
// Useful for tests and for self-hosted OpenAI-compatible backends.
func WithLLM(c llm.Client) Option {
	return func(a *App) {
		a.llm = c
	}
}

// WithStaticDir sets the directory for downloaded media assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
