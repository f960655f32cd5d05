// Package llm abstracts the content-generation model behind a small
// completion interface so the pipeline can run against the real API or
// a scripted mock.
package llm

import "context"

// Client is a single opaque completion capability.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is one request to the model.
type Prompt struct {
	System      string
	User        string
	JSONObject  bool    // ask for a JSON-object response
	Temperature float64 // 0 means provider default
	MaxTokens   int     // 0 means provider default
}

// Settings configures a concrete client implementation.
type Settings struct {
	Model   string
	APIKey  string
	BaseURL string
}
