// Package wordpress publishes finished articles to a remote WordPress
// site through its REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// Config holds the publishing target credentials. Username plus
// application token form the basic-auth pair.
type Config struct {
	BaseURL  string
	Username string
	Token    string
}

// PublishError reports a rejected or failed publish call.
type PublishError struct {
	StatusCode int
	Message    string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("wordpress: publish rejected with status %d: %s", e.StatusCode, e.Message)
}

// Post is the payload for one publish call.
type Post struct {
	Title            string
	Content          string
	Status           string
	Excerpt          string
	SEOTitle         string
	SEODescription   string
	FeaturedImageURL string
}

// Result identifies the created remote post. DryRun marks results from
// test mode, where no real call was made.
type Result struct {
	ID     int
	Link   string
	DryRun bool
}

// Client talks to the WordPress REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	dryRun     bool
}

// New creates a publishing client. When dryRun is set, CreatePost
// suppresses the remote call and returns a distinguishable result.
func New(cfg Config, dryRun bool) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("wordpress: base url is required")
	}
	if !dryRun && (cfg.Username == "" || cfg.Token == "") {
		return nil, errors.New("wordpress: username and token are required")
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		dryRun:     dryRun,
	}, nil
}

type createPostPayload struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Status        string   `json:"status"`
	Excerpt       string   `json:"excerpt,omitempty"`
	Meta          postMeta `json:"meta"`
	FeaturedMedia string   `json:"featured_image_url,omitempty"`
}

type postMeta struct {
	SEOTitle       string `json:"seo_title,omitempty"`
	SEODescription string `json:"seo_description,omitempty"`
}

type createPostResponse struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// CreatePost publishes one post and returns its remote id and link.
func (c *Client) CreatePost(ctx context.Context, post Post) (*Result, error) {
	if post.Title == "" || post.Content == "" {
		return nil, errors.New("wordpress: title and content are required")
	}
	if post.Status == "" {
		post.Status = "publish"
	}

	if c.dryRun {
		return &Result{Link: c.cfg.BaseURL + "/?dry-run", DryRun: true}, nil
	}

	payload := createPostPayload{
		Title:   post.Title,
		Content: post.Content,
		Status:  post.Status,
		Excerpt: post.Excerpt,
		Meta: postMeta{
			SEOTitle:       post.SEOTitle,
			SEODescription: post.SEODescription,
		},
		FeaturedMedia: post.FeaturedImageURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wordpress: encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordpress: publish call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, &PublishError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	var created createPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("wordpress: decode response: %w", err)
	}
	return &Result{ID: created.ID, Link: created.Link}, nil
}
