package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = time.Hour

	// statusActive is the only product state worth resolving; anything
	// else (paused, retired) yields no images.
	statusActive = "ACTIVE"
)

// Client queries the product catalog API for affiliate product data.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *productCache
}

// NewClient creates a catalog client. Resolved image sets are cached per
// product code so repeated pipeline runs do not re-hit the API.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		cache:      newProductCache(defaultCacheTTL),
	}
}

type productResponse struct {
	Status string         `json:"status"`
	Title  string         `json:"title"`
	Images []productImage `json:"images"`
}

type productImage struct {
	Caption  string         `json:"caption"`
	Variants []imageVariant `json:"variants"`
}

type imageVariant struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Resolve looks up the product behind an affiliate link and returns its
// images, one per source image, each at its highest-resolution variant.
// Resolution failures are logged and yield an empty result; a missing
// product never aborts a pipeline run.
func (c *Client) Resolve(ctx context.Context, link Link) []Image {
	code := ProductCode(link.URL)
	if code == "" {
		return nil
	}

	if images, ok := c.cache.get(code); ok {
		return withHeading(images, link.Name)
	}

	product, err := c.fetchProduct(ctx, code)
	if err != nil {
		slog.Warn("catalog lookup failed", "product", code, "error", err)
		return nil
	}
	if product.Status != statusActive {
		slog.Info("product not sellable, skipping images", "product", code, "status", product.Status)
		return nil
	}

	var images []Image
	for _, img := range product.Images {
		best, ok := bestVariant(img.Variants)
		if !ok {
			continue
		}
		alt := img.Caption
		if alt == "" {
			alt = product.Title
		}
		images = append(images, Image{
			URL:         best.URL,
			Alt:         alt,
			ProductCode: code,
			Width:       best.Width,
			Height:      best.Height,
		})
	}
	if len(images) == 0 {
		slog.Warn("product has no usable image variants", "product", code)
		return nil
	}

	c.cache.put(code, images)
	return withHeading(images, link.Name)
}

func (c *Client) fetchProduct(ctx context.Context, code string) (productResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+code, nil)
	if err != nil {
		return productResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("exp-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return productResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return productResponse{}, fmt.Errorf("catalog: product %s: unexpected status %d", code, resp.StatusCode)
	}

	var product productResponse
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return productResponse{}, fmt.Errorf("catalog: decode product %s: %w", code, err)
	}
	return product, nil
}

// bestVariant picks the variant with the largest pixel area. Strict >
// keeps the first-seen variant on ties.
func bestVariant(variants []imageVariant) (imageVariant, bool) {
	var best imageVariant
	found := false
	for _, v := range variants {
		if v.URL == "" {
			continue
		}
		if !found || v.Width*v.Height > best.Width*best.Height {
			best = v
			found = true
		}
	}
	return best, found
}

// withHeading copies images so callers never share slices with the
// cache, stamping each copy with the heading it belongs to.
func withHeading(images []Image, heading string) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		img.Heading = heading
		img.Cached = false
		out[i] = img
	}
	return out
}
