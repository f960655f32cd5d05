package postpilot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/juniperhq/postpilot/catalog"
)

const (
	maxFeaturedWidth = 800
	jpegQuality      = 80
	maxImageBytes    = 10 << 20 // 10MB
	uploadsSubdir    = "uploads"
)

// featuredImage downloads the first resolved product image, downscales
// it to the featured width, re-encodes it as JPEG under the static
// uploads directory, and returns its public URL. On any failure the
// remote URL is returned unchanged so publishing still proceeds.
func (a *App) featuredImage(ctx context.Context, post BlogPost, images []catalog.Image) string {
	if len(images) == 0 {
		return ""
	}
	remote := images[0].URL
	local, err := a.prepareFeaturedImage(ctx, post.Slug, remote)
	if err != nil {
		a.log.Warn("featured image preparation failed, using remote URL",
			"post", post.ID, "url", remote, "error", err)
		return remote
	}
	return local
}

func (a *App) prepareFeaturedImage(ctx context.Context, slug, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(http.MaxBytesReader(nil, resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxFeaturedWidth {
		newH := h * maxFeaturedWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxFeaturedWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	if slug == "" {
		slug = "featured"
	}
	filename := fmt.Sprintf("%s-%d.jpg", Slugify(slug), time.Now().Unix())
	dir := filepath.Join(a.staticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return "/public/" + uploadsSubdir + "/" + filename, nil
}
