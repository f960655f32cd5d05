package postpilot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/juniperhq/postpilot/catalog"
	"github.com/juniperhq/postpilot/markdown"
	"github.com/juniperhq/postpilot/wordpress"
	"github.com/juniperhq/postpilot/writer"
)

// Pipeline drives a due post from keywords to a published article:
// LLM generation, affiliate image resolution, gallery insertion,
// block markup conversion, and the final publish call.
type Pipeline struct {
	store    *Store
	writer   *writer.Writer
	catalog  *catalog.Client
	wpConfig wordpress.Config
	featured func(context.Context, BlogPost, []catalog.Image) string
	log      *slog.Logger
}

// NewPipeline assembles a pipeline. The featured callback may be nil,
// in which case posts publish without a featured image.
func NewPipeline(store *Store, w *writer.Writer, cat *catalog.Client, wpConfig wordpress.Config, featured func(context.Context, BlogPost, []catalog.Image) string, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:    store,
		writer:   w,
		catalog:  cat,
		wpConfig: wpConfig,
		featured: featured,
		log:      log,
	}
}

// Run executes the full pipeline for one post. On failure the post
// returns to draft with its failure count incremented, so the next
// scheduler tick retries it until the ceiling parks it as failed.
func (p *Pipeline) Run(ctx context.Context, post BlogPost) error {
	if err := p.store.SetStatus(post.ID, StatusGenerating); err != nil {
		return err
	}

	result, err := p.generate(ctx, post)
	if err != nil {
		status, rerr := p.store.RecordFailure(post.ID)
		if rerr != nil {
			p.log.Error("recording pipeline failure", "post", post.ID, "error", rerr)
		}
		p.log.Error("pipeline run failed", "post", post.ID, "status", string(status), "error", err)
		return err
	}
	p.log.Info("post published", "post", post.ID, "url", result)
	return nil
}

func (p *Pipeline) generate(ctx context.Context, post BlogPost) (string, error) {
	article, err := p.writer.GenerateArticle(ctx, writer.Request{
		Keywords:          post.Keywords,
		SecondaryKeywords: post.SecondaryKeywords,
		Context:           post.ContextDescription,
		IntroLength:       post.IntroLength,
		SectionLength:     post.SectionLength,
		ConclusionLength:  post.ConclusionLength,
		AffiliateLinks:    post.AffiliateLinks,
	})
	if err != nil {
		return "", fmt.Errorf("generate article: %w", err)
	}

	var images []catalog.Image
	if p.catalog != nil {
		for _, link := range post.AffiliateLinks {
			images = append(images, p.catalog.Resolve(ctx, link)...)
		}
	}

	// Insert galleries after the second occurrence of each product in
	// the article body, then flag those products so the block markup
	// conversion does not insert them a second time.
	lines := strings.Split(article.Markdown, "\n")
	lines, insertedCodes := markdown.InsertGalleriesByOccurrence(lines, markdown.ImagesByProductCode(images))
	inserted := make(map[string]bool, len(insertedCodes))
	for _, code := range insertedCodes {
		inserted[code] = true
	}
	for i := range images {
		if inserted[images[i].ProductCode] {
			images[i].Cached = true
		}
	}
	md := strings.Join(lines, "\n")

	post.Title = article.Title
	post.Content = md
	if post.SEOTitle == "" {
		post.SEOTitle = article.Title
	}
	if post.SEODescription == "" {
		post.SEODescription = article.MetaDescription
	}
	if post.Excerpt == "" {
		post.Excerpt = article.MetaDescription
	}
	if post.Slug == "" && len(post.Keywords) > 0 {
		post.Slug = Slugify(post.Keywords[0])
	}

	featuredURL := ""
	if p.featured != nil {
		featuredURL = p.featured(ctx, post, images)
	}

	content := markdown.ToBlockMarkup(md, images)

	settings, err := p.store.GetSettings()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	client, err := wordpress.New(p.wpConfig, settings.TestMode)
	if err != nil {
		return "", fmt.Errorf("wordpress client: %w", err)
	}
	result, err := client.CreatePost(ctx, wordpress.Post{
		Title:            post.Title,
		Content:          content,
		Status:           "publish",
		Excerpt:          post.Excerpt,
		SEOTitle:         post.SEOTitle,
		SEODescription:   post.SEODescription,
		FeaturedImageURL: featuredURL,
	})
	if err != nil {
		return "", fmt.Errorf("publish post: %w", err)
	}

	if err := p.store.SavePublishResult(post.ID, post, images, result.Link); err != nil {
		return "", fmt.Errorf("save publish result: %w", err)
	}
	return result.Link, nil
}
