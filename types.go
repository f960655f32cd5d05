package postpilot

import (
	"time"

	"github.com/juniperhq/postpilot/catalog"
)

// PostStatus is the lifecycle state of a blog post.
type PostStatus string

const (
	// StatusDraft is the initial state; a due draft without content is
	// picked up by the scheduler.
	StatusDraft PostStatus = "draft"
	// StatusGenerating marks a post whose pipeline run is in flight.
	StatusGenerating PostStatus = "generating"
	// StatusScheduled marks a post with a future publish time set.
	StatusScheduled PostStatus = "scheduled"
	// StatusPublished is terminal for the normal flow.
	StatusPublished PostStatus = "published"
	// StatusFailed is terminal for posts that exhausted their
	// generation attempts.
	StatusFailed PostStatus = "failed"
)

// BlogPost is the persisted content entity driven through the pipeline.
type BlogPost struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Content            string          `json:"content"`
	Status             PostStatus      `json:"status"`
	Keywords           []string        `json:"keywords"`
	SecondaryKeywords  []string        `json:"secondaryKeywords,omitempty"`
	ContextDescription string          `json:"contextDescription,omitempty"`
	ScheduledDate      time.Time       `json:"scheduledDate"`
	IntroLength        int             `json:"introLength"`
	SectionLength      int             `json:"sectionLength"`
	ConclusionLength   int             `json:"conclusionLength"`
	AffiliateLinks     []catalog.Link  `json:"affiliateLinks,omitempty"`
	AffiliateImages    []catalog.Image `json:"affiliateImages,omitempty"`
	SEOTitle           string          `json:"seoTitle,omitempty"`
	SEODescription     string          `json:"seoDescription,omitempty"`
	Excerpt            string          `json:"excerpt,omitempty"`
	Slug               string          `json:"slug,omitempty"`
	MetaTags           []string        `json:"metaTags,omitempty"`
	WordPressURL       string          `json:"wordpressUrl,omitempty"`
	GenerationAttempts int             `json:"generationAttempts"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// PostPatch is a partial update; nil fields are left unchanged.
type PostPatch struct {
	Title              *string          `json:"title,omitempty"`
	Content            *string          `json:"content,omitempty"`
	Status             *PostStatus      `json:"status,omitempty"`
	Keywords           *[]string        `json:"keywords,omitempty"`
	SecondaryKeywords  *[]string        `json:"secondaryKeywords,omitempty"`
	ContextDescription *string          `json:"contextDescription,omitempty"`
	ScheduledDate      *time.Time       `json:"scheduledDate,omitempty"`
	IntroLength        *int             `json:"introLength,omitempty"`
	SectionLength      *int             `json:"sectionLength,omitempty"`
	ConclusionLength   *int             `json:"conclusionLength,omitempty"`
	AffiliateLinks     *[]catalog.Link  `json:"affiliateLinks,omitempty"`
	AffiliateImages    *[]catalog.Image `json:"affiliateImages,omitempty"`
	SEOTitle           *string          `json:"seoTitle,omitempty"`
	SEODescription     *string          `json:"seoDescription,omitempty"`
	Excerpt            *string          `json:"excerpt,omitempty"`
	Slug               *string          `json:"slug,omitempty"`
	MetaTags           *[]string        `json:"metaTags,omitempty"`
}

// Settings is the singleton configuration row. TestMode suppresses real
// publish calls across the whole pipeline.
type Settings struct {
	TestMode  bool      `json:"testMode"`
	UpdatedAt time.Time `json:"updatedAt"`
}
