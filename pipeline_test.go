package postpilot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/juniperhq/postpilot/catalog"
	"github.com/juniperhq/postpilot/llm"
	"github.com/juniperhq/postpilot/wordpress"
	"github.com/juniperhq/postpilot/writer"
)

func testWords(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

var wordRangeRe = regexp.MustCompile(`between (\d+) and (\d+) words`)

// articleFn answers outline and intro prompts with fixed JSON and every
// constrained prompt with the midpoint of the requested word range.
func articleFn(prompt llm.Prompt) (string, error) {
	user := prompt.User
	switch {
	case strings.Contains(user, "Create an outline"):
		return `{"title": "Banff Hiking Guide", "outline": [` +
			`{"heading": "Banff Gondola", "subheadings": ["Tickets"]},` +
			`{"heading": "Best Trails", "subheadings": []}]}`, nil
	case strings.Contains(user, "meta description"):
		return fmt.Sprintf(`{"introduction": %q, "description": "Plan your Banff hike."}`, testWords(100)), nil
	}
	m := wordRangeRe.FindStringSubmatch(user)
	if m == nil {
		return "unconstrained response", nil
	}
	var lo, hi int
	fmt.Sscanf(m[1], "%d", &lo)
	fmt.Sscanf(m[2], "%d", &hi)
	return testWords((lo + hi) / 2), nil
}

func newProductServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/456P7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"status": "ACTIVE", "title": "Banff Gondola", "images": [`+
			`{"caption": "Summit view", "variants": [`+
			`{"url": "https://img.example.com/large.jpg", "width": 720, "height": 480}]}]}`)
	}))
}

type publishedPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
	Excerpt string `json:"excerpt"`
}

func newWordPressServer(t *testing.T, captured *[]publishedPost) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var p publishedPost
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode publish payload: %v", err)
		}
		*captured = append(*captured, p)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 42, "link": "https://blog.example.com/?p=42"}`)
	}))
}

func newTestPipeline(t *testing.T, s *Store, fn func(llm.Prompt) (string, error), captured *[]publishedPost) *Pipeline {
	t.Helper()
	products := newProductServer(t)
	t.Cleanup(products.Close)
	wp := newWordPressServer(t, captured)
	t.Cleanup(wp.Close)

	return NewPipeline(s, writer.New(&llm.Mock{Fn: fn}),
		catalog.NewClient(products.URL, "key"),
		wordpress.Config{BaseURL: wp.URL, Username: "bot", Token: "secret"},
		nil, nil)
}

func duePost(t *testing.T, s *Store) BlogPost {
	t.Helper()
	p, err := s.CreatePost(BlogPost{
		Keywords:         []string{"banff hiking"},
		IntroLength:      100,
		SectionLength:    150,
		ConclusionLength: 80,
		ScheduledDate:    time.Now().UTC().Add(-time.Hour),
		AffiliateLinks: []catalog.Link{
			{Name: "Banff Gondola", URL: "https://www.example.com/tours/Banff/d123-456P7"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	return p
}

func TestPipelinePublishesDuePost(t *testing.T) {
	s := setupTestStore(t)
	var captured []publishedPost
	p := newTestPipeline(t, s, articleFn, &captured)
	post := duePost(t, s)

	if err := p.Run(context.Background(), post); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := s.GetPost(post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPublished {
		t.Fatalf("Status = %q, want published", got.Status)
	}
	if got.WordPressURL != "https://blog.example.com/?p=42" {
		t.Errorf("WordPressURL = %q", got.WordPressURL)
	}
	if got.Title != "Banff Hiking Guide" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.SEODescription != "Plan your Banff hike." {
		t.Errorf("SEODescription = %q", got.SEODescription)
	}

	// The affiliate product appears twice in the article (table of
	// contents, then the linked section heading), so the stored
	// markdown carries its gallery after the heading.
	md := got.Content
	if n := strings.Count(md, `<figure class="wp-block-image`); n != 1 {
		t.Errorf("markdown gallery count = %d, want 1:\n%s", n, md)
	}
	if len(got.AffiliateImages) != 1 {
		t.Fatalf("AffiliateImages = %v, want 1 image", got.AffiliateImages)
	}
	if !got.AffiliateImages[0].Cached {
		t.Error("inserted image should be flagged cached")
	}

	if len(captured) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(captured))
	}
	content := captured[0].Content
	if strings.Contains(content, "## ") {
		t.Errorf("published content still contains markdown headings:\n%s", content)
	}
	if !strings.Contains(content, "<h1>Banff Hiking Guide</h1>") {
		t.Errorf("published content missing h1:\n%s", content)
	}
	if !strings.Contains(content, `<a href="https://www.example.com/tours/Banff/d123-456P7">Banff Gondola</a>`) {
		t.Errorf("published content missing affiliate link:\n%s", content)
	}
	// The gallery was already placed during the markdown pass; the
	// block conversion must not add a second copy.
	if n := strings.Count(content, `<figure class="wp-block-image`); n != 1 {
		t.Errorf("published gallery count = %d, want 1:\n%s", n, content)
	}
	if !strings.Contains(content, "<p>") {
		t.Errorf("published content missing paragraphs:\n%s", content)
	}
}

func TestPipelineDryRunSkipsRemoteCall(t *testing.T) {
	s := setupTestStore(t)
	var captured []publishedPost
	p := newTestPipeline(t, s, articleFn, &captured)
	post := duePost(t, s)

	if err := s.SaveSettings(Settings{TestMode: true}); err != nil {
		t.Fatal(err)
	}

	if err := p.Run(context.Background(), post); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(captured) != 0 {
		t.Fatalf("dry run should not hit the publish endpoint, got %d calls", len(captured))
	}
	got, err := s.GetPost(post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPublished {
		t.Errorf("Status = %q, want published", got.Status)
	}
}

func TestPipelineFailureReturnsPostToDraft(t *testing.T) {
	s := setupTestStore(t)
	var captured []publishedPost
	failing := func(prompt llm.Prompt) (string, error) {
		return "", fmt.Errorf("model unavailable")
	}
	p := newTestPipeline(t, s, failing, &captured)
	post := duePost(t, s)

	if err := p.Run(context.Background(), post); err == nil {
		t.Fatal("expected Run to fail")
	}

	got, err := s.GetPost(post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusDraft {
		t.Errorf("Status = %q, want draft for retry", got.Status)
	}
	if got.GenerationAttempts != 1 {
		t.Errorf("GenerationAttempts = %d, want 1", got.GenerationAttempts)
	}
	if len(captured) != 0 {
		t.Errorf("failed run should not publish, got %d calls", len(captured))
	}
}
