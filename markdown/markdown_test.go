package markdown

import (
	"strings"
	"testing"

	"github.com/juniperhq/postpilot/catalog"
)

func TestToBlockMarkupHeadings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# Heading 1", "<h1>Heading 1</h1>"},
		{"## Heading 2", "<h2>Heading 2</h2>"},
		{"### Heading 3", "<h3>Heading 3</h3>"},
	}
	for _, tt := range tests {
		got := ToBlockMarkup(tt.input, nil)
		if got != tt.expected {
			t.Errorf("ToBlockMarkup(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestToBlockMarkupBoldBeforeItalic(t *testing.T) {
	got := ToBlockMarkup("**bold** and *italic*", nil)
	expected := "<p><strong>bold</strong> and <em>italic</em></p>"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
	if strings.Contains(got, "<em></em>") || strings.Contains(got, "<em><strong>") {
		t.Errorf("double-asterisk run partially consumed by italic rule: %q", got)
	}
}

func TestToBlockMarkupLinks(t *testing.T) {
	got := ToBlockMarkup("see [the guide](https://example.com/guide)", nil)
	expected := `<p>see <a href="https://example.com/guide">the guide</a></p>`
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestToBlockMarkupOrphanBrackets(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"some [orphan] text", "<p>some orphan text</p>"},
		{"ends with [orphan]", "<p>ends with orphan</p>"},
		{"[real](https://x.test) stays", `<p><a href="https://x.test">real</a> stays</p>`},
	}
	for _, tt := range tests {
		got := ToBlockMarkup(tt.input, nil)
		if got != tt.expected {
			t.Errorf("ToBlockMarkup(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestToBlockMarkupLists(t *testing.T) {
	got := ToBlockMarkup("- one\n- two\n\n1. first\n2. second", nil)
	expected := "<ul>\n<li>one</li>\n<li>two</li>\n</ul>\n<ol>\n<li>first</li>\n<li>second</li>\n</ol>"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestToBlockMarkupParagraphs(t *testing.T) {
	got := ToBlockMarkup("plain text line\n\nanother", nil)
	expected := "<p>plain text line</p>\n<p>another</p>"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestToBlockMarkupImageSyntaxConsumesSequence(t *testing.T) {
	images := []catalog.Image{
		{URL: "https://img/a.jpg", Alt: "first", ProductCode: "A1"},
	}
	got := ToBlockMarkup("![ignored alt](https://raw/x.jpg)\n\n![leftover](https://raw/y.jpg)", images)
	if strings.Count(got, "wp-block-image") != 1 {
		t.Errorf("want one figure from the one available image:\n%s", got)
	}
	if !strings.Contains(got, `src="https://img/a.jpg"`) {
		t.Errorf("figure should use the resolved image, not the raw URL:\n%s", got)
	}
	if strings.Contains(got, "leftover") || strings.Contains(got, "![") {
		t.Errorf("exhausted image syntax should be deleted:\n%s", got)
	}
}

func TestToBlockMarkupDeterministic(t *testing.T) {
	md := "# Title\n\nsome **bold** [link](https://x.test/p/d1-AB1)\n\n- a list\n\n[link again](https://x.test/p/d1-AB1)"
	images := []catalog.Image{{URL: "https://img/a.jpg", Alt: "a", ProductCode: "AB1"}}

	first := ToBlockMarkup(md, images)
	second := ToBlockMarkup(md, images)
	if first != second {
		t.Error("same input must yield byte-identical output")
	}
}

func TestToBlockMarkupIdempotent(t *testing.T) {
	md := "# Title\n\nsome **bold** text\n\n- item one\n- item two\n\n1. step"
	once := ToBlockMarkup(md, nil)
	twice := ToBlockMarkup(once, nil)
	if once != twice {
		t.Errorf("conversion is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestInsertGalleriesSecondOccurrenceTriggers(t *testing.T) {
	lines := []string{
		"- [Banff Gondola](https://x.test/tours/d123-456P7)",
		"some text",
		"## [Banff Gondola](https://x.test/tours/d123-456P7)",
		"body",
	}
	byCode := ImagesByProductCode([]catalog.Image{
		{URL: "https://img/g.jpg", Alt: "gondola", ProductCode: "456P7"},
	})

	out, inserted := InsertGalleriesByOccurrence(lines, byCode)
	if len(inserted) != 1 || inserted[0] != "456P7" {
		t.Fatalf("inserted = %v, want [456P7]", inserted)
	}
	// Gallery lands right after the second occurrence, not the first.
	if !strings.Contains(out[3], "wp-block-image") {
		t.Errorf("gallery should follow the second occurrence line, got lines: %q", out)
	}
	if strings.Contains(out[1], "wp-block-image") {
		t.Errorf("gallery must not follow the first occurrence: %q", out)
	}
}

func TestInsertGalleriesExactlyOnce(t *testing.T) {
	line := "[g](https://x.test/p/456P7)"
	lines := []string{line, line, line, line}
	byCode := ImagesByProductCode([]catalog.Image{
		{URL: "https://img/g.jpg", ProductCode: "456P7"},
	})

	out, _ := InsertGalleriesByOccurrence(lines, byCode)
	count := 0
	for _, l := range out {
		if strings.Contains(l, "wp-block-image") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("gallery inserted %d times across four occurrences, want 1", count)
	}
}

func TestInsertGalleriesNeverOnFirstOccurrence(t *testing.T) {
	lines := []string{"only [one mention](https://x.test/p/456P7) here"}
	byCode := ImagesByProductCode([]catalog.Image{
		{URL: "https://img/g.jpg", ProductCode: "456P7"},
	})

	out, inserted := InsertGalleriesByOccurrence(lines, byCode)
	if len(inserted) != 0 || len(out) != 1 {
		t.Errorf("single occurrence must not trigger insertion, got %q", out)
	}
}

func TestInsertGalleriesSkipsCachedImages(t *testing.T) {
	line := "[g](https://x.test/p/456P7)"
	byCode := ImagesByProductCode([]catalog.Image{
		{URL: "https://img/g.jpg", ProductCode: "456P7", Cached: true},
	})

	out, inserted := InsertGalleriesByOccurrence([]string{line, line}, byCode)
	if len(inserted) != 0 || len(out) != 2 {
		t.Errorf("cached product must not get a second gallery, got %q", out)
	}
}

func TestInsertGalleriesMultipleImagesOneProduct(t *testing.T) {
	line := "[g](https://x.test/p/456P7)"
	byCode := ImagesByProductCode([]catalog.Image{
		{URL: "https://img/1.jpg", ProductCode: "456P7"},
		{URL: "https://img/2.jpg", ProductCode: "456P7"},
	})

	out, _ := InsertGalleriesByOccurrence([]string{line, line}, byCode)
	figures := 0
	for _, l := range out {
		if strings.Contains(l, "wp-block-image") {
			figures++
		}
	}
	if figures != 2 {
		t.Errorf("want one figure per image in the gallery, got %d", figures)
	}
}

func TestGroupImagesByHeading(t *testing.T) {
	md := "# Title\n\n## Banff Gondola\n\nbody\n\n## Lake Louise\n\nbody"
	images := []catalog.Image{
		{URL: "https://img/a.jpg", ProductCode: "A", Heading: "Banff Gondola"},
		{URL: "https://img/b.jpg", ProductCode: "B", Heading: "Lake Louise"},
		{URL: "https://img/c.jpg", ProductCode: "C", Heading: "Moraine Lake"},
	}

	groups := GroupImagesByHeading(md, images)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3 (two headings plus spill)", len(groups))
	}
	if groups[0].Heading != "Banff Gondola" || len(groups[0].Images) != 1 {
		t.Errorf("group 0 = %+v", groups[0])
	}
	if groups[1].Heading != "Lake Louise" || len(groups[1].Images) != 1 {
		t.Errorf("group 1 = %+v", groups[1])
	}
	if groups[2].Heading != "" || groups[2].Images[0].ProductCode != "C" {
		t.Errorf("unmatched image should land in the final unheaded group: %+v", groups[2])
	}
}

func TestGroupImagesByHeadingLinkedHeading(t *testing.T) {
	md := "## [Banff Gondola](https://x.test/p/456P7)\n\nbody"
	images := []catalog.Image{{URL: "https://img/a.jpg", Heading: "Banff Gondola"}}

	groups := GroupImagesByHeading(md, images)
	if len(groups) != 1 || groups[0].Heading != "Banff Gondola" {
		t.Errorf("linked heading text should still match: %+v", groups)
	}
}
