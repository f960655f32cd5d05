// Package writer drives multi-stage article generation: outline,
// introduction, table of contents, per-section bodies, and conclusion,
// assembling a single Markdown document with affiliate links woven in.
package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/juniperhq/postpilot/catalog"
	"github.com/juniperhq/postpilot/llm"
)

const (
	// maxRetries bounds every constrained generation at three model calls.
	maxRetries = 3

	// Tolerances per stage, in words.
	introTolerance      = 200
	sectionTolerance    = 400
	conclusionTolerance = 200

	defaultIntroWords      = 150
	defaultSectionWords    = 300
	defaultConclusionWords = 100
)

// Writer orchestrates article generation against a model client.
type Writer struct {
	llm llm.Client
}

// New creates a Writer.
func New(client llm.Client) *Writer {
	return &Writer{llm: client}
}

// Request describes one article to generate.
type Request struct {
	Keywords          []string
	SecondaryKeywords []string
	Context           string
	IntroLength       int
	SectionLength     int
	ConclusionLength  int
	AffiliateLinks    []catalog.Link
}

// Article is the assembled generation result.
type Article struct {
	Title           string
	Markdown        string
	MetaDescription string
}

type outlineResponse struct {
	Title   string           `json:"title"`
	Outline []outlineSection `json:"outline"`
}

type outlineSection struct {
	Heading     string   `json:"heading"`
	Subheadings []string `json:"subheadings"`
}

type introResponse struct {
	Introduction string `json:"introduction"`
	Description  string `json:"description"`
}

// GenerateArticle runs the full stage sequence. A hard generation
// failure (constraint exhaustion or a model error) aborts the whole
// article; malformed outline JSON degrades to an empty outline instead.
func (w *Writer) GenerateArticle(ctx context.Context, req Request) (Article, error) {
	if len(req.Keywords) == 0 || strings.TrimSpace(req.Keywords[0]) == "" {
		return Article{}, fmt.Errorf("writer: a primary keyword is required")
	}
	if req.IntroLength <= 0 {
		req.IntroLength = defaultIntroWords
	}
	if req.SectionLength <= 0 {
		req.SectionLength = defaultSectionWords
	}
	if req.ConclusionLength <= 0 {
		req.ConclusionLength = defaultConclusionWords
	}

	outline := w.generateOutline(ctx, req)

	intro, description, err := w.generateIntro(ctx, req, outline.Title)
	if err != nil {
		return Article{}, err
	}

	links := usableLinks(req.AffiliateLinks)
	assigned := assignHeadingLinks(outline.Outline, links)
	used := make(map[string]bool)
	for _, link := range assigned {
		used[link.Name] = true
	}

	toc := buildTOC(outline.Outline, assigned)

	var sections []string
	for i, section := range outline.Outline {
		block, err := w.generateSection(ctx, req, section, assigned[i], links, used)
		if err != nil {
			return Article{}, err
		}
		sections = append(sections, block)
	}

	conclusion, err := w.generateConstrained(ctx,
		buildConclusionPrompt(req, outline.Title),
		req.ConclusionLength, conclusionTolerance, maxRetries)
	if err != nil {
		return Article{}, err
	}

	var doc strings.Builder
	doc.WriteString("# " + outline.Title + "\n\n")
	doc.WriteString(intro + "\n\n")
	doc.WriteString(toc)
	for _, block := range sections {
		doc.WriteString(block)
	}
	doc.WriteString("## Conclusion\n\n")
	doc.WriteString(conclusion + "\n")

	return Article{
		Title:           outline.Title,
		Markdown:        doc.String(),
		MetaDescription: description,
	}, nil
}

// generateOutline asks for the article skeleton. Malformed JSON is
// recovered as an empty outline so the pipeline continues degraded.
func (w *Writer) generateOutline(ctx context.Context, req Request) outlineResponse {
	raw, err := w.llm.Complete(ctx, buildOutlinePrompt(req))
	if err != nil {
		slog.Warn("outline generation failed, continuing with empty outline", "error", err)
		return outlineResponse{}
	}
	var outline outlineResponse
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &outline); err != nil {
		slog.Warn("outline response is not valid JSON, continuing with empty outline", "error", err)
		return outlineResponse{}
	}
	return outline
}

// generateIntro asks for introduction plus meta description. When the
// introduction misses the target length by more than the tolerance (or
// the JSON is malformed), it is regenerated through the constrained
// generator instead of failing the stage outright.
func (w *Writer) generateIntro(ctx context.Context, req Request, title string) (string, string, error) {
	raw, err := w.llm.Complete(ctx, buildIntroPrompt(req, title))
	if err != nil {
		return "", "", fmt.Errorf("writer: introduction: %w", err)
	}

	var parsed introResponse
	parseErr := json.Unmarshal([]byte(cleanJSONResponse(raw)), &parsed)

	count := CountWords(parsed.Introduction)
	deviation := count - req.IntroLength
	if deviation < 0 {
		deviation = -deviation
	}
	if parseErr == nil && parsed.Introduction != "" && deviation <= introTolerance {
		return parsed.Introduction, parsed.Description, nil
	}

	if parseErr != nil {
		slog.Warn("introduction response is not valid JSON, regenerating", "error", parseErr)
	} else {
		slog.Info("introduction length out of band, regenerating", "words", count, "target", req.IntroLength)
	}

	intro, err := w.generateConstrained(ctx, buildIntroRepairPrompt(req, title),
		req.IntroLength, introTolerance, maxRetries)
	if err != nil {
		return "", "", err
	}
	return intro, parsed.Description, nil
}

// generateSection produces one `## heading` block. assigned is the link
// matched to this heading (nil when none); the still-unused links are
// offered to the model as candidates and scanned for in the result.
func (w *Writer) generateSection(ctx context.Context, req Request, section outlineSection, assigned *catalog.Link, links []catalog.Link, used map[string]bool) (string, error) {
	heading := "## " + section.Heading
	var candidates []catalog.Link
	if assigned != nil {
		heading = fmt.Sprintf("## [%s](%s)", section.Heading, assigned.URL)
	} else {
		candidates = unusedLinks(links, used)
	}

	body, err := w.generateConstrained(ctx,
		buildSectionPrompt(req, section.Heading, section.Subheadings, candidates),
		req.SectionLength, sectionTolerance, maxRetries)
	if err != nil {
		return "", err
	}

	body = linkUnusedMentions(body, links, used)

	return heading + "\n\n" + body + "\n\n", nil
}

// linkUnusedMentions scans body text for the first literal mention of
// each still-unused affiliate link name and turns it into a Markdown
// link, marking the link used. This is the secondary assignment path,
// independent of heading matching.
func linkUnusedMentions(body string, links []catalog.Link, used map[string]bool) string {
	for _, link := range links {
		if used[link.Name] {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(link.Name))
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(body)
		if loc == nil {
			continue
		}
		mention := body[loc[0]:loc[1]]
		body = body[:loc[0]] + fmt.Sprintf("[%s](%s)", mention, link.URL) + body[loc[1]:]
		used[link.Name] = true
	}
	return body
}

// assignHeadingLinks matches outline headings against affiliate link
// names (case-insensitive substring), each link claiming at most one
// heading, in section order.
func assignHeadingLinks(outline []outlineSection, links []catalog.Link) map[int]*catalog.Link {
	assigned := make(map[int]*catalog.Link)
	claimed := make(map[string]bool)
	for i, section := range outline {
		heading := strings.ToLower(section.Heading)
		for j := range links {
			link := &links[j]
			if claimed[link.Name] {
				continue
			}
			if strings.Contains(heading, strings.ToLower(link.Name)) {
				assigned[i] = link
				claimed[link.Name] = true
				break
			}
		}
	}
	return assigned
}

// buildTOC renders the table of contents. Affiliate-matched headings
// link to the affiliate URL (their first textual occurrence in the
// document); everything else gets an in-page anchor.
func buildTOC(outline []outlineSection, assigned map[int]*catalog.Link) string {
	if len(outline) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Table of Contents\n\n")
	for i, section := range outline {
		if link := assigned[i]; link != nil {
			sb.WriteString(fmt.Sprintf("- [%s](%s)\n", section.Heading, link.URL))
		} else {
			sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", section.Heading, AnchorSlug(section.Heading)))
		}
		for _, sub := range section.Subheadings {
			sb.WriteString(fmt.Sprintf("  - [%s](#%s)\n", sub, AnchorSlug(sub)))
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

var nonWordRe = regexp.MustCompile(`\W+`)

// AnchorSlug turns a heading into an in-page anchor: lowercased, with
// non-word runs collapsed to hyphens.
func AnchorSlug(heading string) string {
	slug := nonWordRe.ReplaceAllString(strings.ToLower(heading), "-")
	return strings.Trim(slug, "-")
}

func unusedLinks(links []catalog.Link, used map[string]bool) []catalog.Link {
	var out []catalog.Link
	for _, link := range links {
		if !used[link.Name] {
			out = append(out, link)
		}
	}
	return out
}

// cleanJSONResponse strips Markdown code fences that models sometimes
// wrap JSON payloads in.
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
