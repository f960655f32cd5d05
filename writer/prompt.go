package writer

import (
	"fmt"
	"strings"

	"github.com/juniperhq/postpilot/catalog"
	"github.com/juniperhq/postpilot/llm"
)

const systemPrompt = "You are an experienced travel and lifestyle writer producing long-form SEO blog content. " +
	"Write natural, engaging prose in Markdown. Never explain what you are doing; output only the requested content."

func describeTopic(sb *strings.Builder, req Request) {
	sb.WriteString(fmt.Sprintf("Primary keyword: %s\n", req.Keywords[0]))
	if len(req.Keywords) > 1 {
		sb.WriteString(fmt.Sprintf("Additional keywords: %s\n", strings.Join(req.Keywords[1:], ", ")))
	}
	if len(req.SecondaryKeywords) > 0 {
		sb.WriteString(fmt.Sprintf("Secondary keywords to weave in: %s\n", strings.Join(req.SecondaryKeywords, ", ")))
	}
	if req.Context != "" {
		sb.WriteString(fmt.Sprintf("Context: %s\n", req.Context))
	}
}

func buildOutlinePrompt(req Request) llm.Prompt {
	var sb strings.Builder
	sb.WriteString("Create an outline for a long-form blog article.\n")
	describeTopic(&sb, req)
	if usable := usableLinks(req.AffiliateLinks); len(usable) > 0 {
		sb.WriteString("Where relevant, prefer these product names as main section headings (never as subheadings):\n")
		for _, link := range usable {
			sb.WriteString(fmt.Sprintf("- %s\n", link.Name))
		}
	}
	sb.WriteString("\nRespond with a JSON object of the form " +
		`{"title": "...", "outline": [{"heading": "...", "subheadings": ["..."]}]}` +
		" and nothing else.\n")
	return llm.Prompt{
		System:     systemPrompt,
		User:       sb.String(),
		JSONObject: true,
	}
}

func buildIntroPrompt(req Request, title string) llm.Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write the introduction for a blog article titled %q.\n", title))
	describeTopic(&sb, req)
	sb.WriteString(fmt.Sprintf("The introduction should be roughly %d words and hook the reader immediately.\n", req.IntroLength))
	sb.WriteString("Also write a meta description of at most 155 characters for search results.\n")
	sb.WriteString("\nRespond with a JSON object of the form " +
		`{"introduction": "...", "description": "..."}` +
		" and nothing else.\n")
	return llm.Prompt{
		System:     systemPrompt,
		User:       sb.String(),
		JSONObject: true,
	}
}

func buildIntroRepairPrompt(req Request, title string) llm.Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write the introduction for a blog article titled %q.\n", title))
	describeTopic(&sb, req)
	sb.WriteString("Hook the reader immediately and preview what the article covers.\n")
	return llm.Prompt{System: systemPrompt, User: sb.String()}
}

func buildSectionPrompt(req Request, heading string, subheadings []string, candidates []catalog.Link) llm.Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write the body of the article section titled %q.\n", heading))
	describeTopic(&sb, req)
	if len(subheadings) > 0 {
		sb.WriteString("The section must include these subheadings, as ### headings, in order:\n")
		for _, sub := range subheadings {
			sb.WriteString(fmt.Sprintf("- %s\n", sub))
		}
	}
	if len(candidates) > 0 {
		sb.WriteString("If one of these products fits the topic naturally, mention it by exact name, ideally as a subheading:\n")
		for _, link := range candidates {
			sb.WriteString(fmt.Sprintf("- %s\n", link.Name))
		}
	}
	sb.WriteString("Do not repeat the section title; start directly with the content.\n")
	return llm.Prompt{System: systemPrompt, User: sb.String()}
}

func buildConclusionPrompt(req Request, title string) llm.Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write the conclusion for a blog article titled %q.\n", title))
	describeTopic(&sb, req)
	sb.WriteString("Synthesize the key facts covered in the article and end with a clear call to action.\n")
	sb.WriteString("Do not add a heading; output only the conclusion paragraphs.\n")
	return llm.Prompt{System: systemPrompt, User: sb.String()}
}

// usableLinks filters out links without a name; a nameless link can
// never be matched against a heading.
func usableLinks(links []catalog.Link) []catalog.Link {
	var out []catalog.Link
	for _, link := range links {
		if strings.TrimSpace(link.Name) != "" {
			out = append(out, link)
		}
	}
	return out
}
