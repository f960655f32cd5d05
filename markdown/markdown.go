// Package markdown converts assembled article Markdown into the
// WordPress block-editor HTML format, embedding affiliate image
// galleries at their occurrence-counted insertion points.
package markdown

import (
	"regexp"
	"strings"

	"github.com/juniperhq/postpilot/catalog"
)

var (
	// Orphaned bracket text with no following parenthesis. The trailing
	// group keeps whatever character proved the bracket is not a link.
	reOrphanBracket = regexp.MustCompile(`\[([^\][]+)\]([^(]|$)`)

	reImage = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)
	reLink  = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)

	// Bold must run before italic so a double-asterisk run is never
	// half-consumed by the italic rule.
	reBold   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic = regexp.MustCompile(`\*([^*]+)\*`)

	reOrdered = regexp.MustCompile(`^\d+\.\s+`)
)

// ToBlockMarkup converts article Markdown to block markup. It is a pure
// function: the same (markdown, images) input always yields the same
// output, and re-applying it to converted output with no remaining
// markdown constructs returns that output unchanged.
//
// Rules run in a fixed order so later rules never re-match text produced
// by earlier ones: orphan brackets, image syntax, gallery insertion,
// links, headings (longest prefix first), bold then italic, lists, and
// finally paragraph wrapping.
func ToBlockMarkup(md string, images []catalog.Image) string {
	lines := strings.Split(md, "\n")

	imageIdx := 0
	for i, line := range lines {
		line = reOrphanBracket.ReplaceAllString(line, "$1$2")
		line = consumeImageSyntax(line, images, &imageIdx)
		lines[i] = line
	}

	lines, _ = InsertGalleriesByOccurrence(lines, ImagesByProductCode(images))

	for i, line := range lines {
		line = reLink.ReplaceAllString(line, `<a href="$2">$1</a>`)
		line = convertHeading(line)
		line = reBold.ReplaceAllString(line, "<strong>$1</strong>")
		line = reItalic.ReplaceAllString(line, "<em>$1</em>")
		lines[i] = line
	}

	return wrapBlocks(lines)
}

// consumeImageSyntax replaces each ![alt](url) with a figure drawn from
// the next unconsumed affiliate image, in encounter order. When the
// sequence is exhausted the image syntax is deleted.
func consumeImageSyntax(line string, images []catalog.Image, idx *int) string {
	return reImage.ReplaceAllStringFunc(line, func(string) string {
		if *idx >= len(images) {
			return ""
		}
		block := figureBlock(images[*idx])
		*idx++
		return block
	})
}

// convertHeading maps #/##/### prefixes to h1/h2/h3, checking the
// longest prefix first so deeper headings are not double-wrapped.
func convertHeading(line string) string {
	switch {
	case strings.HasPrefix(line, "### "):
		return "<h3>" + strings.TrimSpace(line[4:]) + "</h3>"
	case strings.HasPrefix(line, "## "):
		return "<h2>" + strings.TrimSpace(line[3:]) + "</h2>"
	case strings.HasPrefix(line, "# "):
		return "<h1>" + strings.TrimSpace(line[2:]) + "</h1>"
	}
	return line
}

type listKind int

const (
	listNone listKind = iota
	listBullet
	listNumbered
)

// wrapBlocks turns bullet and numbered lines into <li> items, wraps
// adjacent runs in <ul>/<ol>, and wraps any remaining bare line in <p>.
// Lines already starting with a block tag pass through untouched.
func wrapBlocks(lines []string) string {
	var out []string
	current := listNone

	closeList := func() {
		switch current {
		case listBullet:
			out = append(out, "</ul>")
		case listNumbered:
			out = append(out, "</ol>")
		}
		current = listNone
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			closeList()
			continue
		}

		kind, item := listItem(trimmed)
		if kind != listNone {
			if current != kind {
				closeList()
				if kind == listBullet {
					out = append(out, "<ul>")
				} else {
					out = append(out, "<ol>")
				}
				current = kind
			}
			out = append(out, "<li>"+item+"</li>")
			continue
		}

		closeList()
		if strings.HasPrefix(trimmed, "<") {
			out = append(out, trimmed)
			continue
		}
		out = append(out, "<p>"+trimmed+"</p>")
	}
	closeList()

	return strings.Join(out, "\n")
}

func listItem(line string) (listKind, string) {
	for _, prefix := range []string{"- ", "+ ", "* "} {
		if strings.HasPrefix(line, prefix) {
			return listBullet, strings.TrimSpace(line[2:])
		}
	}
	if m := reOrdered.FindString(line); m != "" {
		return listNumbered, strings.TrimSpace(line[len(m):])
	}
	return listNone, line
}
