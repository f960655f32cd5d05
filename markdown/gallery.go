package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/juniperhq/postpilot/catalog"
)

var mdLinkRe = regexp.MustCompile(`\[[^\]]*\]\(([^)]*)\)`)

// ImagesByProductCode indexes resolved images by their product code.
func ImagesByProductCode(images []catalog.Image) map[string][]catalog.Image {
	byCode := make(map[string][]catalog.Image)
	for _, img := range images {
		if img.ProductCode == "" {
			continue
		}
		byCode[img.ProductCode] = append(byCode[img.ProductCode], img)
	}
	return byCode
}

// InsertGalleriesByOccurrence walks the document line by line and embeds
// each product's image gallery after the line holding the second
// occurrence of a link to that product. The first occurrence is the
// in-text mention and stays untouched; insertion happens exactly once
// per product. Products whose images are already marked Cached are
// skipped entirely. Returns the new lines and the product codes whose
// galleries were inserted.
func InsertGalleriesByOccurrence(lines []string, imagesByCode map[string][]catalog.Image) ([]string, []string) {
	seen := make(map[string]bool)
	inserted := make(map[string]bool)
	var insertedCodes []string

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
		for _, match := range mdLinkRe.FindAllStringSubmatch(line, -1) {
			code := catalog.ProductCode(match[1])
			if code == "" || inserted[code] {
				continue
			}
			images, ok := imagesByCode[code]
			if !ok || len(images) == 0 || images[0].Cached {
				continue
			}
			if !seen[code] {
				seen[code] = true
				continue
			}
			for _, img := range images {
				out = append(out, figureBlock(img))
			}
			inserted[code] = true
			insertedCodes = append(insertedCodes, code)
		}
	}
	return out, insertedCodes
}

// figureBlock renders one image as a WordPress image block. Alt text is
// embedded as-is; upstream content is expected to be trusted.
func figureBlock(img catalog.Image) string {
	var dims string
	if img.Width > 0 && img.Height > 0 {
		dims = fmt.Sprintf(` width="%d" height="%d"`, img.Width, img.Height)
	}
	return fmt.Sprintf(`<!-- wp:image --><figure class="wp-block-image size-large"><img src="%s" alt="%s"%s/></figure><!-- /wp:image -->`,
		img.URL, img.Alt, dims)
}

// ImageGroup is a set of images displayed under one document heading.
type ImageGroup struct {
	Heading string          `json:"heading"`
	Images  []catalog.Image `json:"images"`
}

var headingLineRe = regexp.MustCompile(`^##\s+(.*)$`)

// GroupImagesByHeading associates each image with the document heading
// its stored heading field matches, preserving document order. Images
// matching no heading spill into a final group with an empty heading.
func GroupImagesByHeading(md string, images []catalog.Image) []ImageGroup {
	var headings []string
	for _, line := range strings.Split(md, "\n") {
		m := headingLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, headingText(m[1]))
	}

	byHeading := make(map[string][]catalog.Image)
	var spill []catalog.Image
	for _, img := range images {
		matched := ""
		for _, h := range headings {
			if img.Heading != "" && strings.Contains(strings.ToLower(h), strings.ToLower(img.Heading)) {
				matched = h
				break
			}
		}
		if matched == "" {
			spill = append(spill, img)
			continue
		}
		byHeading[matched] = append(byHeading[matched], img)
	}

	var groups []ImageGroup
	for _, h := range headings {
		if imgs := byHeading[h]; len(imgs) > 0 {
			groups = append(groups, ImageGroup{Heading: h, Images: imgs})
			delete(byHeading, h)
		}
	}
	if len(spill) > 0 {
		groups = append(groups, ImageGroup{Images: spill})
	}
	return groups
}

// headingText strips markdown link syntax from a heading, leaving the
// visible text.
func headingText(s string) string {
	return mdLinkRe.ReplaceAllStringFunc(strings.TrimSpace(s), func(m string) string {
		sub := mdLinkRe.FindStringSubmatch(m)
		end := strings.Index(m, "]")
		if end <= 1 {
			return sub[1]
		}
		return m[1:end]
	})
}
