// Package catalog resolves affiliate product links against the booking
// catalog API and selects image variants suitable for embedding.
package catalog

import (
	"net/url"
	"regexp"
	"strings"
)

// Link is an affiliate product link as configured on a blog post. Name
// doubles as the section heading candidate, so it must be non-empty for
// the link to be usable by the writer.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Image is one resolved product image. Cached marks images whose gallery
// has already been embedded in a document, so later passes skip them.
type Image struct {
	URL         string `json:"url"`
	Alt         string `json:"alt"`
	ProductCode string `json:"productCode"`
	Heading     string `json:"heading"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Cached      bool   `json:"cached"`
}

// Product URLs end in either "456P7" or "d123-456P7"; the duration
// prefix is not part of the product code.
var durationPrefixRe = regexp.MustCompile(`^d\d+-`)

// ProductCode extracts the stable product identifier from an affiliate
// URL: the final path segment with an optional d<digits>- prefix
// stripped. Returns "" when the URL has no usable path segment.
func ProductCode(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	return durationPrefixRe.ReplaceAllString(last, "")
}
