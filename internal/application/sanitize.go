package application

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedTags is the HTML allow-list for published descriptions.
var allowedTags = map[string]bool{
	"h2": true, "h3": true, "p": true, "ul": true, "li": true, "strong": true, "a": true,
}

var (
	scriptStyleBlocks = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTag           = regexp.MustCompile(`(?i)</?([a-z0-9]+)([^>]*)>`)
	slugSymbols       = regexp.MustCompile(`[&+]`)
	slugJunk          = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators    = regexp.MustCompile(`[-\s]+`)
)

// SanitizeHTML strips script/style blocks and any tag outside the allow-list,
// then guarantees the copy opens with an <h2> carrying the exact perfume name.
func SanitizeHTML(html, perfumeName string) string {
	html = scriptStyleBlocks.ReplaceAllString(html, "")
	html = htmlTag.ReplaceAllStringFunc(html, func(tag string) string {
		m := htmlTag.FindStringSubmatch(tag)
		if m != nil && allowedTags[strings.ToLower(m[1])] {
			return tag
		}
		return ""
	})

	heading := regexp.MustCompile(`(?i)<h2>\s*` + regexp.QuoteMeta(perfumeName) + `\s*</h2>`)
	if !heading.MatchString(html) {
		html = fmt.Sprintf("<h2>%s</h2>\n%s", perfumeName, html)
	}
	return html
}

// BrandSlug converts a brand name into the URL-safe slug used for internal
// collection links. An empty brand falls back to the generic collection.
func BrandSlug(brand string) string {
	if strings.TrimSpace(brand) == "" {
		return "fragrances"
	}
	slug := strings.ToLower(strings.TrimSpace(brand))
	slug = slugSymbols.ReplaceAllString(slug, "and")
	slug = slugJunk.ReplaceAllString(slug, "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
