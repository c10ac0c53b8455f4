package shopify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type fileSearchData struct {
	Files struct {
		Nodes []struct {
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"nodes"`
	} `json:"files"`
}

const fileSearchQuery = `
query ($first: Int!, $query: String!) {
	files(first: $first, query: $query) {
		nodes {
			... on MediaImage {
				image { url }
			}
		}
	}
}`

// SearchImagesByFilename searches the shop's media library for image files
// whose name matches the product name, normalized to the stem convention
// used when shots are uploaded. Best effort: no match is an empty slice,
// not an error.
func (c *Client) SearchImagesByFilename(ctx context.Context, name string, limit int) ([]string, error) {
	stem := NormalizeFilename(name)
	if stem == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var data fileSearchData
	err := c.graphql(ctx, fileSearchQuery, map[string]any{
		"first": limit,
		"query": fmt.Sprintf("filename:%s*", stem),
	}, &data)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, node := range data.Files.Nodes {
		if node.Image != nil && node.Image.URL != "" {
			urls = append(urls, node.Image.URL)
		}
	}
	return urls, nil
}

var filenameJunk = regexp.MustCompile(`[^a-z0-9\s_-]+`)
var filenameSpaces = regexp.MustCompile(`[\s-]+`)

// NormalizeFilename converts a product name into the stem used when the shop
// uploads product shots: lower-cased, diacritics and punctuation stripped,
// spaces collapsed to underscores.
func NormalizeFilename(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		stripped = name
	}
	s := strings.ToLower(strings.TrimSpace(stripped))
	s = filenameJunk.ReplaceAllString(s, "")
	s = filenameSpaces.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
