package sources

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/citekit/citekit/internal/csl"
)

// URLResolver synthesizes webpage items for url: citations. By default
// no network call is made: the item carries only the URL and a webpage
// type, and authors supply the rest via manual references. With
// FetchTitles enabled the page is fetched once to extract its <title>.
type URLResolver struct {
	FetchTitles bool

	client *client
}

func NewURLResolver(c *client) *URLResolver {
	return &URLResolver{client: c}
}

func (r *URLResolver) StandardPrefix() string { return "url" }

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func (r *URLResolver) Resolve(ctx context.Context, accession string) (csl.Item, error) {
	item := csl.Item{
		"URL":  accession,
		"type": "webpage",
	}
	if !r.FetchTitles {
		return item, nil
	}
	body, err := r.client.get(ctx, accession, nil)
	if err != nil {
		// The stub item is still useful; title fetch is best effort.
		slog.Debug("url title fetch failed", "url", accession, "error", err)
		return item, nil
	}
	if m := titlePattern.FindSubmatch(body); m != nil {
		if title := collapseWhitespace(string(m[1])); title != "" {
			item["title"] = title
		}
	}
	return item, nil
}

// RawResolver produces a minimal verbatim stub for raw: citations, which
// hold no retrievable identifier. Metadata for raw keys comes from manual
// references; the stub only guarantees the key appears in the output.
type RawResolver struct{}

func NewRawResolver() *RawResolver { return &RawResolver{} }

func (r *RawResolver) StandardPrefix() string { return "raw" }

func (r *RawResolver) Resolve(_ context.Context, accession string) (csl.Item, error) {
	return csl.Item{"type": csl.DefaultType}, nil
}
