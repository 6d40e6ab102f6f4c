package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/citekit/citekit/internal/csl"
)

// arXiv Atom API, https://info.arxiv.org/help/api/index.html
const defaultArxivBaseURL = "https://export.arxiv.org/api/query"

var arxivAbsPattern = regexp.MustCompile(`arxiv\.org/abs/(.+)$`)

// ArxivResolver maps arXiv Atom feed entries to CSL items. Records are
// typed as manuscripts since arXiv hosts preprints; when arXiv reports an
// associated DOI, a published version of record exists and the DOI is
// attached so readers can find it.
type ArxivResolver struct {
	BaseURL string

	client *client
}

func NewArxivResolver(c *client) *ArxivResolver {
	return &ArxivResolver{BaseURL: defaultArxivBaseURL, client: c}
}

func (r *ArxivResolver) StandardPrefix() string { return "arxiv" }

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Summary   string `xml:"summary"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	DOI        string `xml:"doi"`
	JournalRef string `xml:"journal_ref"`
}

func (r *ArxivResolver) Resolve(ctx context.Context, accession string) (csl.Item, error) {
	params := url.Values{"id_list": {accession}, "max_results": {"1"}}
	endpoint := r.BaseURL + "?" + params.Encode()
	body, err := r.client.get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv %s: %w", accession, err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv %s: %w: %v", accession, ErrMalformedResponse, err)
	}
	if len(feed.Entries) != 1 {
		return nil, fmt.Errorf("arxiv %s: %w: expected one feed entry, got %d",
			accession, ErrNotFound, len(feed.Entries))
	}
	entry := feed.Entries[0]
	// The API answers unknown IDs with an entry whose id links to an
	// error page instead of arxiv.org/abs/.
	match := arxivAbsPattern.FindStringSubmatch(entry.ID)
	if match == nil {
		return nil, fmt.Errorf("arxiv %s: %w", accession, ErrNotFound)
	}
	versionedID := match[1]

	item := csl.Item{
		"number":          versionedID,
		"URL":             "https://arxiv.org/abs/" + versionedID,
		"container-title": "arXiv",
		"publisher":       "arXiv",
		"type":            "manuscript",
	}
	if title := collapseWhitespace(entry.Title); title != "" {
		item["title"] = title
	}
	if version := arxivVersion(versionedID); version != "" {
		item["version"] = version
	}
	item.SetDate(entry.Published, "issued")

	var authors []any
	for _, author := range entry.Authors {
		// Atom entries carry a single display name per author rather
		// than given/family parts, which CSL stores as a literal.
		authors = append(authors, map[string]any{"literal": author.Name})
	}
	if len(authors) > 0 {
		item["author"] = authors
	}

	if abstract := collapseWhitespace(entry.Summary); abstract != "" {
		item["abstract"] = abstract
	}
	if entry.DOI != "" {
		item["DOI"] = strings.ToLower(entry.DOI)
	}
	return item, nil
}

var arxivVersionPattern = regexp.MustCompile(`v([0-9]+)$`)

func arxivVersion(arxivID string) string {
	if m := arxivVersionPattern.FindString(arxivID); m != "" {
		return m
	}
	return ""
}

// collapseWhitespace joins the hard-wrapped lines the arXiv API emits.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
