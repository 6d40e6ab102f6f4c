package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/citekit/citekit/internal/csl"
)

const (
	// Wikipedia Citoid API,
	// https://en.wikipedia.org/api/rest_v1/#/Citation
	defaultCitoidBaseURL = "https://en.wikipedia.org/api/rest_v1/data/citation/mediawiki"

	// Open Library Books API, https://openlibrary.org/dev/docs/api/books
	defaultOpenLibraryBaseURL = "https://openlibrary.org/api/books"
)

// ISBNResolver queries book metadata providers in a fixed order until one
// returns a usable record: Citoid first, then Open Library.
type ISBNResolver struct {
	CitoidBaseURL      string
	OpenLibraryBaseURL string

	client *client
}

func NewISBNResolver(c *client) *ISBNResolver {
	return &ISBNResolver{
		CitoidBaseURL:      defaultCitoidBaseURL,
		OpenLibraryBaseURL: defaultOpenLibraryBaseURL,
		client:             c,
	}
}

func (r *ISBNResolver) StandardPrefix() string { return "isbn" }

func (r *ISBNResolver) Resolve(ctx context.Context, accession string) (csl.Item, error) {
	providers := []struct {
		name  string
		fetch func(context.Context, string) (csl.Item, error)
	}{
		{"citoid", r.resolveCitoid},
		{"openlibrary", r.resolveOpenLibrary},
	}

	var lastErr error
	for _, provider := range providers {
		item, err := provider.fetch(ctx, accession)
		if err == nil {
			return item, nil
		}
		lastErr = err
		slog.Debug("ISBN provider failed, trying next", "provider", provider.name, "isbn", accession, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("isbn %s: all providers failed: %w", accession, lastErr)
}

// citoidRecord is the mediawiki-format citation Citoid returns.
type citoidRecord struct {
	ItemType     string     `json:"itemType"`
	Title        string     `json:"title"`
	Author       [][]string `json:"author"`
	Date         string     `json:"date"`
	Publisher    string     `json:"publisher"`
	Place        string     `json:"place"`
	Edition      string     `json:"edition"`
	NumPages     string     `json:"numPages"`
	AbstractNote string     `json:"abstractNote"`
	URL          string     `json:"url"`
}

var yearPattern = regexp.MustCompile(`[0-9]{4}`)

func (r *ISBNResolver) resolveCitoid(ctx context.Context, isbn string) (csl.Item, error) {
	endpoint := r.CitoidBaseURL + "/" + url.PathEscape(isbn)
	body, err := r.client.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var records []citoidRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("%w: expected one citoid record, got %d", ErrMalformedResponse, len(records))
	}
	record := records[0]

	item := csl.Item{}
	item["type"] = "book"
	if record.ItemType != "" {
		item["type"] = record.ItemType
	}
	if record.Title != "" {
		item["title"] = record.Title
	}
	var authors []any
	for _, name := range record.Author {
		if len(name) != 2 {
			continue
		}
		authors = append(authors, map[string]any{"given": name[0], "family": name[1]})
	}
	if len(authors) > 0 {
		item["author"] = authors
	}
	if year := yearPattern.FindString(record.Date); year != "" {
		item.SetDate(year, "issued")
	}
	setStrings(item, map[string]string{
		"publisher":       record.Publisher,
		"publisher-place": record.Place,
		"edition":         record.Edition,
		"abstract":        record.AbstractNote,
		"URL":             record.URL,
	})
	item["ISBN"] = isbn
	return item, nil
}

// openLibraryBook is the jscmd=data record shape.
type openLibraryBook struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishPlaces []struct {
		Name string `json:"name"`
	} `json:"publish_places"`
	PublishDate string `json:"publish_date"`
}

func (r *ISBNResolver) resolveOpenLibrary(ctx context.Context, isbn string) (csl.Item, error) {
	params := url.Values{
		"bibkeys": {"ISBN:" + isbn},
		"format":  {"json"},
		"jscmd":   {"data"},
	}
	body, err := r.client.get(ctx, r.OpenLibraryBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var books map[string]openLibraryBook
	if err := json.Unmarshal(body, &books); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	book, ok := books["ISBN:"+isbn]
	if !ok || book.Title == "" {
		return nil, fmt.Errorf("ISBN %s: %w", isbn, ErrNotFound)
	}

	item := csl.Item{"type": "book", "title": book.Title, "ISBN": isbn}
	var authors []any
	for _, author := range book.Authors {
		authors = append(authors, map[string]any{"literal": author.Name})
	}
	if len(authors) > 0 {
		item["author"] = authors
	}
	if len(book.Publishers) > 0 {
		item["publisher"] = book.Publishers[0].Name
	}
	if len(book.PublishPlaces) > 0 {
		item["publisher-place"] = book.PublishPlaces[0].Name
	}
	if year := yearPattern.FindString(book.PublishDate); year != "" {
		item.SetDate(year, "issued")
	}
	if book.URL != "" {
		item["URL"] = book.URL
	}
	return item, nil
}

func setStrings(item csl.Item, fields map[string]string) {
	for key, value := range fields {
		if value != "" {
			item[key] = value
		}
	}
}
