package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/citekit/citekit/internal/csl"
)

const (
	// NCBI E-utilities, https://www.ncbi.nlm.nih.gov/books/NBK25501/
	defaultEUtilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// NCBI Literature Citation Exporter,
	// https://api.ncbi.nlm.nih.gov/lit/ctxp
	defaultLitCtxpBaseURL = "https://api.ncbi.nlm.nih.gov/lit/ctxp/v1"
)

// PubMedResolver builds CSL items from PubMed efetch XML using a fixed
// field mapping: author ForeName/LastName become given/family, and the
// article or journal-issue date is reconstructed into issued.date-parts.
type PubMedResolver struct {
	BaseURL string
	APIKey  string

	client *client
}

func NewPubMedResolver(c *client) *PubMedResolver {
	return &PubMedResolver{BaseURL: defaultEUtilsBaseURL, client: c}
}

func (r *PubMedResolver) StandardPrefix() string { return "pubmed" }

func (r *PubMedResolver) Resolve(ctx context.Context, accession string) (csl.Item, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {accession},
		"rettype": {"full"},
	}
	if r.APIKey != "" {
		params.Set("api_key", r.APIKey)
	}
	endpoint := r.BaseURL + "/efetch.fcgi?" + params.Encode()
	body, err := r.client.get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed %s: %w", accession, err)
	}

	var articleSet pubmedArticleSet
	if err := xml.Unmarshal(body, &articleSet); err != nil {
		return nil, fmt.Errorf("pubmed %s: %w: %v", accession, ErrMalformedResponse, err)
	}
	if len(articleSet.Articles) != 1 {
		return nil, fmt.Errorf("pubmed %s: %w: expected one PubmedArticle, got %d",
			accession, ErrNotFound, len(articleSet.Articles))
	}
	return itemFromPubMedArticle(articleSet.Articles[0])
}

// PMCResolver fetches CSL items for PubMed Central records from the NCBI
// Literature Citation Exporter, which returns CSL JSON directly.
type PMCResolver struct {
	BaseURL string

	client *client
}

func NewPMCResolver(c *client) *PMCResolver {
	return &PMCResolver{BaseURL: defaultLitCtxpBaseURL, client: c}
}

func (r *PMCResolver) StandardPrefix() string { return "pmc" }

func (r *PMCResolver) Resolve(ctx context.Context, accession string) (csl.Item, error) {
	if !strings.HasPrefix(accession, "PMC") {
		return nil, fmt.Errorf("%w: PMCIDs start with PMC, got %q", ErrInvalidAccession, accession)
	}
	params := url.Values{"format": {"csl"}, "id": {strings.TrimPrefix(accession, "PMC")}}
	endpoint := r.BaseURL + "/pmc/?" + params.Encode()
	body, err := r.client.get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pmc %s: %w", accession, err)
	}

	var item csl.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("pmc %s: %w: %v", accession, ErrMalformedResponse, err)
	}
	if status, ok := item["status"].(string); ok && status == "error" {
		return nil, fmt.Errorf("pmc %s: %w: exporter reported an error", accession, ErrNotFound)
	}
	if _, ok := item["URL"]; !ok {
		pmcid := accession
		if fetched, ok := item["PMCID"].(string); ok && fetched != "" {
			pmcid = fetched
		}
		item["URL"] = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/", pmcid)
	}
	return item, nil
}

// pubmedArticleSet mirrors the subset of the efetch PubmedArticleSet XML
// that the CSL mapping consumes.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Text string `xml:"AbstractText"`
			} `xml:"Abstract"`
			Pagination struct {
				MedlinePgn string `xml:"MedlinePgn"`
			} `xml:"Pagination"`
			Journal struct {
				Title           string `xml:"Title"`
				ISOAbbreviation string `xml:"ISOAbbreviation"`
				ISSN            string `xml:"ISSN"`
				JournalIssue    struct {
					Volume  string     `xml:"Volume"`
					Issue   string     `xml:"Issue"`
					PubDate pubmedDate `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			ArticleDate pubmedDate `xml:"ArticleDate"`
			Authors     []struct {
				ForeName string `xml:"ForeName"`
				LastName string `xml:"LastName"`
			} `xml:"AuthorList>Author"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	ArticleIDs []struct {
		IDType string `xml:"IdType,attr"`
		Value  string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

var monthAbbrevs = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

func itemFromPubMedArticle(article pubmedArticle) (csl.Item, error) {
	a := article.Citation.Article
	if a.Title == "" && len(a.Authors) == 0 {
		return nil, fmt.Errorf("%w: PubmedArticle without an Article element", ErrMalformedResponse)
	}

	item := csl.Item{}
	setIfNonEmpty := func(key, value string) {
		if value != "" {
			item[key] = value
		}
	}
	setIfNonEmpty("title", a.Title)
	setIfNonEmpty("volume", a.Journal.JournalIssue.Volume)
	setIfNonEmpty("issue", a.Journal.JournalIssue.Issue)
	setIfNonEmpty("page", a.Pagination.MedlinePgn)
	setIfNonEmpty("container-title", a.Journal.Title)
	setIfNonEmpty("container-title-short", a.Journal.ISOAbbreviation)
	setIfNonEmpty("ISSN", a.Journal.ISSN)
	setIfNonEmpty("abstract", a.Abstract.Text)

	if parts := pubmedDateParts(a.ArticleDate, a.Journal.JournalIssue.PubDate); parts != nil {
		item["issued"] = map[string]any{"date-parts": []any{parts}}
	}

	var authors []any
	for _, author := range a.Authors {
		entry := map[string]any{}
		if author.ForeName != "" {
			entry["given"] = author.ForeName
		}
		if author.LastName != "" {
			entry["family"] = author.LastName
		}
		authors = append(authors, entry)
	}
	if len(authors) > 0 {
		item["author"] = authors
	}

	for _, id := range article.ArticleIDs {
		switch id.IDType {
		case "pubmed":
			item["PMID"] = id.Value
		case "pmc":
			item["PMCID"] = id.Value
		case "doi":
			item["DOI"] = strings.ToLower(id.Value)
		}
	}
	if pmid, ok := item["PMID"].(string); ok {
		item["URL"] = "https://www.ncbi.nlm.nih.gov/pubmed/" + pmid
	}
	item["type"] = "article-journal"
	return item, nil
}

// pubmedDateParts prefers the electronic ArticleDate and falls back to
// the print JournalIssue PubDate, whose month may be an abbreviation.
func pubmedDateParts(articleDate, pubDate pubmedDate) []any {
	if articleDate.Year != "" {
		return numericDateParts(articleDate)
	}
	var parts []any
	year, err := strconv.Atoi(pubDate.Year)
	if err != nil {
		return nil
	}
	parts = append(parts, year)
	month := 0
	if m, ok := monthAbbrevs[pubDate.Month]; ok {
		month = m
	} else if m, err := strconv.Atoi(pubDate.Month); err == nil {
		month = m
	}
	if month == 0 {
		return parts
	}
	parts = append(parts, month)
	if day, err := strconv.Atoi(pubDate.Day); err == nil {
		parts = append(parts, day)
	}
	return parts
}

func numericDateParts(date pubmedDate) []any {
	var parts []any
	for _, field := range []string{date.Year, date.Month, date.Day} {
		n, err := strconv.Atoi(field)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}
