package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/citekit/citekit/internal/csl"
)

const (
	// DOI content negotiation, documented at
	// https://citation.crosscite.org/docs.html
	defaultDOIBaseURL = "https://doi.org"

	// Handle API used to expand shortDOIs, see
	// https://www.handle.net/proxy_servlet.html
	defaultHandleBaseURL = "https://doi.org/api/handles"

	// PMC ID Converter, see
	// https://www.ncbi.nlm.nih.gov/pmc/tools/id-converter-api/
	defaultIDConverterURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
)

// DOIResolver retrieves CSL JSON for DOIs via content negotiation.
// shortDOI accessions (10/...) are expanded to full DOIs first.
type DOIResolver struct {
	BaseURL        string
	HandleBaseURL  string
	IDConverterURL string

	// AugmentPubMedIDs controls the best-effort PMID/PMCID lookup
	// attached to each resolved DOI. Lookup failures only log.
	AugmentPubMedIDs bool

	client *client
}

// NewDOIResolver returns a resolver using the public crosscite endpoints.
func NewDOIResolver(c *client) *DOIResolver {
	return &DOIResolver{
		BaseURL:          defaultDOIBaseURL,
		HandleBaseURL:    defaultHandleBaseURL,
		IDConverterURL:   defaultIDConverterURL,
		AugmentPubMedIDs: true,
		client:           c,
	}
}

func (r *DOIResolver) StandardPrefix() string { return "doi" }

func (r *DOIResolver) Resolve(ctx context.Context, accession string) (csl.Item, error) {
	doi := strings.ToLower(accession)
	if strings.HasPrefix(doi, "10/") {
		expanded, err := r.ExpandShortDOI(ctx, doi)
		if err != nil {
			return nil, err
		}
		doi = expanded
	}

	endpoint := r.BaseURL + "/" + url.PathEscape(doi)
	header := http.Header{"Accept": []string{"application/vnd.citationstyles.csl+json"}}
	body, err := r.client.get(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("doi %s: %w", doi, err)
	}

	var item csl.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("doi %s: %w: %v", doi, ErrMalformedResponse, err)
	}

	item["DOI"] = doi
	item["URL"] = "https://doi.org/" + doi
	if r.AugmentPubMedIDs {
		r.augmentPubMedIDs(ctx, doi, item)
	}
	return item, nil
}

// ExpandShortDOI converts a shortDOI (10/abcde) to its full DOI using
// the handle API's HS_ALIAS record.
func (r *DOIResolver) ExpandShortDOI(ctx context.Context, shortDOI string) (string, error) {
	if !strings.HasPrefix(shortDOI, "10/") {
		return "", fmt.Errorf("%w: shortDOIs start with 10/, got %q", ErrInvalidAccession, shortDOI)
	}
	endpoint := fmt.Sprintf("%s/%s?type=HS_ALIAS", r.HandleBaseURL, url.PathEscape(strings.ToLower(shortDOI)))
	body, err := r.client.get(ctx, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("expanding shortDOI %s: %w", shortDOI, err)
	}

	var result struct {
		ResponseCode int `json:"responseCode"`
		Values       []struct {
			Type string `json:"type"`
			Data struct {
				Value string `json:"value"`
			} `json:"data"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("expanding shortDOI %s: %w: %v", shortDOI, ErrMalformedResponse, err)
	}
	// Handle protocol response code 1 is success; 100 is handle not found.
	if result.ResponseCode == 100 {
		return "", fmt.Errorf("shortDOI %s: %w", shortDOI, ErrNotFound)
	}
	if result.ResponseCode != 1 {
		return "", fmt.Errorf("shortDOI %s: %w: handle response code %d", shortDOI, ErrMalformedResponse, result.ResponseCode)
	}
	for _, value := range result.Values {
		if value.Type == "HS_ALIAS" {
			return strings.ToLower(value.Data.Value), nil
		}
	}
	return "", fmt.Errorf("shortDOI %s: %w: no HS_ALIAS value", shortDOI, ErrMalformedResponse)
}

// augmentPubMedIDs attaches PMID and PMCID fields when the PMC ID
// converter knows the DOI. Failures are logged, never propagated.
func (r *DOIResolver) augmentPubMedIDs(ctx context.Context, doi string, item csl.Item) {
	endpoint := fmt.Sprintf("%s?ids=%s&tool=citekit", r.IDConverterURL, url.QueryEscape(doi))
	body, err := r.client.get(ctx, endpoint, nil)
	if err != nil {
		slog.Debug("PMC ID converter lookup failed", "doi", doi, "error", err)
		return
	}

	var converted struct {
		Records []struct {
			PMCID  string `xml:"pmcid,attr"`
			PMID   string `xml:"pmid,attr"`
			Status string `xml:"status,attr"`
		} `xml:"record"`
	}
	if err := xml.Unmarshal(body, &converted); err != nil || len(converted.Records) != 1 {
		slog.Debug("unexpected PMC ID converter response", "doi", doi, "error", err)
		return
	}
	record := converted.Records[0]
	if record.Status == "error" {
		return
	}
	if record.PMCID != "" {
		item["PMCID"] = record.PMCID
	}
	if record.PMID != "" {
		item["PMID"] = record.PMID
	}
}
