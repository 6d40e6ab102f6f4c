package sources

import (
	"context"
	"net/http"

	"github.com/citekit/citekit/internal/csl"
)

// Resolver fetches bibliographic metadata for one citation source and
// shapes it into a CSL item draft. Drafts still need validation and id
// assignment by the pipeline.
type Resolver interface {
	// StandardPrefix is the canonical prefix this resolver serves.
	StandardPrefix() string

	// Resolve fetches metadata for a standardized accession. Failures
	// are typed per the package error taxonomy; Resolve never panics
	// and callers treat errors as per-key, not fatal.
	Resolve(ctx context.Context, accession string) (csl.Item, error)
}

// Registry holds the resolver for each standard citation source prefix.
type Registry struct {
	resolvers map[string]Resolver
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	httpClient  *http.Client
	userAgent   string
	ncbiAPIKey  string
	fetchTitles bool
}

// WithHTTPClient sets a custom HTTP client shared by all resolvers.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *registryConfig) {
		cfg.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent sent to upstream services.
func WithUserAgent(ua string) Option {
	return func(cfg *registryConfig) {
		cfg.userAgent = ua
	}
}

// WithNCBIAPIKey sets the api_key parameter for NCBI E-utilities
// requests, which raises the permitted request rate.
func WithNCBIAPIKey(key string) Option {
	return func(cfg *registryConfig) {
		cfg.ncbiAPIKey = key
	}
}

// WithURLTitleFetch enables fetching page titles for url: citations.
// Without it, url citations synthesize a stub item with no network call.
func WithURLTitleFetch(enabled bool) Option {
	return func(cfg *registryConfig) {
		cfg.fetchTitles = enabled
	}
}

// NewRegistry constructs the default resolver set.
func NewRegistry(opts ...Option) *Registry {
	var cfg registryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	c := newClient(cfg.httpClient, cfg.userAgent)

	pubmed := NewPubMedResolver(c)
	pubmed.APIKey = cfg.ncbiAPIKey

	doi := NewDOIResolver(c)

	url := NewURLResolver(c)
	url.FetchTitles = cfg.fetchTitles

	r := &Registry{resolvers: make(map[string]Resolver)}
	for _, resolver := range []Resolver{
		doi,
		pubmed,
		NewPMCResolver(c),
		NewArxivResolver(c),
		NewISBNResolver(c),
		url,
		NewRawResolver(),
	} {
		r.resolvers[resolver.StandardPrefix()] = resolver
	}
	return r
}

// Lookup returns the resolver for a standard prefix.
func (r *Registry) Lookup(prefix string) (Resolver, bool) {
	resolver, ok := r.resolvers[prefix]
	return resolver, ok
}

// Register replaces the resolver for its standard prefix. Used by tests
// to point a source at a fake upstream.
func (r *Registry) Register(resolver Resolver) {
	r.resolvers[resolver.StandardPrefix()] = resolver
}
