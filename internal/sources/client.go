package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies citekit to upstream services, which
	// several registries (NCBI, Crossref) request of API consumers.
	DefaultUserAgent = "citekit (https://github.com/citekit/citekit)"

	// maxAttempts bounds retries of idempotent GETs on transient
	// failures. 4xx responses are never retried.
	maxAttempts = 3

	retryBaseDelay = time.Second
)

// client wraps an http.Client with the retry and error-mapping policy
// shared by every resolver.
type client struct {
	httpClient *http.Client
	userAgent  string
}

func newClient(hc *http.Client, userAgent string) *client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &client{httpClient: hc, userAgent: userAgent}
}

// get issues a GET with bounded retries on network failure and 5xx
// responses. It returns the response body for 2xx, a *RequestError for
// other statuses, and ErrUpstreamUnavailable when every attempt failed
// at the transport level.
func (c *client) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
			case <-time.After(retryBaseDelay * time.Duration(attempt-1)):
			}
		}

		body, err := c.getOnce(ctx, url, header)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode < 500 {
			// 4xx is definitive; retrying cannot help.
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
		}
	}
	return nil, lastErr
}

func (c *client) getOnce(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{StatusCode: resp.StatusCode, URL: url}
	}
	return body, nil
}
