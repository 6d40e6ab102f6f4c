// Package sources implements one metadata resolver per citation source
// (doi, pubmed, pmc, arxiv, isbn, url, raw), each shaping its upstream
// service's response into a CSL JSON item.
package sources

import (
	"errors"
	"fmt"
)

// Resolution failures are recovered per key and never abort a batch.
var (
	// ErrInvalidAccession indicates a malformed identifier for its
	// declared citation source.
	ErrInvalidAccession = errors.New("invalid accession for citation source")

	// ErrUnknownAlias indicates an alias with no resolvable target.
	ErrUnknownAlias = errors.New("unknown citation alias")

	// ErrUpstreamUnavailable indicates a network failure, timeout, or
	// persistent 5xx from the upstream service.
	ErrUpstreamUnavailable = errors.New("upstream metadata service unavailable")

	// ErrNotFound indicates the upstream confirmed no record exists.
	ErrNotFound = errors.New("record not found upstream")

	// ErrMalformedResponse indicates the upstream returned an
	// unparsable or unexpectedly shaped response.
	ErrMalformedResponse = errors.New("malformed response from upstream")

	// ErrSchemaInvalid indicates a CSL JSON Schema validation failure.
	ErrSchemaInvalid = errors.New("CSL schema validation failure")
)

// RequestError carries the HTTP status behind a failed upstream request.
type RequestError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (status %d) from %s: %s", e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("upstream error (status %d) from %s", e.StatusCode, e.URL)
}

// Unwrap maps the status code onto the error taxonomy so callers can use
// errors.Is against the sentinel errors.
func (e *RequestError) Unwrap() error {
	switch {
	case e.StatusCode == 404 || e.StatusCode == 410:
		return ErrNotFound
	case e.StatusCode >= 500:
		return ErrUpstreamUnavailable
	default:
		return ErrMalformedResponse
	}
}

// IsNotFound reports whether err indicates a confirmed missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err indicates a transient upstream
// failure that a later run might not reproduce.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// ErrorKind names the taxonomy entry for err, for error annotations in
// bibliography output. Unrecognized errors report as ResolutionFailed.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAccession):
		return "InvalidAccession"
	case errors.Is(err, ErrUnknownAlias):
		return "UnknownAlias"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	case errors.Is(err, ErrSchemaInvalid):
		return "SchemaInvalid"
	default:
		return "ResolutionFailed"
	}
}
