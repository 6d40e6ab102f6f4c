package sources

import (
	"errors"
	"fmt"
	"testing"
)

func TestRequestErrorUnwrap(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{404, ErrNotFound},
		{410, ErrNotFound},
		{500, ErrUpstreamUnavailable},
		{503, ErrUpstreamUnavailable},
		{400, ErrMalformedResponse},
		{429, ErrMalformedResponse},
	}
	for _, tt := range tests {
		err := &RequestError{StatusCode: tt.status, URL: "https://example.com"}
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("status %d: errors.Is(%v) = false, want %v", tt.status, err, tt.sentinel)
		}
	}
}

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{StatusCode: 404, URL: "https://doi.org/x", Message: "gone"}
	want := "upstream error (status 404) from https://doi.org/x: gone"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{ErrInvalidAccession, "InvalidAccession"},
		{ErrUnknownAlias, "UnknownAlias"},
		{ErrNotFound, "NotFound"},
		{ErrUpstreamUnavailable, "UpstreamUnavailable"},
		{ErrMalformedResponse, "MalformedResponse"},
		{ErrSchemaInvalid, "SchemaInvalid"},
		{fmt.Errorf("wrapping: %w", ErrNotFound), "NotFound"},
		{&RequestError{StatusCode: 502}, "UpstreamUnavailable"},
		{errors.New("something else"), "ResolutionFailed"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.kind {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsNotFound(fmt.Errorf("doi x: %w", ErrNotFound)) {
		t.Error("IsNotFound failed on wrapped ErrNotFound")
	}
	if IsNotFound(ErrUpstreamUnavailable) {
		t.Error("IsNotFound true for unavailable error")
	}
	if !IsUnavailable(&RequestError{StatusCode: 500}) {
		t.Error("IsUnavailable failed on 500 RequestError")
	}
}
