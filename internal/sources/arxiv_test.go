package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/1407.3561v1</id>
    <published>2014-07-14T04:00:00Z</published>
    <title>IPFS - Content Addressed, Versioned, P2P File
  System</title>
    <summary>  The InterPlanetary File System (IPFS) is a peer-to-peer
distributed file system.
</summary>
    <author><name>Juan Benet</name></author>
    <arxiv:doi xmlns:arxiv="http://arxiv.org/schemas/atom">10.1000/EXAMPLE</arxiv:doi>
  </entry>
</feed>`

func TestArxivResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_list"); got != "1407.3561v1" {
			t.Errorf("id_list = %q", got)
		}
		fmt.Fprint(w, arxivFixture)
	}))
	defer server.Close()

	resolver := NewArxivResolver(newClient(server.Client(), ""))
	resolver.BaseURL = server.URL

	item, err := resolver.Resolve(context.Background(), "1407.3561v1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if item["type"] != "manuscript" {
		t.Errorf("type = %v, want manuscript", item["type"])
	}
	if item["number"] != "1407.3561v1" {
		t.Errorf("number = %v", item["number"])
	}
	if item["version"] != "v1" {
		t.Errorf("version = %v", item["version"])
	}
	if item["URL"] != "https://arxiv.org/abs/1407.3561v1" {
		t.Errorf("URL = %v", item["URL"])
	}
	// hard-wrapped title lines are joined
	if item["title"] != "IPFS - Content Addressed, Versioned, P2P File System" {
		t.Errorf("title = %v", item["title"])
	}
	if item["DOI"] != "10.1000/example" {
		t.Errorf("DOI = %v, want lowercased", item["DOI"])
	}
	wantAuthors := []any{map[string]any{"literal": "Juan Benet"}}
	if !reflect.DeepEqual(item["author"], wantAuthors) {
		t.Errorf("author = %v, want %v", item["author"], wantAuthors)
	}
	wantIssued := map[string]any{"date-parts": []any{[]any{2014, 7, 14}}}
	if !reflect.DeepEqual(item["issued"], wantIssued) {
		t.Errorf("issued = %v, want %v", item["issued"], wantIssued)
	}
}

func TestArxivResolveUnknownID(t *testing.T) {
	// The API answers bad IDs with a feed entry linking to an error page.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format</id>
    <title>Error</title>
  </entry>
</feed>`)
	}))
	defer server.Close()

	resolver := NewArxivResolver(newClient(server.Client(), ""))
	resolver.BaseURL = server.URL
	if _, err := resolver.Resolve(context.Background(), "bogus"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve = %v, want ErrNotFound", err)
	}
}

func TestArxivResolveEmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}))
	defer server.Close()

	resolver := NewArxivResolver(newClient(server.Client(), ""))
	resolver.BaseURL = server.URL
	if _, err := resolver.Resolve(context.Background(), "0000.00000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve = %v, want ErrNotFound", err)
	}
}

func TestArxivVersion(t *testing.T) {
	tests := []struct {
		id, version string
	}{
		{"1407.3561v1", "v1"},
		{"1407.3561", ""},
		{"hep-th/9305059v2", "v2"},
	}
	for _, tt := range tests {
		if got := arxivVersion(tt.id); got != tt.version {
			t.Errorf("arxivVersion(%q) = %q, want %q", tt.id, got, tt.version)
		}
	}
}
