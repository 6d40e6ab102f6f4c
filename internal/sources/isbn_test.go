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

func newTestISBNResolver(server *httptest.Server) *ISBNResolver {
	r := NewISBNResolver(newClient(server.Client(), ""))
	r.CitoidBaseURL = server.URL + "/citoid"
	r.OpenLibraryBaseURL = server.URL + "/openlibrary"
	return r
}

func TestISBNResolveCitoid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/citoid/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"itemType": "book", "title": "The Hedgehog, the Fox, and the Magister's Pox",
			"author": [["Stephen Jay", "Gould"]], "date": "2011", "publisher": "Harvard University Press",
			"place": "Cambridge, MA"}]`)
	})
	mux.HandleFunc("/openlibrary", func(w http.ResponseWriter, r *http.Request) {
		t.Error("openlibrary called despite citoid success")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver := newTestISBNResolver(server)
	item, err := resolver.Resolve(context.Background(), "9780674061910")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if item["title"] != "The Hedgehog, the Fox, and the Magister's Pox" {
		t.Errorf("title = %v", item["title"])
	}
	if item["type"] != "book" {
		t.Errorf("type = %v", item["type"])
	}
	if item["ISBN"] != "9780674061910" {
		t.Errorf("ISBN = %v", item["ISBN"])
	}
	if item["publisher"] != "Harvard University Press" || item["publisher-place"] != "Cambridge, MA" {
		t.Errorf("publisher/place = %v/%v", item["publisher"], item["publisher-place"])
	}
	wantAuthors := []any{map[string]any{"given": "Stephen Jay", "family": "Gould"}}
	if !reflect.DeepEqual(item["author"], wantAuthors) {
		t.Errorf("author = %v, want %v", item["author"], wantAuthors)
	}
	wantIssued := map[string]any{"date-parts": []any{[]any{2011}}}
	if !reflect.DeepEqual(item["issued"], wantIssued) {
		t.Errorf("issued = %v, want %v", item["issued"], wantIssued)
	}
}

func TestISBNResolveFallsBackToOpenLibrary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/citoid/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/openlibrary", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ISBN:9780674061910": {"title": "A book",
			"authors": [{"name": "Stephen Jay Gould"}],
			"publishers": [{"name": "Harvard University Press"}],
			"publish_date": "March 2011",
			"url": "https://openlibrary.org/books/OL24connectedM"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver := newTestISBNResolver(server)
	item, err := resolver.Resolve(context.Background(), "9780674061910")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if item["title"] != "A book" {
		t.Errorf("title = %v", item["title"])
	}
	wantAuthors := []any{map[string]any{"literal": "Stephen Jay Gould"}}
	if !reflect.DeepEqual(item["author"], wantAuthors) {
		t.Errorf("author = %v, want %v", item["author"], wantAuthors)
	}
	wantIssued := map[string]any{"date-parts": []any{[]any{2011}}}
	if !reflect.DeepEqual(item["issued"], wantIssued) {
		t.Errorf("issued = %v, want %v", item["issued"], wantIssued)
	}
}

func TestISBNResolveAllProvidersFail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/citoid/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/openlibrary", func(w http.ResponseWriter, r *http.Request) {
		// Open Library answers unknown ISBNs with an empty object.
		fmt.Fprint(w, `{}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver := newTestISBNResolver(server)
	if _, err := resolver.Resolve(context.Background(), "9780000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve = %v, want ErrNotFound", err)
	}
}
