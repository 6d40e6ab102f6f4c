package bibliography

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/citekit/citekit/internal/citekey"
	"github.com/citekit/citekit/internal/csl"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadCSLJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "refs.json", `[
  {"id": "doi:10.7554/ELIFE.32822", "type": "article-journal", "title": "Sci-Hub"},
  {"id": "my-report", "type": "report", "title": "Internal report"}
]`)

	refs, err := Load([]string{path}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2", len(refs))
	}

	// Recognized ids are standardized, unrecognized ones go under raw.
	item, ok := refs["doi:10.7554/elife.32822"]
	if !ok {
		t.Fatalf("missing standardized doi key; have %v", keysOf(refs))
	}
	if item.ID() != "doi:10.7554/elife.32822" {
		t.Errorf("id = %q, want standardized", item.ID())
	}
	if !strings.Contains(item.Note(), "manual_reference_filename: refs.json") {
		t.Errorf("note missing source annotation: %q", item.Note())
	}
	if _, ok := refs["raw:my-report"]; !ok {
		t.Errorf("missing raw key; have %v", keysOf(refs))
	}
}

func TestLoadCSLYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "refs.yaml", `
- id: raw:dataset
  type: dataset
  title: Survey responses
  issued:
    date-parts:
    - [2021, 6]
`)

	refs, err := Load([]string{path}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	item, ok := refs["raw:dataset"]
	if !ok {
		t.Fatalf("missing raw:dataset; have %v", keysOf(refs))
	}
	issued, ok := item["issued"].(map[string]any)
	if !ok {
		t.Fatalf("issued = %T, want map", item["issued"])
	}
	parts := issued["date-parts"].([]any)[0].([]any)
	if parts[0] != float64(2021) {
		t.Errorf("year = %v (%T), want float64(2021)", parts[0], parts[0])
	}
}

func TestLoadBibTeX(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "refs.bib", `@article{greene2017,
  author = {Greene, Casey and Himmelstein, Daniel},
  title = {Sci-Hub beyond paywalls},
  journal = {eLife},
  year = {2017},
  month = {mar},
  pages = {100--110},
  doi = {10.7554/ELIFE.32822},
}

@misc{unpublished-notes,
  title = {Lab notes},
  year = {2020},
}`)

	items, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	first := items[0]
	if first.ID() != "greene2017" {
		t.Errorf("id = %q, want greene2017", first.ID())
	}
	if first.Type() != "article-journal" {
		t.Errorf("type = %q, want article-journal", first.Type())
	}
	if first["DOI"] != "10.7554/elife.32822" {
		t.Errorf("DOI = %v, want lower-cased", first["DOI"])
	}
	if first["page"] != "100-110" {
		t.Errorf("page = %v, want 100-110", first["page"])
	}
	authors := first["author"].([]any)
	if len(authors) != 2 {
		t.Fatalf("len(authors) = %d, want 2", len(authors))
	}
	lead := authors[0].(map[string]any)
	if lead["family"] != "Greene" || lead["given"] != "Casey" {
		t.Errorf("lead author = %v", lead)
	}
	issued := first["issued"].(map[string]any)["date-parts"].([]any)[0].([]any)
	if len(issued) != 2 || issued[0] != 2017 || issued[1] != 3 {
		t.Errorf("issued = %v, want [2017 3]", issued)
	}

	if items[1].Type() != "document" {
		t.Errorf("misc type = %q, want document", items[1].Type())
	}
}

func TestLoadLaterPathsWin(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.json", `[{"id": "raw:x", "title": "old", "custom": "kept?"}]`)
	second := writeFile(t, dir, "b.json", `[{"id": "raw:x", "title": "new"}]`)

	refs, err := Load([]string{first, second}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	item := refs["raw:x"]
	if item["title"] != "new" {
		t.Errorf("title = %v, want new", item["title"])
	}
	// Replacement is whole, not a merge.
	if _, ok := item["custom"]; ok {
		t.Error("field from the replaced item leaked into the winner")
	}
}

func TestLoadAppliesAliases(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "refs.json", `[{"id": "tag:deep-review", "title": "t"}]`)

	aliases := citekey.AliasTable{"tag:deep-review": "doi:10.1098/rsif.2017.0387"}
	refs, err := Load([]string{path}, aliases)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := refs["doi:10.1098/rsif.2017.0387"]; !ok {
		t.Errorf("alias not expanded; have %v", keysOf(refs))
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "refs.txt", "not a bibliography")
	if _, err := Load([]string{path}, nil); err == nil {
		t.Error("Load() succeeded on unsupported format")
	}
}

func keysOf(refs map[string]csl.Item) []string {
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
