// Package bibliography loads manually curated reference files into CSL
// items keyed by standard citation key. Supported formats are CSL JSON,
// CSL YAML, and BibTeX, selected by file extension.
package bibliography

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/citekit/citekit/internal/citekey"
	"github.com/citekit/citekit/internal/csl"
)

// Load reads every path in order and returns items keyed by standard
// citation key. When two files define the same key, the later path wins
// and the earlier item is replaced whole, never merged.
func Load(paths []string, aliases citekey.AliasTable) (map[string]csl.Item, error) {
	refs := make(map[string]csl.Item)
	for _, path := range paths {
		items, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading references from %s: %w", path, err)
		}
		for i, item := range items {
			key := itemKey(item, path, i, aliases)
			item.SetID(key.StandardID)
			item.NoteAppendPairs(map[string]string{
				"manual_reference_filename": filepath.Base(path),
			})
			refs[key.StandardID] = item
		}
	}
	return refs, nil
}

// LoadFile reads a single reference file. The format is chosen by
// extension: .json for CSL JSON, .yaml/.yml for CSL YAML, .bib for BibTeX.
func LoadFile(path string) ([]csl.Item, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadCSLJSON(path)
	case ".yaml", ".yml":
		return loadCSLYAML(path)
	case ".bib":
		return loadBibTeX(path)
	default:
		return nil, fmt.Errorf("unsupported reference format %q", filepath.Ext(path))
	}
}

// itemKey derives a standard citation key for a loaded item. Ids that
// parse as known citekeys are standardized; anything else is kept
// verbatim under the raw prefix. Items without an id get one synthesized
// from the file name and position.
func itemKey(item csl.Item, path string, index int, aliases citekey.AliasTable) citekey.Key {
	id := item.ID()
	if id == "" {
		id = fmt.Sprintf("raw:%s-%d", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), index+1)
	}
	key := citekey.Parse(id, aliases, true)
	// Tag keys are allowed here even without an alias entry: a manual
	// reference is itself a valid definition for a tag.
	if problem := key.Inspect(); problem != "" && !key.IsTag() {
		key = citekey.Parse(citekey.RawPrefix+":"+id, nil, false)
	}
	return key
}

func loadCSLJSON(path string) ([]csl.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []csl.Item
	if err := json.Unmarshal(data, &items); err != nil {
		// A single top-level object is accepted too.
		var item csl.Item
		if objErr := json.Unmarshal(data, &item); objErr != nil {
			return nil, err
		}
		items = []csl.Item{item}
	}
	return items, nil
}

func loadCSLYAML(path string) ([]csl.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []csl.Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		var item csl.Item
		if objErr := yaml.Unmarshal(data, &item); objErr != nil {
			return nil, err
		}
		items = []csl.Item{item}
	}
	for i, item := range items {
		items[i] = normalizeYAML(item)
	}
	return items, nil
}

// normalizeYAML rewrites YAML-decoded values into their decoded-JSON
// equivalents so items behave identically regardless of input format.
func normalizeYAML(item csl.Item) csl.Item {
	out := make(csl.Item, len(item))
	for k, v := range item {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, inner := range value {
			out[k] = normalizeYAMLValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, inner := range value {
			out[i] = normalizeYAMLValue(inner)
		}
		return out
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return v
	}
}
