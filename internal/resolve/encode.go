package resolve

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/citekit/citekit/internal/csl"
)

// EncodeJSON writes items as a CSL JSON array, indented two spaces with
// HTML escaping off so DOIs and URLs stay readable.
func EncodeJSON(w io.Writer, items []csl.Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(items)
}

// EncodeYAML writes items as a CSL YAML sequence.
func EncodeYAML(w io.Writer, items []csl.Item) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
