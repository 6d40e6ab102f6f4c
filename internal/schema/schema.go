// Package schema validates CSL items against the CSL JSON Schema and
// prunes nonconforming fields. The schema ships as a declarative artifact
// (csl-data.json) consumed generically; no field checks are hardcoded.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/citekit/citekit/internal/csl"
	"github.com/citekit/citekit/internal/sources"
)

//go:embed csl-data.json
var cslSchemaJSON []byte

// maxPrunePasses bounds the prune-revalidate loop. Removing one field can
// surface further errors (e.g. an emptied array violating minItems), so
// pruning iterates until the item validates or the bound is reached.
const maxPrunePasses = 5

// Validator checks CSL items against the embedded CSL JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
	doc    map[string]any
}

// New compiles the embedded schema. The item subschema (#/items) is used
// since items are validated one at a time rather than as a whole array.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("csl-data.json", bytes.NewReader(cslSchemaJSON)); err != nil {
		return nil, fmt.Errorf("loading CSL schema: %w", err)
	}
	compiled, err := compiler.Compile("csl-data.json#/items")
	if err != nil {
		return nil, fmt.Errorf("compiling CSL schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(cslSchemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("decoding CSL schema: %w", err)
	}
	return &Validator{schema: compiled, doc: doc}, nil
}

// Validate reports whether the item conforms to the schema.
func (v *Validator) Validate(item csl.Item) error {
	instance, err := roundTrip(item)
	if err != nil {
		return err
	}
	if err := v.schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", sources.ErrSchemaInvalid, err)
	}
	return nil
}

// Prune returns a copy of the item with schema-violating fields removed.
// It fails only when the item cannot be made valid by field removal
// (e.g. a missing required field or an invalid root).
func (v *Validator) Prune(item csl.Item) (csl.Item, error) {
	instance, err := roundTrip(item)
	if err != nil {
		return nil, err
	}
	instance = v.pruneInstance(instance)
	if verr := v.schema.Validate(instance); verr != nil {
		return nil, fmt.Errorf("%w: %v", sources.ErrSchemaInvalid, verr)
	}
	return toItem(instance)
}

// pruneInstance runs the remove-revalidate loop. It stops when the
// instance validates, when no further deletions are possible, or at the
// pass bound. Callers decide whether residual errors are fatal.
func (v *Validator) pruneInstance(instance any) any {
	for pass := 0; pass < maxPrunePasses; pass++ {
		verr := v.schema.Validate(instance)
		if verr == nil {
			return instance
		}
		var validationErr *jsonschema.ValidationError
		if !errors.As(verr, &validationErr) {
			return instance
		}
		if !v.removeErrors(instance, validationErr) {
			return instance
		}
	}
	return instance
}

// Clean sanitizes a draft item: known-invalid type values are corrected,
// schema violations are optionally pruned, and the required type is
// defaulted last so that a pruned-away type is restored. With prune set,
// the returned item is guaranteed schema-valid.
func (v *Validator) Clean(item csl.Item, prune bool) (csl.Item, error) {
	out := item.Clone()
	out.CorrectInvalidType()
	if prune {
		instance, err := roundTrip(out)
		if err != nil {
			return nil, err
		}
		pruned, err := toItem(v.pruneInstance(instance))
		if err != nil {
			return nil, err
		}
		out = pruned
	}
	out.SetDefaultType()
	if prune {
		if err := v.Validate(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// removeErrors deletes the instance elements behind each leaf validation
// error. Returns false when no deletion was possible, meaning further
// passes cannot make progress.
func (v *Validator) removeErrors(instance any, err *jsonschema.ValidationError) bool {
	leaves := collectLeaves(err, nil)

	// Delete deeper paths first so earlier deletions do not shift the
	// indices of later ones.
	sort.Slice(leaves, func(i, j int) bool {
		return leaves[i].InstanceLocation > leaves[j].InstanceLocation
	})

	removed := false
	for _, leaf := range leaves {
		keyword := keywordOf(leaf)
		path := pointerTokens(leaf.InstanceLocation)
		switch keyword {
		case "required":
			// Nothing to remove; the pipeline fills required fields
			// (id, type) before validation.
			continue
		case "additionalProperties":
			// The error may point at the object or at the offending
			// property itself; handle both.
			if object, ok := elementAt(instance, path).(map[string]any); ok {
				if extras := v.extraProperties(object, path); len(extras) > 0 {
					for _, extra := range extras {
						delete(object, extra)
					}
					removed = true
					continue
				}
			}
			if len(path) > 0 && deleteAt(instance, path) {
				removed = true
			}
		default:
			if len(path) == 0 {
				// Root-level violation; cannot delete the item from
				// within itself.
				continue
			}
			if deleteAt(instance, path) {
				removed = true
			}
		}
	}
	return removed
}

func collectLeaves(err *jsonschema.ValidationError, leaves []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return append(leaves, err)
	}
	for _, cause := range err.Causes {
		leaves = collectLeaves(cause, leaves)
	}
	return leaves
}

func keywordOf(err *jsonschema.ValidationError) string {
	tokens := pointerTokens(err.KeywordLocation)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// extraProperties resolves which keys of the object at path the schema
// does not allow, by walking the schema document to the subschema
// governing that location.
func (v *Validator) extraProperties(object map[string]any, path []string) []string {
	allowed := v.allowedProperties(path)
	if allowed == nil {
		return nil
	}
	var extras []string
	for key := range object {
		if !allowed[key] {
			extras = append(extras, key)
		}
	}
	return extras
}

// allowedProperties walks the schema document along an instance path
// (relative to a single item) and returns the governing subschema's
// property set, or nil when the walk fails.
func (v *Validator) allowedProperties(path []string) map[string]bool {
	node, _ := v.doc["items"].(map[string]any)
	node = v.resolveSubschema(node)
	for _, token := range path {
		if node == nil {
			return nil
		}
		if _, err := strconv.Atoi(token); err == nil {
			next, _ := node["items"].(map[string]any)
			node = v.resolveSubschema(next)
			continue
		}
		properties, _ := node["properties"].(map[string]any)
		next, _ := properties[token].(map[string]any)
		node = v.resolveSubschema(next)
	}
	if node == nil {
		return nil
	}
	properties, _ := node["properties"].(map[string]any)
	allowed := make(map[string]bool, len(properties))
	for key := range properties {
		allowed[key] = true
	}
	return allowed
}

// resolveSubschema follows local $ref pointers and unwraps single-branch
// anyOf combinators, which the CSL schema uses around its definitions.
func (v *Validator) resolveSubschema(node map[string]any) map[string]any {
	for i := 0; i < 4 && node != nil; i++ {
		if ref, ok := node["$ref"].(string); ok {
			name := strings.TrimPrefix(ref, "#/definitions/")
			definitions, _ := v.doc["definitions"].(map[string]any)
			node, _ = definitions[name].(map[string]any)
			continue
		}
		if anyOf, ok := node["anyOf"].([]any); ok && len(anyOf) > 0 {
			node, _ = anyOf[0].(map[string]any)
			continue
		}
		break
	}
	return node
}

// pointerTokens splits a JSON pointer into unescaped tokens.
func pointerTokens(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return parts
}

// elementAt descends the instance along pointer tokens.
func elementAt(instance any, path []string) any {
	current := instance
	for _, token := range path {
		switch node := current.(type) {
		case map[string]any:
			current = node[token]
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return nil
			}
			current = node[index]
		default:
			return nil
		}
	}
	return current
}

// deleteAt removes the element addressed by path from its parent.
// Array elements are spliced out; map keys are deleted.
func deleteAt(instance any, path []string) bool {
	parent := elementAt(instance, path[:len(path)-1])
	last := path[len(path)-1]
	switch node := parent.(type) {
	case map[string]any:
		if _, ok := node[last]; !ok {
			return false
		}
		delete(node, last)
		return true
	case []any:
		index, err := strconv.Atoi(last)
		if err != nil || index < 0 || index >= len(node) || len(path) < 2 {
			return false
		}
		// Splicing a slice held by the grandparent requires rewriting
		// the grandparent's reference.
		grandparent := elementAt(instance, path[:len(path)-2])
		spliced := append(append([]any{}, node[:index]...), node[index+1:]...)
		switch holder := grandparent.(type) {
		case map[string]any:
			holder[path[len(path)-2]] = spliced
			return true
		case []any:
			holderIndex, err := strconv.Atoi(path[len(path)-2])
			if err != nil || holderIndex < 0 || holderIndex >= len(holder) {
				return false
			}
			holder[holderIndex] = spliced
			return true
		}
		return false
	}
	return false
}

// roundTrip converts an item to plain decoded-JSON values, which the
// schema validator requires.
func roundTrip(item csl.Item) (any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding item: %v", sources.ErrSchemaInvalid, err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: decoding item: %v", sources.ErrSchemaInvalid, err)
	}
	return instance, nil
}

func toItem(instance any) (csl.Item, error) {
	object, ok := instance.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: item is not an object", sources.ErrSchemaInvalid)
	}
	return csl.Item(object), nil
}
