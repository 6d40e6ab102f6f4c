// Package csl defines CSL JSON items, the common schema every metadata
// source is normalized into. An Item is an open field mapping rather than
// a fixed struct because upstream services return wildly different field
// sets and the CSL schema itself allows many optional variables.
package csl

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// DefaultType is assigned to items that arrive without a CSL type.
const DefaultType = "document"

// Item is a single CSL JSON bibliographic record.
type Item map[string]any

// typeCorrections maps CSL types emitted by some upstream services
// (notably Crossref) to their valid CSL JSON Schema equivalents.
// See https://github.com/CrossRef/rest-api-doc/issues/187
var typeCorrections = map[string]string{
	"journal-article":     "article-journal",
	"book-chapter":        "chapter",
	"posted-content":      "manuscript",
	"proceedings-article": "paper-conference",
	"standard":            "entry",
	"reference-entry":     "entry",
}

// Clone returns a deep copy of the item via JSON round-trip.
func (it Item) Clone() Item {
	data, err := json.Marshal(it)
	if err != nil {
		out := make(Item, len(it))
		for k, v := range it {
			out[k] = v
		}
		return out
	}
	var out Item
	if err := json.Unmarshal(data, &out); err != nil {
		return it
	}
	return out
}

// ID returns the item's id field, or "" when unset.
func (it Item) ID() string {
	id, _ := it["id"].(string)
	return id
}

// SetID sets the item's id field.
func (it Item) SetID(id string) Item {
	it["id"] = id
	return it
}

// Type returns the item's CSL type, or "" when unset.
func (it Item) Type() string {
	t, _ := it["type"].(string)
	return t
}

// CorrectInvalidType rewrites known-invalid type values in place.
// Items without a type are left alone.
func (it Item) CorrectInvalidType() Item {
	if t, ok := it["type"].(string); ok {
		if corrected, known := typeCorrections[t]; known {
			it["type"] = corrected
		}
	}
	return it
}

// SetDefaultType assigns DefaultType when the item has no type,
// since the CSL schema requires one.
func (it Item) SetDefaultType() Item {
	if _, ok := it["type"].(string); !ok {
		it["type"] = DefaultType
	}
	return it
}

// SetDate assigns a CSL date variable (e.g. "issued") parsed from an ISO
// style date string: YYYY, YYYY-MM, or YYYY-MM-DD. Unparsable dates are
// ignored rather than producing a partial field.
func (it Item) SetDate(date, variable string) Item {
	parts := DateToDateParts(date)
	if parts != nil {
		it[variable] = map[string]any{"date-parts": []any{parts}}
	}
	return it
}

// Note returns the item's note field as a string, or "" when unset.
func (it Item) Note() string {
	note, _ := it["note"].(string)
	return note
}

var noteLinePattern = regexp.MustCompile(`(?m)^([A-Z]+|[-_a-z]+): *(.+?) *$`)
var noteBracePattern = regexp.MustCompile(`{:([A-Z]+|[-_a-z]+): *(.+?) *}`)
var noteKeyPattern = regexp.MustCompile(`^[A-Z]+$|^[-_a-z]+$`)

// NoteDict extracts key-value pairs encoded in the note field using the
// CSL JSON "cheater syntax": both "key: value" lines and "{:key: value}"
// braced entries.
// https://github.com/Juris-M/citeproc-js-docs/blob/master/csl-json/markup.rst
func (it Item) NoteDict() map[string]string {
	note := it.Note()
	dict := make(map[string]string)
	for _, m := range noteLinePattern.FindAllStringSubmatch(note, -1) {
		dict[m[1]] = m[2]
	}
	for _, m := range noteBracePattern.FindAllStringSubmatch(note, -1) {
		dict[m[1]] = m[2]
	}
	return dict
}

// NoteAppendText appends text as a new line of the note field.
// A line identical to text is not added twice.
func (it Item) NoteAppendText(text string) {
	if text == "" {
		return
	}
	note := it.Note()
	for _, line := range strings.Split(note, "\n") {
		if line == text {
			return
		}
	}
	if note != "" && !strings.HasSuffix(note, "\n") {
		note += "\n"
	}
	it["note"] = note + text
}

// NoteAppendPairs appends key-value pairs to the note field using the
// line form of the cheater syntax. Keys that do not conform to the CSL
// variable-name syntax and values containing newlines are skipped.
func (it Item) NoteAppendPairs(pairs map[string]string, order ...string) {
	if len(order) == 0 {
		for key := range pairs {
			order = append(order, key)
		}
	}
	for _, key := range order {
		value, ok := pairs[key]
		if !ok {
			continue
		}
		if !noteKeyPattern.MatchString(key) || strings.Contains(value, "\n") {
			continue
		}
		it.NoteAppendText(fmt.Sprintf("%s: %s", key, value))
	}
}
