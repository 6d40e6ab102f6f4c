// Package citekey parses and standardizes citation keys.
//
// A citation key has the form "prefix:accession", where the prefix names
// the identifier namespace (doi, pubmed, pmc, arxiv, isbn, url, raw).
// Keys may also be bare aliases defined in an AliasTable, or prefix-less
// identifiers whose namespace is inferred from their shape.
package citekey

import (
	"fmt"
	"strings"
)

// AliasTable maps user-declared alias names to concrete citation keys.
// Aliases resolve in a single hop: a target must itself be a concrete
// prefix:accession key, not another alias.
type AliasTable map[string]string

// Key is a parsed citation key. StandardID is the canonical form used for
// deduplication, caching, and as the output item's id.
type Key struct {
	Input     string // the raw key as supplied
	Dealiased string // Input after alias expansion
	Prefix    string // lowercased prefix, or "" when unrecognized
	Accession string // identifier following the prefix

	StandardPrefix    string
	StandardAccession string
	StandardID        string
}

// TagPrefix marks keys that must resolve through the alias table.
const TagPrefix = "tag"

// RawPrefix marks keys passed through verbatim without any lookup.
const RawPrefix = "raw"

// Parse classifies input into a Key, expanding aliases and optionally
// inferring a prefix for bare identifiers. Parse never fails: keys that
// match no known namespace become raw keys. Use Inspect to detect
// malformed accessions for known namespaces.
func Parse(input string, aliases AliasTable, inferPrefix bool) Key {
	k := Key{Input: input, Dealiased: input}
	if target, ok := aliases[input]; ok {
		k.Dealiased = target
	}

	prefix, accession, found := strings.Cut(k.Dealiased, ":")
	if found && isKnownPrefix(strings.ToLower(prefix)) {
		k.Prefix = strings.ToLower(prefix)
		k.Accession = accession
	} else if inferPrefix {
		if inferred := inferredPrefix(k.Dealiased); inferred != "" {
			k.Prefix = inferred
			k.Accession = k.Dealiased
		}
	}

	if k.Prefix == "" {
		// Unrecognized keys pass through as raw, keeping the full
		// dealiased string as the accession.
		k.Prefix = RawPrefix
		k.Accession = k.Dealiased
	}

	k.standardize()
	return k
}

// IsTag reports whether the key is an unresolved alias reference:
// a tag: key whose alias expansion did not produce a concrete target.
func (k Key) IsTag() bool {
	return k.Prefix == TagPrefix
}

// Inspect checks the key's accession against its namespace's syntax
// rules. It returns "" when no problem is found, otherwise a description
// of the problem. No network calls are made.
func (k Key) Inspect() string {
	if k.IsTag() {
		return fmt.Sprintf("tag %q is not defined in the alias table", k.Dealiased)
	}
	rule, ok := rules[k.Prefix]
	if !ok || rule.inspect == nil {
		return ""
	}
	return rule.inspect(k.Accession)
}

// standardize sets the Standard* fields from the parsed prefix and
// accession by applying the namespace's normalization rule.
func (k *Key) standardize() {
	rule, ok := rules[k.Prefix]
	if !ok {
		k.StandardPrefix = k.Prefix
		k.StandardAccession = k.Accession
		k.StandardID = k.Dealiased
		return
	}
	k.StandardPrefix = rule.standardPrefix
	k.StandardAccession = k.Accession
	if rule.standardize != nil {
		k.StandardAccession = rule.standardize(k.Accession)
	}
	k.StandardID = k.StandardPrefix + ":" + k.StandardAccession
}
