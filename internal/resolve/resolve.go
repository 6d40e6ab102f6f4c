// Package resolve orchestrates batch citation resolution: it parses and
// deduplicates citation keys, fetches metadata through the cache layer,
// applies manual reference overrides, and validates the resulting CSL
// items. Per-key failures never abort a batch; failed keys yield stub
// items carrying an error annotation.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/citekit/citekit/internal/cache"
	"github.com/citekit/citekit/internal/citekey"
	"github.com/citekit/citekit/internal/csl"
	"github.com/citekit/citekit/internal/schema"
	"github.com/citekit/citekit/internal/sources"
)

// DefaultConcurrency bounds parallel fetches in a batch.
const DefaultConcurrency = 4

// Pipeline resolves batches of citation keys into CSL items.
type Pipeline struct {
	Registry *sources.Registry
	// Cache holds fetched responses; nil disables caching.
	Cache *cache.Store
	// Validator checks items against the CSL schema; nil compiles the
	// embedded schema on first use.
	Validator *schema.Validator

	Aliases citekey.AliasTable
	// ManualRefs overrides fetching for matching standard ids.
	ManualRefs map[string]csl.Item
	// ExtraItems are caller-supplied references that override everything,
	// including ManualRefs.
	ExtraItems []csl.Item

	// InferPrefix enables namespace inference for bare identifiers.
	InferPrefix bool
	// Prune removes schema-violating fields from resolved items.
	Prune       bool
	Concurrency int
}

// New returns a Pipeline with default behavior: prefix inference and
// schema pruning on, bounded concurrency.
func New(registry *sources.Registry, store *cache.Store) *Pipeline {
	return &Pipeline{
		Registry:    registry,
		Cache:       store,
		InferPrefix: true,
		Prune:       true,
		Concurrency: DefaultConcurrency,
	}
}

// Citation is the resolution outcome for one distinct standard key.
type Citation struct {
	StandardID string
	ShortID    string
	// Keys lists every input key that mapped to this standard id, in
	// input order.
	Keys []citekey.Key
	Item csl.Item
	// Err is the terminal per-key error, also annotated in Item's note.
	Err error
}

// Result holds one Citation per distinct standard key, ordered by first
// occurrence in the input.
type Result struct {
	Citations []Citation
}

// Items returns the resolved CSL items in citation order.
func (r *Result) Items() []csl.Item {
	items := make([]csl.Item, 0, len(r.Citations))
	for _, c := range r.Citations {
		items = append(items, c.Item)
	}
	return items
}

// Resolve processes a batch of citation keys. Duplicate inputs and
// aliases of the same target collapse into a single citation positioned
// at first occurrence. Every distinct standard key yields exactly one
// item; a cancelled context leaves stubs for keys not yet fetched.
func (p *Pipeline) Resolve(ctx context.Context, inputs []string) (*Result, error) {
	validator := p.Validator
	if validator == nil {
		v, err := schema.New()
		if err != nil {
			return nil, err
		}
		validator = v
	}
	manual, err := p.manualItems()
	if err != nil {
		return nil, err
	}

	citations := p.group(inputs)

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range citations {
		c := &citations[i]
		g.Go(func() error {
			p.resolveOne(gctx, validator, manual, c)
			return nil
		})
	}
	_ = g.Wait() // per-key errors are recorded on the citations

	return &Result{Citations: citations}, nil
}

// group parses, deduplicates, and orders the input keys.
func (p *Pipeline) group(inputs []string) []Citation {
	seen := make(map[string]bool)
	index := make(map[string]int)
	var citations []Citation
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" || seen[input] {
			continue
		}
		seen[input] = true
		key := citekey.Parse(input, p.Aliases, p.InferPrefix)
		if i, ok := index[key.StandardID]; ok {
			citations[i].Keys = append(citations[i].Keys, key)
			continue
		}
		index[key.StandardID] = len(citations)
		citations = append(citations, Citation{
			StandardID: key.StandardID,
			ShortID:    citekey.Shorten(key.StandardID),
			Keys:       []citekey.Key{key},
		})
	}
	return citations
}

// manualItems merges file-loaded manual references with inline extra
// items, the latter winning on id collisions.
func (p *Pipeline) manualItems() (map[string]csl.Item, error) {
	manual := make(map[string]csl.Item, len(p.ManualRefs)+len(p.ExtraItems))
	for id, item := range p.ManualRefs {
		manual[id] = item
	}
	for _, item := range p.ExtraItems {
		id := item.ID()
		if id == "" {
			return nil, fmt.Errorf("inline reference without an id: %v", item)
		}
		key := citekey.Parse(id, p.Aliases, p.InferPrefix)
		manual[key.StandardID] = item
	}
	return manual, nil
}

// resolveOne fills in the citation's Item, or a stub plus Err on failure.
func (p *Pipeline) resolveOne(ctx context.Context, validator *schema.Validator, manual map[string]csl.Item, c *Citation) {
	item, err := p.itemFor(ctx, manual, c.Keys[0])
	if err == nil {
		item.SetID(c.StandardID)
		item, err = validator.Clean(item, p.Prune)
	}
	if err != nil {
		slog.Warn("citation resolution failed",
			"citekey", c.Keys[0].Input,
			"standard_id", c.StandardID,
			"error", err)
		c.Err = err
		item = csl.Item{"id": c.StandardID, "type": csl.DefaultType}
		item.NoteAppendPairs(map[string]string{
			"resolution_error": sources.ErrorKind(err),
		})
	}
	p.annotate(item, c)
	c.Item = item
}

// annotate records provenance in the item's note using the cheater
// syntax: the standard id, the original input when it differs, and the
// short id for citation markers that cannot carry punctuation.
func (p *Pipeline) annotate(item csl.Item, c *Citation) {
	pairs := map[string]string{
		"standard_id": c.StandardID,
		"short_id":    c.ShortID,
	}
	order := []string{"standard_id", "original_id", "short_id"}
	if input := c.Keys[0].Input; input != c.StandardID {
		pairs["original_id"] = input
	}
	item.NoteAppendPairs(pairs, order...)
}

// itemFor produces the draft item for a key: manual references first,
// then tag and syntax checks, then a cache-guarded fetch.
func (p *Pipeline) itemFor(ctx context.Context, manual map[string]csl.Item, key citekey.Key) (csl.Item, error) {
	if item, ok := manual[key.StandardID]; ok {
		return item.Clone(), nil
	}
	if key.IsTag() {
		return nil, fmt.Errorf("%s: %w", key.Inspect(), sources.ErrUnknownAlias)
	}
	if problem := key.Inspect(); problem != "" {
		return nil, fmt.Errorf("%s: %w", problem, sources.ErrInvalidAccession)
	}

	resolver, ok := p.Registry.Lookup(key.StandardPrefix)
	if !ok {
		return nil, fmt.Errorf("no source for prefix %q: %w", key.StandardPrefix, sources.ErrInvalidAccession)
	}

	// Raw keys synthesize a stub locally; there is nothing to cache.
	if key.StandardPrefix == citekey.RawPrefix {
		return resolver.Resolve(ctx, key.StandardAccession)
	}

	fetch := func(ctx context.Context) (csl.Item, error) {
		return resolver.Resolve(ctx, key.StandardAccession)
	}
	if p.Cache != nil {
		return p.Cache.GetOrFetch(ctx, key.StandardPrefix, key.StandardAccession, fetch)
	}
	return fetch(ctx)
}
