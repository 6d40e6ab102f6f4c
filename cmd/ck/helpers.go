package main

import (
	"golang.org/x/time/rate"

	"github.com/citekit/citekit/internal/bibliography"
	"github.com/citekit/citekit/internal/cache"
	"github.com/citekit/citekit/internal/citekey"
	"github.com/citekit/citekit/internal/config"
	"github.com/citekit/citekit/internal/resolve"
	"github.com/citekit/citekit/internal/sources"
)

// pipelineFlags are the knobs shared by cite and pdf commands.
type pipelineFlags struct {
	aliasesPath    string
	bibliographies []string
	noCache        bool
	noPrune        bool
	noInfer        bool
	fetchURLTitles bool
}

// buildPipeline assembles the resolution pipeline from flags and config.
func buildPipeline(flags pipelineFlags) (*resolve.Pipeline, *cache.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var aliases citekey.AliasTable
	if flags.aliasesPath != "" {
		aliases, err = citekey.LoadAliases(flags.aliasesPath)
		if err != nil {
			return nil, nil, err
		}
	}

	manual, err := bibliography.Load(flags.bibliographies, aliases)
	if err != nil {
		return nil, nil, err
	}

	registry := sources.NewRegistry(
		sources.WithNCBIAPIKey(cfg.NCBIAPIKey),
		sources.WithUserAgent(cfg.UserAgent),
		sources.WithURLTitleFetch(flags.fetchURLTitles || cfg.FetchURLTitles),
	)

	var store *cache.Store
	if !flags.noCache {
		store, err = cache.Open(cfg.CachePath(), limitersFrom(cfg))
		if err != nil {
			return nil, nil, err
		}
	}

	p := resolve.New(registry, store)
	p.Aliases = aliases
	p.ManualRefs = manual
	p.Prune = !flags.noPrune
	p.InferPrefix = !flags.noInfer
	return p, store, nil
}

// limitersFrom applies configured rate overrides on top of the defaults.
func limitersFrom(cfg *config.Config) *cache.Limiters {
	limiters := cache.NewLimiters(nil)
	for prefix, perSecond := range cfg.RateLimits {
		limiters.Set(prefix, rate.Limit(perSecond))
	}
	return limiters
}
