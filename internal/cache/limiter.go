package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimits caps request rates per citation source. NCBI asks for at
// most 3 requests per second without an API key; arXiv asks for one
// request every 3 seconds.
var DefaultLimits = map[string]rate.Limit{
	"doi":    rate.Limit(5),
	"pubmed": rate.Limit(2),
	"pmc":    rate.Limit(2),
	"arxiv":  rate.Every(3 * time.Second),
	"isbn":   rate.Limit(2),
	"url":    rate.Limit(2),
}

// Limiters holds one rate limiter per citation source. The zero limit
// for unknown prefixes is "no limit".
type Limiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiters builds limiters from a prefix to limit map; nil selects
// DefaultLimits.
func NewLimiters(limits map[string]rate.Limit) *Limiters {
	if limits == nil {
		limits = DefaultLimits
	}
	l := &Limiters{limiters: make(map[string]*rate.Limiter, len(limits))}
	for prefix, limit := range limits {
		l.limiters[prefix] = rate.NewLimiter(limit, 1)
	}
	return l
}

// Wait blocks until the prefix's limiter permits a request or ctx is
// done. Prefixes without a configured limit proceed immediately.
func (l *Limiters) Wait(ctx context.Context, prefix string) error {
	l.mu.Lock()
	limiter := l.limiters[prefix]
	l.mu.Unlock()
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// Set installs or replaces the limit for a prefix.
func (l *Limiters) Set(prefix string, limit rate.Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[prefix] = rate.NewLimiter(limit, 1)
}
