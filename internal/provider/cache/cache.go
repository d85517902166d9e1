package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avstrong/tripwatch/internal/obs"
	"github.com/avstrong/tripwatch/internal/travel"
)

type entry struct {
	val     []travel.Record
	expiry  time.Time
	ready   bool
	waiters []chan result
}

type result struct {
	val []travel.Record
	err error
}

// Provider caches generic searches for a fixed TTL and collapses concurrent identical lookups.
// Flight and hotel searches pass straight through so monitors always see live prices.
type Provider struct {
	travel.CompositeProvider

	mu      sync.Mutex
	ttl     time.Duration
	items   map[string]*entry
	metrics *obs.Metrics
	now     func() time.Time
}

func New(next travel.CompositeProvider, ttl time.Duration, m *obs.Metrics) *Provider {
	return &Provider{
		CompositeProvider: next,
		ttl:               ttl,
		items:             make(map[string]*entry),
		metrics:           m,
		now:               time.Now,
	}
}

func (p *Provider) Search(ctx context.Context, query string, filters map[string]string) ([]travel.Record, error) {
	key := cacheKey(query, filters)

	p.mu.Lock()
	e, found := p.items[key]
	now := p.now()

	if found && e.ready && now.Before(e.expiry) {
		val := e.val
		p.mu.Unlock()
		p.metrics.IncCacheHits()

		return val, nil
	}

	if found && !e.ready {
		ch := make(chan result, 1)
		e.waiters = append(e.waiters, ch)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err() //nolint:wrapcheck
		case r := <-ch:
			// The leader's own cancellation says nothing about this caller.
			if isContextErr(r.err) && ctx.Err() == nil {
				return p.Search(ctx, query, filters)
			}

			return r.val, r.err
		}
	}

	e = &entry{}
	p.items[key] = e
	p.mu.Unlock()

	val, err := p.CompositeProvider.Search(ctx, query, filters)

	p.mu.Lock()
	waiters := e.waiters
	e.waiters = nil

	if err != nil {
		delete(p.items, key)
	} else {
		e.val = val
		e.expiry = p.now().Add(p.ttl)
		e.ready = true
	}
	p.mu.Unlock()

	for _, w := range waiters {
		w <- result{val: val, err: err}
		close(w)
	}

	return val, err //nolint:wrapcheck
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func cacheKey(query string, filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(query)

	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(filters[k])
	}

	return b.String()
}
