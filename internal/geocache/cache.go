package geocache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kwparking/parksafe/internal/model"
	"github.com/kwparking/parksafe/internal/observability"
	"github.com/kwparking/parksafe/pkg/geocode"
)

// Resolver is the external resolution capability the cache delegates to on
// a miss. *geocode.Client satisfies it.
type Resolver interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
	Available() bool
}

// Cache maps normalized addresses to geocode entries. It loads the durable
// store once at start, answers lookups from memory, and writes through on
// each successful resolution, so a crash loses at most the entry in flight.
//
// Concurrent Resolve calls for one address are coalesced into a single
// provider call; calls for different addresses proceed independently.
type Cache struct {
	store   Store
	client  Resolver
	clock   clockwork.Clock
	metrics *observability.Metrics
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]model.GeocodeEntry
	loaded  int // entries present after Load

	group    singleflight.Group
	resolved atomic.Int64
	failed   atomic.Int64
	degraded atomic.Bool
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithClock injects a time source, for deterministic ResolvedAt in tests.
func WithClock(clock clockwork.Clock) CacheOption {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithTTL treats entries older than d as absent. Zero disables expiry.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a Cache over the given store and resolver. A nil client puts
// the cache in lookup-only mode: Resolve serves hits and returns a
// ConfigurationError on misses.
func New(store Store, client Resolver, opts ...CacheOption) *Cache {
	c := &Cache{
		store:   store,
		client:  client,
		clock:   clockwork.NewRealClock(),
		metrics: observability.Nop(),
		entries: make(map[string]model.GeocodeEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client != nil && c.client.Available() {
		c.metrics.GeocodeEnabled.Set(1)
	}
	return c
}

// Load reads all persisted entries into memory. A storage failure here is
// fatal for the run.
func (c *Cache) Load(ctx context.Context) error {
	entries, err := c.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = entries
	c.loaded = len(entries)
	c.mu.Unlock()

	zap.L().Info("geocode cache loaded", zap.Int("entries", len(entries)))
	return nil
}

// Lookup returns the cached entry for a normalized address. It never blocks
// on the network. Expired entries are treated as absent.
func (c *Cache) Lookup(addr string) (model.GeocodeEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[addr]
	c.mu.RUnlock()

	if !ok {
		return model.GeocodeEntry{}, false
	}
	if c.ttl > 0 && c.clock.Now().Sub(entry.ResolvedAt) > c.ttl {
		return model.GeocodeEntry{}, false
	}
	entry.Source = model.SourceCache
	return entry, true
}

// Resolve returns the cached entry unless forceRefresh is set or no entry
// exists; on a miss it delegates to the resolver and stores the entry before
// returning. At most one external call is in flight per address: concurrent
// callers for the same address wait for and share the in-flight result.
// Failures are returned typed and are never cached.
func (c *Cache) Resolve(ctx context.Context, addr string, forceRefresh bool) (model.GeocodeEntry, error) {
	entry, ok := c.Lookup(addr)
	if ok && !forceRefresh {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry, nil
	}
	if !ok {
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	// A forced resolve must not join an in-flight non-forced call, which
	// could hand back the very entry it was asked to replace.
	if forceRefresh {
		c.group.Forget(addr)
	}
	v, err, _ := c.group.Do(addr, func() (any, error) {
		// A coalesced waiter may arrive after the winner stored the entry.
		if !forceRefresh {
			if entry, ok := c.Lookup(addr); ok {
				return entry, nil
			}
		}
		return c.resolveMiss(ctx, addr)
	})
	if err != nil {
		return model.GeocodeEntry{}, err
	}
	return v.(model.GeocodeEntry), nil
}

func (c *Cache) resolveMiss(ctx context.Context, addr string) (model.GeocodeEntry, error) {
	if c.client == nil || !c.client.Available() {
		return model.GeocodeEntry{}, &model.ConfigurationError{
			Reason: "geocoding unavailable: no resolver configured",
		}
	}

	result, err := c.client.Geocode(ctx, addr)
	if err != nil {
		c.failed.Add(1)
		c.metrics.GeocodeRequests.WithLabelValues("failed").Inc()
		return model.GeocodeEntry{}, err
	}

	entry := model.GeocodeEntry{
		Address:    addr,
		Lat:        result.Lat,
		Lng:        result.Lng,
		ResolvedAt: c.clock.Now().UTC(),
		Source:     model.SourceAPI,
		Confidence: result.Confidence,
	}

	// A single write failure must not lose the resolution we paid for:
	// keep the entry in memory, flag degraded mode, and report it.
	if storeErr := c.store.Upsert(ctx, entry); storeErr != nil {
		c.degraded.Store(true)
		zap.L().Warn("geocode cache write failed, continuing in memory",
			zap.String("address", addr),
			zap.Error(storeErr),
		)
	}

	c.mu.Lock()
	c.entries[addr] = entry
	c.mu.Unlock()

	c.resolved.Add(1)
	c.metrics.GeocodeRequests.WithLabelValues("resolved").Inc()
	return entry, nil
}

// Stats returns read-only aggregates for observability.
func (c *Cache) Stats() model.CacheStats {
	c.mu.RLock()
	total := len(c.entries)
	loaded := c.loaded
	c.mu.RUnlock()

	return model.CacheStats{
		Total:           total,
		Cached:          loaded,
		ResolvedThisRun: int(c.resolved.Load()),
		Failed:          int(c.failed.Load()),
	}
}

// Degraded reports whether a durable write failed since start.
func (c *Cache) Degraded() bool {
	return c.degraded.Load()
}

// Available reports whether the cache can resolve new addresses.
func (c *Cache) Available() bool {
	return c.client != nil && c.client.Available()
}

// Entries returns a copy of all cached entries, sorted by nothing in
// particular; callers that need determinism sort themselves.
func (c *Cache) Entries() []model.GeocodeEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.GeocodeEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// Clear drops all entries from memory and the durable store.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	n, err := c.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.entries = make(map[string]model.GeocodeEntry)
	c.loaded = 0
	c.mu.Unlock()
	return n, nil
}

func (c *Cache) Close() error {
	return c.store.Close()
}
