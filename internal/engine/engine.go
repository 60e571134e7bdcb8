// Package engine orchestrates a processing run: load the CSV exports,
// resolve their addresses through the geocode cache, cluster, score, and
// build markers.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kwparking/parksafe/internal/address"
	"github.com/kwparking/parksafe/internal/dataset"
	"github.com/kwparking/parksafe/internal/geocache"
	"github.com/kwparking/parksafe/internal/marker"
	"github.com/kwparking/parksafe/internal/merge"
	"github.com/kwparking/parksafe/internal/model"
	"github.com/kwparking/parksafe/internal/observability"
	"github.com/kwparking/parksafe/internal/score"
)

const defaultWorkers = 8

// Status is the engine-level view of geocoding progress.
type Status struct {
	TotalAddresses   int  `json:"total_addresses"`
	Geocoded         int  `json:"geocoded"`
	Cached           int  `json:"cached"`
	Failed           int  `json:"failed"`
	GeocodingEnabled bool `json:"geocoding_enabled"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the resolution worker pool.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCityHint overrides the default city suffix for normalization.
func WithCityHint(hint string) Option {
	return func(e *Engine) {
		if hint != "" {
			e.cityHint = hint
		}
	}
}

// WithMerger replaces the default exact-address merger.
func WithMerger(m *merge.Merger) Option {
	return func(e *Engine) { e.merger = m }
}

// WithScorer replaces the default scorer.
func WithScorer(s *score.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithProgress registers a callback invoked after each address is processed
// during a run.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.onProgress = fn }
}

// Engine ties the pipeline stages together.
type Engine struct {
	loader     *dataset.Loader
	cache      *geocache.Cache
	merger     *merge.Merger
	scorer     *score.Scorer
	builder    *marker.Builder
	metrics    *observability.Metrics
	cityHint   string
	workers    int
	onProgress func(done, total int)
}

// New builds an Engine over a loader and a loaded cache.
func New(loader *dataset.Loader, cache *geocache.Cache, opts ...Option) *Engine {
	e := &Engine{
		loader:   loader,
		cache:    cache,
		scorer:   score.New(score.DefaultWeights()),
		builder:  marker.NewBuilder(),
		metrics:  observability.Nop(),
		cityHint: address.DefaultCityHint,
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.merger == nil {
		e.merger = merge.New(merge.WithCityHint(e.cityHint))
	}
	return e
}

// addresses loads the datasets and returns the sorted unique normalized
// addresses they reference.
func (e *Engine) addresses(ctx context.Context) ([]string, error) {
	records, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, raw := range dataset.UniqueAddresses(records) {
		seen[address.Normalize(raw, e.cityHint)] = struct{}{}
	}

	addrs := make([]string, 0, len(seen))
	for addr := range seen {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs, nil
}

// RunGeocoding resolves every dataset address through the cache with a
// bounded worker pool. Cancelling ctx stops new resolutions; attempts
// already in flight complete and their results are cached. Per-address
// failures never abort the run.
func (e *Engine) RunGeocoding(ctx context.Context, forceRefresh bool) (model.RunReport, error) {
	addrs, err := e.addresses(ctx)
	if err != nil {
		return model.RunReport{}, err
	}

	e.metrics.RunsTotal.Inc()
	zap.L().Info("geocoding run started",
		zap.Int("addresses", len(addrs)),
		zap.Bool("force_refresh", forceRefresh))

	// Detached from ctx so cancellation stops scheduling without killing
	// attempts that already reached the provider.
	resolveCtx := context.WithoutCancel(ctx)

	var (
		mu     sync.Mutex
		report model.RunReport
		done   int
		grp    errgroup.Group
	)
	grp.SetLimit(e.workers)

	for _, addr := range addrs {
		if ctx.Err() != nil {
			break
		}
		addr := addr
		grp.Go(func() error {
			entry, err := e.cache.Resolve(resolveCtx, addr, forceRefresh)

			mu.Lock()
			defer mu.Unlock()
			done++
			if e.onProgress != nil {
				e.onProgress(done, len(addrs))
			}
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", addr, err))
				return nil
			}
			if entry.Source == model.SourceAPI {
				report.NewlyResolved++
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return report, err
	}

	report.Processed = done
	sort.Strings(report.Errors)
	zap.L().Info("geocoding run finished",
		zap.Int("processed", report.Processed),
		zap.Int("newly_resolved", report.NewlyResolved),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Markers recomputes the full marker set from the datasets and the cache.
// It never resolves over the network; addresses without a cached coordinate
// are reported in the unresolved list.
func (e *Engine) Markers(ctx context.Context) ([]model.Marker, []model.UnresolvedAddress, error) {
	records, err := e.loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	clusters, unresolved := e.merger.Merge(records, e.cache.Lookup)
	scores := e.scorer.ScoreAll(clusters)
	markers := e.builder.BuildAll(clusters, scores)

	e.metrics.MarkersBuilt.Set(float64(len(markers)))
	return markers, unresolved, nil
}

// GeocodeSingle resolves one ad-hoc address. An empty or blank address is an
// input error and never reaches the network.
func (e *Engine) GeocodeSingle(ctx context.Context, rawAddr, cityHint string) (model.Coordinate, error) {
	if strings.TrimSpace(rawAddr) == "" {
		return model.Coordinate{}, &model.InputError{Field: "address", Reason: "must not be empty"}
	}
	if cityHint == "" {
		cityHint = e.cityHint
	}

	entry, err := e.cache.Resolve(ctx, address.Normalize(rawAddr, cityHint), false)
	if err != nil {
		return model.Coordinate{}, err
	}
	return entry.Coordinate(), nil
}

// Stats reports engine-level geocoding progress across the datasets.
func (e *Engine) Stats(ctx context.Context) (Status, error) {
	addrs, err := e.addresses(ctx)
	if err != nil {
		return Status{}, err
	}

	geocoded := 0
	for _, addr := range addrs {
		if _, ok := e.cache.Lookup(addr); ok {
			geocoded++
		}
	}

	cacheStats := e.cache.Stats()
	return Status{
		TotalAddresses:   len(addrs),
		Geocoded:         geocoded,
		Cached:           cacheStats.Cached,
		Failed:           cacheStats.Failed,
		GeocodingEnabled: e.cache.Available(),
	}, nil
}
