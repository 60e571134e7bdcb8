package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kwparking/parksafe/internal/dataset"
	"github.com/kwparking/parksafe/internal/engine"
	"github.com/kwparking/parksafe/internal/geocache"
	"github.com/kwparking/parksafe/internal/merge"
	"github.com/kwparking/parksafe/internal/model"
	"github.com/kwparking/parksafe/internal/observability"
	"github.com/kwparking/parksafe/internal/resilience"
	"github.com/kwparking/parksafe/internal/score"
	"github.com/kwparking/parksafe/pkg/geocode"
)

// env bundles the wired components a command needs.
type env struct {
	Engine  *engine.Engine
	Cache   *geocache.Cache
	Metrics *observability.Metrics
	Reg     *prometheus.Registry
}

func (e *env) Close() {
	if err := e.Cache.Close(); err != nil {
		zap.L().Warn("cache close failed", zap.Error(err))
	}
}

// initStore opens the configured cache backend and migrates its schema.
func initStore(ctx context.Context) (geocache.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := geocache.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := geocache.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv wires store, cache, geocode client, and engine from config.
// Extra engine options are appended after the configured ones.
func initEnv(ctx context.Context, engOpts ...engine.Option) (*env, error) {
	store, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	provider := geocode.NewGoogleProvider(cfg.Geocoding.APIKey)
	if !provider.Available() {
		zap.L().Warn("no geocoding API key configured, serving cached results only")
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Geocoding.MaxAttempts
	retry.OnAttempt = resilience.RetryLogger("geocode", "resolve")
	client := geocode.NewClient(provider,
		geocode.WithRateLimit(cfg.Geocoding.RequestsPerSecond),
		geocode.WithRetryConfig(retry),
	)

	cache := geocache.New(store, client,
		geocache.WithMetrics(metrics),
		geocache.WithTTL(time.Duration(cfg.Store.TTLDays)*24*time.Hour),
	)
	if err := cache.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	loader := dataset.NewLoader(datasetSources()...)

	mergeOpts := []merge.Option{merge.WithCityHint(cfg.Geocoding.CityHint)}
	if cfg.Merge.RadiusM > 0 {
		mergeOpts = append(mergeOpts, merge.WithRadius(cfg.Merge.RadiusM))
	}

	opts := []engine.Option{
		engine.WithWorkers(cfg.Run.Workers),
		engine.WithCityHint(cfg.Geocoding.CityHint),
		engine.WithMerger(merge.New(mergeOpts...)),
		engine.WithScorer(score.New(score.Weights{
			Infraction:         cfg.Score.InfractionWeight,
			StreetParkingBonus: cfg.Score.StreetParkingBonus,
			LotBonus:           cfg.Score.LotBonus,
		})),
		engine.WithMetrics(metrics),
	}
	opts = append(opts, engOpts...)
	eng := engine.New(loader, cache, opts...)

	return &env{Engine: eng, Cache: cache, Metrics: metrics, Reg: reg}, nil
}

func datasetSources() []dataset.Source {
	return []dataset.Source{
		{Kind: model.KindInfraction, Path: filepath.Join(cfg.Datasets.Dir, cfg.Datasets.Infractions)},
		{Kind: model.KindStreetParking, Path: filepath.Join(cfg.Datasets.Dir, cfg.Datasets.StreetParking)},
		{Kind: model.KindLot, Path: filepath.Join(cfg.Datasets.Dir, cfg.Datasets.Lots)},
	}
}
