package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/rentbench/fmr-cli/internal/cache"
	"github.com/rentbench/fmr-cli/internal/calc"
	"github.com/rentbench/fmr-cli/internal/lookup"
	"github.com/rentbench/fmr-cli/internal/params"
	"github.com/rentbench/fmr-cli/internal/store"
	"github.com/rentbench/fmr-cli/pkg/geocode"
)

// lookupEnv bundles the store, lookup service, and calculator parameter
// resolver shared by the lookup, calc, and serve commands.
type lookupEnv struct {
	store   store.Store
	svc     *lookup.Service
	resolve *params.Resolver
	cache   *cache.Redis
}

func (e *lookupEnv) Close() {
	_ = e.cache.Close()
	_ = e.store.Close()
}

// initLookupEnv opens the configured store and wires the lookup service
// with its optional Redis cache and the Census geocoder.
func initLookupEnv(ctx context.Context) (*lookupEnv, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: int32(cfg.Store.MaxConns),
	})
	if err != nil {
		return nil, err
	}

	// The geocode cache shares the store's pool on Postgres; SQLite
	// deployments geocode uncached.
	geo := geocode.New(cfg.Geocode.BaseURL, nil)
	if ps, ok := st.(*store.PostgresStore); ok {
		geo = geocode.New(cfg.Geocode.BaseURL, ps.Pool())
		if err := geo.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
	}

	redisCache := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.TTL)
	years := lookup.NewYearCache(cfg.Cache.YearTTL)
	svc := lookup.New(st, years, redisCache, geo)

	assumptions, err := loadAssumptions()
	if err != nil {
		st.Close()
		return nil, err
	}

	return &lookupEnv{
		store:   st,
		svc:     svc,
		resolve: params.NewResolver(st, assumptions),
		cache:   redisCache,
	}, nil
}

func loadAssumptions() (calc.Assumptions, error) {
	if cfg.Calc.PresetsPath == "" {
		return calc.DefaultAssumptions(), nil
	}
	a, err := calc.LoadAssumptions(cfg.Calc.PresetsPath)
	if err != nil {
		return a, eris.Wrap(err, "load calc presets")
	}
	return a, nil
}

// printJSON writes an indented result document to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
