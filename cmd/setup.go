package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-grouper/internal/cache"
	"github.com/sells-group/venue-grouper/internal/campus"
	"github.com/sells-group/venue-grouper/internal/cost"
	"github.com/sells-group/venue-grouper/internal/session"
	"github.com/sells-group/venue-grouper/internal/store"
	"github.com/sells-group/venue-grouper/pkg/places"
)

// openStore creates the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite":
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// newPlacesClient builds a place-search client from configuration. Each
// session needs its own client so call counters and pacing stay per-session.
func newPlacesClient() (places.Client, error) {
	opts := []places.Option{
		places.WithCostRates(cfg.Pricing),
		places.WithPacing(
			time.Duration(cfg.Places.BaseDelayMillis)*time.Millisecond,
			time.Duration(cfg.Places.DelayIncrMillis)*time.Millisecond,
		),
	}
	if cfg.Places.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
	}
	return places.NewClient(cfg.Places.APIKey, opts...)
}

// sessionConfig resolves the session configuration. An explicit --mode flag
// selects its preset wholesale; otherwise the configured mode's preset is
// overlaid with the configured knobs. A non-negative budget flag always wins.
func sessionConfig(budgetFlag float64, modeFlag string) (session.Config, error) {
	var sc session.Config
	if modeFlag != "" {
		preset, err := session.PresetConfig(session.Mode(modeFlag))
		if err != nil {
			return session.Config{}, err
		}
		sc = preset
	} else {
		preset, err := session.PresetConfig(session.Mode(cfg.Session.Mode))
		if err != nil {
			return session.Config{}, err
		}
		sc = preset
		if cfg.Session.BudgetUSD >= 0 {
			sc.BudgetLimitUSD = cfg.Session.BudgetUSD
		}
		if cfg.Session.MaxPaidLocations > 0 {
			sc.MaxPaidLocations = cfg.Session.MaxPaidLocations
		}
		if cfg.Session.Tier != "" {
			sc.Tier = cost.Tier(cfg.Session.Tier)
		}
	}

	if budgetFlag >= 0 {
		sc.BudgetLimitUSD = budgetFlag
	}
	sc.CoarsenDecimals = cfg.Cache.CoarsenDecimals
	sc.CacheTTL = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	sc.PersistTTL = time.Duration(cfg.Cache.PersistTTLHours) * time.Hour
	return sc, nil
}

// newResultCache builds the in-memory cache tier from configuration.
func newResultCache() *cache.ResultCache {
	return cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
}

// loadCatalog builds the campus catalog: the embedded defaults merged with
// any configured YAML catalog and shapefile.
func loadCatalog() (*campus.Catalog, error) {
	catalog := campus.DefaultCatalog()
	if cfg.Campus.CatalogPath != "" {
		var err error
		catalog, err = campus.LoadYAML(cfg.Campus.CatalogPath)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Campus.ShapefilePath != "" {
		if err := campus.LoadShapefile(catalog, cfg.Campus.ShapefilePath); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
