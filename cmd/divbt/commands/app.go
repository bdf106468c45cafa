package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/wonny/divbt/backend/internal/backtest"
	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/external/finmind"
	"github.com/wonny/divbt/backend/internal/external/tiingo"
	"github.com/wonny/divbt/backend/internal/external/twse"
	"github.com/wonny/divbt/backend/internal/marketdata"
	"github.com/wonny/divbt/backend/internal/store"
	"github.com/wonny/divbt/backend/internal/strategyconfig"
	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/httputil"
	"github.com/wonny/divbt/backend/pkg/logger"
	"github.com/wonny/divbt/backend/pkg/redis"
)

// listedMarket is the market whose listing dates come from the TWSE table
const listedMarket = "tw"

// app bundles the dependencies shared by commands
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	strategies *strategyconfig.Config
	store      store.Store
	redis      *redis.Client
	http       *httputil.Client
}

// loadConfig loads process config and applies global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}

	return cfg, logger.New(cfg), nil
}

// loadStrategies reads the strategy file, falling back to built-in profiles when it is missing
func loadStrategies(cfg *config.Config, log *logger.Logger) (*strategyconfig.Config, error) {
	sc, _, err := strategyconfig.Load(cfg.StrategyFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", cfg.StrategyFile).Warn("Strategy file not found, using built-in profiles")
		sc = strategyconfig.Default()
	} else if err != nil {
		return nil, err
	}

	for _, w := range strategyconfig.Warn(sc) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	return sc, nil
}

// newApp wires config, strategies, store and redis. memory forces the in-memory store.
func newApp(ctx context.Context, memory bool) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if memory {
		cfg.StoreDriver = config.StoreDriverMemory
	}

	sc, err := loadStrategies(cfg, log)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}

	return &app{
		cfg:        cfg,
		log:        log,
		strategies: sc,
		store:      s,
		redis:      rc,
		http:       httputil.New(cfg, log),
	}, nil
}

// Close releases the store and redis connections
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// cache returns the response cache shared by the API and scheduler
func (a *app) cache() *redis.Cache {
	return redis.NewCache(a.redis, "divbt")
}

// source returns the archived provider of a profile
func (a *app) source(profile *strategyconfig.Profile) (marketdata.Source, error) {
	var src marketdata.Source
	switch profile.Provider {
	case strategyconfig.ProviderTiingo:
		src = tiingo.NewClient(a.http, a.cfg.Tiingo, a.log)
	case strategyconfig.ProviderFinMind:
		src = finmind.NewClient(a.http, a.cfg.FinMind, a.log)
	default:
		return nil, fmt.Errorf("unknown provider %q for market %s", profile.Provider, profile.Market)
	}
	return marketdata.NewArchive(src, a.cfg.DataDir, profile.Market, a.cfg.ArchiveMaxAge, a.log), nil
}

// newLoader builds the bar loader of a profile. TW stocks start no earlier than their listing date.
func (a *app) newLoader(ctx context.Context, profile *strategyconfig.Profile) (backtest.BarLoader, error) {
	src, err := a.source(profile)
	if err != nil {
		return nil, err
	}

	loader := marketdata.NewLoader(src, profile.Strategy.CloseColumn, profile.Strategy.DividendColumn, a.log)
	if profile.Market != listedMarket {
		return loader, nil
	}

	listed, err := a.store.ListedCompanies(ctx, profile.Market)
	if err != nil {
		a.log.WithError(err).Warn("Failed to read listed companies, using profile start dates")
		return loader, nil
	}
	if len(listed) == 0 {
		a.log.Warn("No listed companies stored, run 'divbt listed fetch' to load listing dates")
	}
	return loader.WithListings(listed), nil
}

// loaderFactory adapts newLoader to the scheduler job signature
func (a *app) loaderFactory(profile *strategyconfig.Profile) func(ctx context.Context) (backtest.BarLoader, error) {
	return func(ctx context.Context) (backtest.BarLoader, error) {
		return a.newLoader(ctx, profile)
	}
}

// newRunner creates a profile runner persisting into the app store
func (a *app) newRunner() *backtest.Runner {
	engine := backtest.NewEngine(a.store, a.log)
	return backtest.NewRunner(engine, a.store, a.log, a.cfg.BacktestWorker)
}

// twseClient creates the listed company scraper
func (a *app) twseClient() *twse.Client {
	return twse.NewClient(a.http, a.cfg.TWSE, a.log)
}

// selectProfile returns a copy of a market profile narrowed to the given stocks and method.
// A narrowed profile never clears the market tables.
func selectProfile(sc *strategyconfig.Config, market, stocks, method string) (*strategyconfig.Profile, error) {
	base, err := sc.Profile(market)
	if err != nil {
		return nil, err
	}
	p := *base

	if method != "" {
		m, err := contracts.ParseMethod(method)
		if err != nil {
			return nil, err
		}
		p.Methods = []string{m.String()}
		p.ClearBeforeRun = false
	}

	if stocks != "" {
		names := make(map[string]string, len(base.Stocks))
		for _, s := range base.Stocks {
			names[s.ID] = s.Name
		}

		p.Stocks = nil
		for _, id := range strings.Split(stocks, ",") {
			if id = strings.TrimSpace(id); id != "" {
				p.Stocks = append(p.Stocks, strategyconfig.Stock{ID: id, Name: names[id]})
			}
		}
		if len(p.Stocks) == 0 {
			return nil, fmt.Errorf("--stock lists no stock ids")
		}
		p.ClearBeforeRun = false
	}

	return &p, nil
}

// staleMarketKeys lists the cached summary responses of a market
func staleMarketKeys(market string) []string {
	methods := append(contracts.MethodStrings(contracts.AllMethods()), "all")
	return redis.MarketKeys(market, methods)
}
