package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diamondsistem/offerpricing/internal/cache"
	"github.com/diamondsistem/offerpricing/internal/catalog"
	"github.com/diamondsistem/offerpricing/internal/config"
	"github.com/diamondsistem/offerpricing/internal/db"
	"github.com/diamondsistem/offerpricing/internal/financing"
	"github.com/diamondsistem/offerpricing/internal/handlers"
	"github.com/diamondsistem/offerpricing/internal/logging"
	"github.com/diamondsistem/offerpricing/internal/pricing"
	"github.com/diamondsistem/offerpricing/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	QuoteService  *services.QuoteService
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := initSentry(cfg); err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, logging.Options{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		ReportErrors: cfg.SentryDSN != "",
	})

	snapshot, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "version", snapshot.Version())

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
		Size:                  cfg.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	var (
		database *pgxpool.Pool
		store    services.QuoteRepository
	)
	switch cfg.QuoteStoreProvider {
	case "postgres":
		database, err = db.Connect(startupCtx, cfg.DatabaseURL, db.ConnectOptions{
			Logger:    logger,
			SlowQuery: 250 * time.Millisecond,
		})
		if err != nil {
			closeCacheProvider(logger, cacheProvider)
			return nil, err
		}
		if err := db.Migrate(startupCtx, database); err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, err
		}
		store = db.NewQuoteStore(database)
	default:
		logger.Warn("accepted quotes are kept in memory and lost on restart")
		store = db.NewMemoryQuoteStore()
	}

	quoteService, err := services.NewQuoteService(snapshot, cacheProvider, store, services.QuoteServiceConfig{
		Pricing: pricing.Options{
			Rates:         pricing.RatesFromPercent(cfg.TaxRatePercent, cfg.ServiceFeePercent),
			Curfew:        cfg.CurfewCutoff(),
			EarliestStart: cfg.EarliestStartTime(),
		},
		Terms: financing.TermsFromPercent(
			cfg.DepositAmount,
			cfg.SecondPaymentAmount,
			cfg.MaxFinancingMonths,
			cfg.CardSurchargePercent,
			cfg.CommissionPercent,
		),
		DraftTTL: cfg.QuoteTTL,
	}, logger.With("component", "quote_service"))
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeDB(database)
		return nil, fmt.Errorf("failed to initialize quote service: %w", err)
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:       cfg,
		QuoteService: quoteService,
		HealthChecks: map[string]handlers.Pinger{
			"cache":       cacheProvider,
			"quote_store": store,
		},
		Logger: logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeDB(database)
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		QuoteService:  quoteService,
		Handlers:      h,
	}, nil
}

// ReloadCatalog re-reads the catalog file. On failure the current catalog stays in place.
func (a *App) ReloadCatalog() error {
	snapshot, err := catalog.Load(a.Config.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := a.QuoteService.Reload(snapshot); err != nil {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	closeDB(a.DB)
	sentry.Flush(2 * time.Second)
}

func initSentry(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

func closeDB(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
