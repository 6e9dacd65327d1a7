package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apppricing "github.com/erp/marketsync/internal/application/pricing"
	"github.com/erp/marketsync/internal/domain/pricing"
	kinds "github.com/erp/marketsync/internal/domain/shared/strategy"
	"github.com/erp/marketsync/internal/infrastructure/auth"
	"github.com/erp/marketsync/internal/infrastructure/cache"
	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/ecommerce"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/infrastructure/persistence"
	"github.com/erp/marketsync/internal/infrastructure/strategy"
	"github.com/erp/marketsync/internal/infrastructure/telemetry"
	"github.com/erp/marketsync/internal/interfaces/http/handler"
	"github.com/erp/marketsync/internal/interfaces/http/middleware"
	"github.com/erp/marketsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	obs, bridged, err := setupTelemetry(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = bridged
	defer obs.shutdown(context.Background(), log)

	log.Info("Starting marketsync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	health := handler.NewHealthHandler(version)

	// The database only backs the key-value store
	factoryOpts := []cache.StoreFactoryOption{
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Cache.AllowInMemoryFallback),
	}
	if cfg.Cache.Backend == config.CacheBackendDatabase {
		db, err := persistence.Open(context.Background(), &cfg.Database, persistence.WithLogger(log, cfg.Log.Level))
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		if obs.providers.TracingEnabled() {
			if err := telemetry.RegisterGormTracing(db.DB, cfg.Database.DBName); err != nil {
				log.Warn("Database tracing disabled", zap.Error(err))
			}
		}
		health.AddCheck("database", db.Ping)
		factoryOpts = append(factoryOpts, cache.WithDatabase(db.DB))
		log.Info("Database connected successfully")
	}

	store, err := cache.NewStoreFactory(cfg.Cache, cfg.Redis, factoryOpts...).CreateStore()
	if err != nil {
		log.Fatal("Failed to create key-value store", zap.Error(err))
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("Error closing key-value store", zap.Error(err))
			}
		}()
	}

	catalog := newCatalog(cfg, log)

	registry, err := strategy.NewRegistryWithDefaults(cfg.Pricing.MinStockShare)
	if err != nil {
		log.Fatal("Failed to register pricing strategies", zap.Error(err))
	}
	formula, err := registry.PriceFormula(cfg.Pricing.Formula)
	if err != nil {
		log.Fatal("Unknown price formula",
			zap.String("formula", cfg.Pricing.Formula),
			zap.Strings("available", registry.Names(kinds.KindPriceFormula)),
			zap.Error(err))
	}
	selector, err := registry.ChannelSelector(cfg.Pricing.ChannelStrategy)
	if err != nil {
		log.Fatal("Unknown channel strategy",
			zap.String("strategy", cfg.Pricing.ChannelStrategy),
			zap.Strings("available", registry.Names(kinds.KindChannelSelection)),
			zap.Error(err))
	}

	coeffs := obtainCoefficients(cfg.Pricing.Obtain)
	solver := pricing.NewMarginTieringSolver(
		formula,
		pricing.NewInitialPercentEstimator(seedCurve(cfg.Pricing)),
		pricing.SolverConfig{
			MinProfit:     cfg.Pricing.MinProfit,
			Step:          cfg.Pricing.PercentStep,
			MaxIterations: cfg.Pricing.MaxStageIterations,
		},
	)

	var catalogClient pricing.CatalogClient
	if catalog != nil {
		catalogClient = catalog
	}
	resolver := apppricing.NewCommissionResolver(store, catalogClient, log.Named("commissions"))
	optimizer := apppricing.NewBatchPriceOptimizer(
		resolver,
		selector,
		pricing.DefaultLogisticsTariffTable(),
		solver,
		coeffs,
		apppricing.WithCatalog(catalogClient),
		apppricing.WithFaultPolicy(apppricing.FaultPolicy(cfg.Pricing.FaultPolicy)),
		apppricing.WithOptimizerLogger(log.Named("optimizer")),
		apppricing.WithOptimizerMetrics(obs.metrics),
	)
	scanner := apppricing.NewUnprofitabilityScanner(formula, coeffs, log.Named("scanner")).
		WithMetrics(obs.metrics)

	log.Info("Pricing configured",
		zap.String("formula", formula.Name()),
		zap.String("channel_strategy", selector.Name()),
		zap.String("fault_policy", cfg.Pricing.FaultPolicy),
		zap.Bool("catalog", catalog != nil),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.App.Name, obs.providers.TracingEnabled())...)
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths("/health")))

	health.RegisterRoutes(engine)

	var writeGuards []gin.HandlerFunc
	if cfg.Auth.Enabled() {
		writeGuards = append(writeGuards, middleware.RequireScope(auth.NewTokenService(cfg.Auth), auth.ScopeCommissionsWrite))
	} else {
		log.Warn("auth.secret is empty, commission writes are not authenticated")
	}

	commissionHandler := handler.NewCommissionHandler(resolver)
	pricingHandler := handler.NewPricingHandler(optimizer, scanner)
	routes := router.New(engine).
		Add(
			commissionHandler.Routes(),
			commissionHandler.WriteRoutes(writeGuards...),
			commissionHandler.TypeIDRoutes(),
			pricingHandler.Routes(),
		).
		Setup()
	for _, rt := range routes {
		log.Debug("Route mounted", zap.String("group", rt.Group), zap.String("method", rt.Method), zap.String("path", rt.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// batch pricing of a few thousand SKUs can take a while
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newCatalog returns nil when no marketplace credentials are configured.
// Without a catalog the service prices from cached data only.
func newCatalog(cfg *config.Config, log *zap.Logger) *ecommerce.MarketplaceAdapter {
	if cfg.Marketplace.ClientID == "" || cfg.Marketplace.APIKey == "" {
		log.Warn("Marketplace credentials not set, catalog lookups disabled")
		return nil
	}

	mcfg := ecommerce.NewMarketplaceConfig(cfg.Marketplace.ClientID, cfg.Marketplace.APIKey)
	if cfg.Marketplace.BaseURL != "" {
		mcfg.BaseURL = cfg.Marketplace.BaseURL
	}
	if cfg.Marketplace.Timeout > 0 {
		mcfg.Timeout = cfg.Marketplace.Timeout
	}

	adapter, err := ecommerce.NewMarketplaceAdapter(mcfg)
	if err != nil {
		log.Fatal("Invalid marketplace configuration", zap.Error(err))
	}
	return adapter
}

func obtainCoefficients(c config.ObtainConfig) pricing.ObtainCoefficients {
	return pricing.ObtainCoefficients{
		DeliveryToBasePercent: c.DeliveryToBasePercent,
		AcquiringPercent:      c.AcquiringPercent,
		HandlingFee:           c.HandlingFee,
		TaxUnit:               c.TaxUnit,
		MinDeliveryFee:        c.MinDeliveryFee,
		LabelFee:              c.LabelFee,
	}
}

func seedCurve(c config.PricingConfig) pricing.SeedCurve {
	return pricing.SeedCurve{
		MarginFloor:     c.MarginFloor,
		MarginTarget:    c.MarginTarget,
		SmoothingOffset: c.SmoothingOffset,
		FallbackWas:     c.FallbackWas,
		FallbackNormal:  c.FallbackNormal,
		FallbackFloor:   c.FallbackFloor,
	}
}
