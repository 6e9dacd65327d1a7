package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	apppricing "github.com/erp/marketsync/internal/application/pricing"
	"github.com/erp/marketsync/internal/domain/pricing"
	"github.com/erp/marketsync/internal/infrastructure/auth"
	"github.com/erp/marketsync/internal/infrastructure/cache"
	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/ecommerce"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		logLevel string
		timeout  time.Duration
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for the whole command")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Debug("pricectl started", zap.String("command", command), zap.String("cache_backend", cfg.Cache.Backend))

	if command == "token" {
		if len(args) < 2 {
			log.Fatal("Subject required. Usage: pricectl token <subject>")
		}
		if !cfg.Auth.Enabled() {
			log.Fatal("auth.secret is not configured, the server accepts unauthenticated writes")
		}
		token, err := auth.NewTokenService(cfg.Auth).Issue(args[1], auth.ScopeCommissionsWrite)
		if err != nil {
			log.Fatal("Failed to issue token", zap.Error(err))
		}
		log.Info("Token issued",
			zap.String("subject", args[1]),
			zap.Duration("ttl", cfg.Auth.TokenTTL),
			zap.String("scope", auth.ScopeCommissionsWrite),
		)
		fmt.Println(token)
		return
	}

	// migrate only needs the database
	if command == "migrate" {
		db, err := persistence.Open(ctx, &cfg.Database, persistence.WithLogger(log, logLevel))
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := persistence.NewKVStore(db.DB).Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("cache_entries table is up to date")
		return
	}

	store := openStore(ctx, cfg, log)
	resolver := apppricing.NewCommissionResolver(store, newCatalog(cfg, log), log)

	switch command {
	case "import":
		if len(args) < 2 {
			log.Fatal("Workbook path required. Usage: pricectl import <commissions.xlsx>")
		}
		f, err := os.Open(args[1])
		if err != nil {
			log.Fatal("Failed to open workbook", zap.Error(err))
		}
		defer f.Close()

		result, err := resolver.LoadCommissionsFromXlsx(ctx, f)
		if result != nil {
			printJSON(result)
		}
		if err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
		log.Info("Commissions imported",
			zap.Int("loaded", result.Loaded),
			zap.Int("unmatched", len(result.Unmatched)),
			zap.Int("malformed", len(result.Malformed)),
		)

	case "commission":
		if len(args) < 2 {
			log.Fatal("Category id required. Usage: pricectl commission <categoryId>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Fatal("Invalid category id", zap.String("value", args[1]))
		}
		entry, err := resolver.GetCommission(ctx, id)
		if err != nil {
			log.Fatal("Commission lookup failed", zap.Int64("category_id", id), zap.Error(err))
		}
		printJSON(entry)

	case "type-id":
		if len(args) < 2 {
			log.Fatal("Offer id required. Usage: pricectl type-id <offerId>")
		}
		id, err := resolver.GetTypeID(ctx, args[1])
		if err != nil {
			log.Fatal("Category lookup failed", zap.String("offer_id", args[1]), zap.Error(err))
		}
		fmt.Println(id)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// openStore never falls back to memory: whatever pricectl writes must outlive it
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) pricing.KeyValueStore {
	opts := []cache.StoreFactoryOption{
		cache.WithLogger(log),
		cache.WithInMemoryFallback(false),
	}
	if cfg.Cache.Backend == config.CacheBackendMemory {
		log.Warn("memory cache backend selected, nothing will be persisted")
	}
	if cfg.Cache.Backend == config.CacheBackendDatabase {
		db, err := persistence.Open(ctx, &cfg.Database, persistence.WithLogger(log, "warn"))
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		opts = append(opts, cache.WithDatabase(db.DB))
	}

	store, err := cache.NewStoreFactory(cfg.Cache, cfg.Redis, opts...).CreateStore()
	if err != nil {
		log.Fatal("Failed to open key-value store", zap.Error(err))
	}
	return store
}

func newCatalog(cfg *config.Config, log *zap.Logger) pricing.CatalogClient {
	if cfg.Marketplace.ClientID == "" || cfg.Marketplace.APIKey == "" {
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

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printUsage() {
	fmt.Println(`marketsync pricing control tool

Usage:
  pricectl [flags] <command> [arguments]

Commands:
  migrate               Create the cache_entries table for the database cache backend
  import <file.xlsx>    Load category commissions from a marketplace commission workbook
  commission <id>       Print the cached commission of a category
  type-id <offerId>     Resolve the category of a SKU (cache, then marketplace)
  token <subject>       Issue a bearer token for the commission write endpoints

Flags:
  -log-level string     Log level: debug, info, warn, error (default: info)
  -timeout duration     Timeout for the whole command (default: 5m)

Environment Variables:
  MARKETSYNC_CACHE_BACKEND, MARKETSYNC_REDIS_HOST, MARKETSYNC_DATABASE_HOST,
  MARKETSYNC_MARKETPLACE_CLIENT_ID, MARKETSYNC_MARKETPLACE_API_KEY, MARKETSYNC_AUTH_SECRET

Examples:
  # Refresh commissions after the marketplace publishes a new tariff
  pricectl import commissions.xlsx

  # Check what the optimizer will charge for a category
  pricectl commission 91565`)
}
