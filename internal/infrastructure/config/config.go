package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Marketplace MarketplaceConfig
	Pricing     PricingConfig
	Telemetry   TelemetryConfig
	Auth        AuthConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// CacheConfig selects the key-value backend of the commission and category caches
type CacheConfig struct {
	Backend               string // redis, database, memory
	KeyPrefix             string
	AllowInMemoryFallback bool
}

// MarketplaceConfig holds the marketplace seller API settings
type MarketplaceConfig struct {
	BaseURL  string
	ClientID string
	APIKey   string
	Timeout  time.Duration
}

// ObtainConfig holds the global deductions the marketplace applies to a sale
type ObtainConfig struct {
	DeliveryToBasePercent decimal.Decimal
	AcquiringPercent      decimal.Decimal
	HandlingFee           decimal.Decimal
	TaxUnit               decimal.Decimal
	MinDeliveryFee        decimal.Decimal
	LabelFee              decimal.Decimal
}

// PricingConfig holds the knobs of the price tiering engine
type PricingConfig struct {
	MinProfit          decimal.Decimal
	MinStockShare      decimal.Decimal
	PercentStep        int
	MaxStageIterations int
	MarginFloor        decimal.Decimal
	MarginTarget       decimal.Decimal
	SmoothingOffset    decimal.Decimal
	FallbackWas        int
	FallbackNormal     int
	FallbackFloor      int
	Formula            string
	ChannelStrategy    string
	FaultPolicy        string // skip_item, abort_batch
	Obtain             ObtainConfig
}

// TelemetryConfig holds OpenTelemetry export and profiling settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	Profiler          ProfilerConfig
}

// AuthConfig holds the bearer token settings that guard commission writes.
// An empty secret leaves the write endpoints open.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Enabled reports whether write endpoints require a token
func (a AuthConfig) Enabled() bool {
	return a.Secret != ""
}

// ProfilerConfig holds Pyroscope continuous profiling settings
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	BasicAuthUser     string
	BasicAuthPassword string
	SpanProfiles      bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MARKETSYNC_ prefix (e.g., MARKETSYNC_PRICING_MIN_PROFIT)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MARKETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var err error
	dec := func(key string) decimal.Decimal {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" || err != nil {
			return decimal.Zero
		}
		d, parseErr := decimal.NewFromString(raw)
		if parseErr != nil {
			err = fmt.Errorf("%s: invalid decimal %q: %w", key, raw, parseErr)
			return decimal.Zero
		}
		return d
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		},
		Cache: CacheConfig{
			Backend:               v.GetString("cache.backend"),
			KeyPrefix:             v.GetString("cache.key_prefix"),
			AllowInMemoryFallback: !v.IsSet("cache.allow_in_memory_fallback") || v.GetBool("cache.allow_in_memory_fallback"),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:  v.GetString("marketplace.base_url"),
			ClientID: v.GetString("marketplace.client_id"),
			APIKey:   v.GetString("marketplace.api_key"),
			Timeout:  v.GetDuration("marketplace.timeout"),
		},
		Pricing: PricingConfig{
			MinProfit:          dec("pricing.min_profit"),
			MinStockShare:      dec("pricing.min_stock_share"),
			PercentStep:        v.GetInt("pricing.percent_step"),
			MaxStageIterations: v.GetInt("pricing.max_stage_iterations"),
			MarginFloor:        dec("pricing.margin_floor"),
			MarginTarget:       dec("pricing.margin_target"),
			SmoothingOffset:    dec("pricing.smoothing_offset"),
			FallbackWas:        v.GetInt("pricing.fallback_was"),
			FallbackNormal:     v.GetInt("pricing.fallback_normal"),
			FallbackFloor:      v.GetInt("pricing.fallback_floor"),
			Formula:            v.GetString("pricing.formula"),
			ChannelStrategy:    v.GetString("pricing.channel_strategy"),
			FaultPolicy:        v.GetString("pricing.fault_policy"),
			Obtain: ObtainConfig{
				DeliveryToBasePercent: dec("pricing.obtain.delivery_to_base_percent"),
				AcquiringPercent:      dec("pricing.obtain.acquiring_percent"),
				HandlingFee:           dec("pricing.obtain.handling_fee"),
				TaxUnit:               dec("pricing.obtain.tax_unit"),
				MinDeliveryFee:        dec("pricing.obtain.min_delivery_fee"),
				LabelFee:              dec("pricing.obtain.label_fee"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          !v.IsSet("telemetry.insecure") || v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			Profiler: ProfilerConfig{
				Enabled:           v.GetBool("telemetry.profiler.enabled"),
				ServerAddress:     v.GetString("telemetry.profiler.server_address"),
				BasicAuthUser:     v.GetString("telemetry.profiler.basic_auth_user"),
				BasicAuthPassword: v.GetString("telemetry.profiler.basic_auth_password"),
				SpanProfiles:      v.GetBool("telemetry.profiler.span_profiles"),
			},
		},
		Auth: AuthConfig{
			Secret:   v.GetString("auth.secret"),
			Issuer:   v.GetString("auth.issuer"),
			TokenTTL: v.GetDuration("auth.token_ttl"),
		},
	}
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg, v)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields.
// Obtain coefficients only take defaults when the key is absent, so an explicit 0 stays 0.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "marketsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "marketsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendRedis
	}
	if cfg.Marketplace.BaseURL == "" {
		cfg.Marketplace.BaseURL = "https://api-seller.ozon.ru"
	}
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = 30 * time.Second
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = cfg.App.Name
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}

	p := &cfg.Pricing
	decimalDefaults := []struct {
		key    string
		target *decimal.Decimal
		value  string
	}{
		{"pricing.min_profit", &p.MinProfit, "20"},
		{"pricing.min_stock_share", &p.MinStockShare, "0.10"},
		{"pricing.margin_floor", &p.MarginFloor, "10"},
		{"pricing.margin_target", &p.MarginTarget, "50"},
		{"pricing.smoothing_offset", &p.SmoothingOffset, "100"},
		{"pricing.obtain.delivery_to_base_percent", &p.Obtain.DeliveryToBasePercent, "5.5"},
		{"pricing.obtain.acquiring_percent", &p.Obtain.AcquiringPercent, "1.5"},
		{"pricing.obtain.handling_fee", &p.Obtain.HandlingFee, "20"},
		{"pricing.obtain.tax_unit", &p.Obtain.TaxUnit, "6"},
		{"pricing.obtain.min_delivery_fee", &p.Obtain.MinDeliveryFee, "20"},
		{"pricing.obtain.label_fee", &p.Obtain.LabelFee, "5"},
	}
	for _, d := range decimalDefaults {
		if !v.IsSet(d.key) {
			*d.target = decimal.RequireFromString(d.value)
		}
	}

	// an explicit zero step or iteration cap is rejected by Validate
	intDefaults := []struct {
		key    string
		target *int
		value  int
	}{
		{"pricing.percent_step", &p.PercentStep, 10},
		{"pricing.max_stage_iterations", &p.MaxStageIterations, 100},
		{"pricing.fallback_was", &p.FallbackWas, 80},
		{"pricing.fallback_normal", &p.FallbackNormal, 40},
		{"pricing.fallback_floor", &p.FallbackFloor, 20},
	}
	for _, d := range intDefaults {
		if !v.IsSet(d.key) {
			*d.target = d.value
		}
	}

	if p.Formula == "" {
		p.Formula = "marketplace"
	}
	if p.ChannelStrategy == "" {
		p.ChannelStrategy = "higher_stock"
	}
	if p.FaultPolicy == "" {
		p.FaultPolicy = FaultPolicySkipItem
	}
}

const minAuthSecretLength = 32

// Cache backends
const (
	CacheBackendRedis    = "redis"
	CacheBackendDatabase = "database"
	CacheBackendMemory   = "memory"
)

// Fault policies of batch optimization
const (
	FaultPolicySkipItem   = "skip_item"
	FaultPolicyAbortBatch = "abort_batch"
)

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendDatabase, CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of redis, database, memory, got %q", c.Cache.Backend)
	}

	p := c.Pricing
	if p.MinProfit.IsNegative() {
		return fmt.Errorf("pricing.min_profit cannot be negative")
	}
	if p.MinStockShare.IsNegative() || p.MinStockShare.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing.min_stock_share must be between 0 and 1, got %s", p.MinStockShare)
	}
	if p.PercentStep <= 0 {
		return fmt.Errorf("pricing.percent_step must be positive")
	}
	if p.MaxStageIterations <= 0 {
		return fmt.Errorf("pricing.max_stage_iterations must be positive")
	}
	if p.SmoothingOffset.IsNegative() {
		return fmt.Errorf("pricing.smoothing_offset cannot be negative")
	}
	switch p.FaultPolicy {
	case FaultPolicySkipItem, FaultPolicyAbortBatch:
	default:
		return fmt.Errorf("pricing.fault_policy must be skip_item or abort_batch, got %q", p.FaultPolicy)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.Profiler.Enabled && c.Telemetry.Profiler.ServerAddress == "" {
		return fmt.Errorf("telemetry.profiler.server_address is required when profiling is enabled")
	}

	hundred := decimal.NewFromInt(100)
	percentSum := p.Obtain.DeliveryToBasePercent.Add(p.Obtain.AcquiringPercent).Add(p.Obtain.TaxUnit)
	if percentSum.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("pricing.obtain percentage deductions must stay below 100, got %s", percentSum)
	}

	if c.Auth.Enabled() && len(c.Auth.Secret) < minAuthSecretLength {
		return fmt.Errorf("auth.secret must be at least %d characters", minAuthSecretLength)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Marketplace.ClientID == "" || c.Marketplace.APIKey == "" {
			return fmt.Errorf("marketplace.client_id and marketplace.api_key are required in production")
		}
		if !c.Auth.Enabled() {
			return fmt.Errorf("auth.secret is required in production")
		}
		if c.Cache.Backend == CacheBackendMemory {
			return fmt.Errorf("cache.backend=memory is not allowed in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
