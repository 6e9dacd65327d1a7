package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold marks key-value queries worth a warning
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// pingTimeout bounds the connectivity check done by Open
const pingTimeout = 5 * time.Second

// Database wraps the gorm handle backing the key-value store
type Database struct {
	DB *gorm.DB
}

type openOptions struct {
	log       *zap.Logger
	logLevel  gormlogger.LogLevel
	slow      time.Duration
	dialector gorm.Dialector
}

// Option configures Open
type Option func(*openOptions)

// WithLogger routes gorm statements to log. level is a service log level
// such as "debug" or "warn".
func WithLogger(log *zap.Logger, level string) Option {
	return func(o *openOptions) {
		o.log = log
		o.logLevel = logger.MapGormLogLevel(level)
	}
}

// WithSlowQueryThreshold overrides DefaultSlowQueryThreshold. Zero disables
// slow query warnings.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *openOptions) {
		o.slow = d
	}
}

// WithDialector replaces the PostgreSQL dialector built from the config
func WithDialector(d gorm.Dialector) Option {
	return func(o *openOptions) {
		o.dialector = d
	}
}

// Open connects to the database described by cfg, applies its pool limits
// and checks the connection before returning.
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := openOptions{
		log:      zap.NewNop(),
		logLevel: gormlogger.Warn,
		slow:     DefaultSlowQueryThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialector == nil {
		o.dialector = postgres.Open(cfg.DSN())
	}

	gdb, err := gorm.Open(o.dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(o.log, o.logLevel, o.slow),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBName, err)
	}

	db := &Database{DB: gdb}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBName, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Ping reports whether the connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return sqlDB.Close()
}
