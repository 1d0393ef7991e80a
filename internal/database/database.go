// Package database opens the postgres connections and owns the schema.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"openobservatory/internal/config"
	"openobservatory/internal/middleware"
	"openobservatory/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the primary connection once Connect has succeeded.
var DB *gorm.DB

var readDB *gorm.DB

// GetReadDB returns the replica, or nil when reads go to the primary.
func GetReadDB() *gorm.DB {
	return readDB
}

// ConnectOptions tunes Connect for commands that manage the schema themselves.
type ConnectOptions struct {
	ApplySchema bool
}

type endpoint struct {
	host, port, user, password string
}

func postgresDSN(ep endpoint, dbName, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		ep.host, ep.port, ep.user, ep.password, dbName, sslMode)
}

// Connect opens the primary and the optional replica, then applies the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
}

func ConnectWithOptions(cfg *config.Config, opts ConnectOptions) (*gorm.DB, error) {
	primary, err := open(cfg, endpoint{cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	middleware.Logger.Info("Database connected",
		slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))

	if opts.ApplySchema {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := ApplySchema(ctx, primary, cfg); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if cfg.DBReadHost != "" {
		replica, err := open(cfg, endpoint{cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword})
		if err != nil {
			middleware.Logger.Warn("Read replica unavailable, using primary for reads",
				slog.String("host", cfg.DBReadHost), slog.String("error", err.Error()))
		} else {
			readDB = replica
		}
	}

	DB = primary
	return DB, nil
}

// open connects to one postgres endpoint with pool limits and query metrics.
func open(cfg *config.Config, ep endpoint) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(ep, cfg.DBName, cfg.DBSSLMode)), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, err
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	if err := observability.RegisterQueryMetrics(db); err != nil {
		return nil, fmt.Errorf("register query metrics: %w", err)
	}
	return db, nil
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen / 2
	}
	lifetime := time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

// Close releases the primary and replica pools.
func Close() {
	for _, db := range []*gorm.DB{DB, readDB} {
		if db == nil {
			continue
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	DB, readDB = nil, nil
}
