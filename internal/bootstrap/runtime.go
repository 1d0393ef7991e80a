// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"openobservatory/internal/cache"
	"openobservatory/internal/config"
	"openobservatory/internal/database"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultRootUsername is used when DEV_ROOT_USERNAME is unset.
const DefaultRootUsername = "observatory_root"

// Options control runtime initialization behavior.
type Options struct {
	SeedCatalog bool
}

// InitRuntime connects to DB (applying the schema policy) and Redis, and
// optionally loads the built-in celestial body catalog. Redis is optional:
// the returned client is nil when it cannot be reached.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	cache.InitRedis(cfg.RedisURL)

	if err := EnsureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("bootstrap root admin: %w", err)
	}
	if opts.SeedCatalog {
		if err := seedCatalog(ctx, db); err != nil {
			return nil, nil, err
		}
	}
	return db, cache.GetClient(), nil
}

func seedCatalog(ctx context.Context, db *gorm.DB) error {
	entries, err := seed.BuiltInCatalog()
	if err != nil {
		return err
	}
	if _, err := seed.Catalog(db.WithContext(ctx), entries); err != nil {
		return fmt.Errorf("seed celestial body catalog: %w", err)
	}
	return nil
}

// rootAccount resolves the username and password hash of the development
// root account. ok is false when bootstrapping is switched off.
func rootAccount(cfg *config.Config) (username string, hash []byte, ok bool, err error) {
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return "", nil, false, nil
	}
	if cfg.DevRootPassword == "" {
		return "", nil, false, errors.New("DEV_BOOTSTRAP_ROOT needs DEV_ROOT_PASSWORD")
	}
	username = cmp.Or(strings.TrimSpace(cfg.DevRootUsername), DefaultRootUsername)
	hash, err = bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), cmp.Or(cfg.BcryptCost, bcrypt.DefaultCost))
	if err != nil {
		return "", nil, false, fmt.Errorf("hash root password: %w", err)
	}
	return username, hash, true, nil
}

// EnsureDevRootAdmin creates or promotes the development root account.
// It is a no-op outside the development profile or when
// DEV_BOOTSTRAP_ROOT is off. An existing account keeps its password.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	username, hash, ok, err := rootAccount(cfg)
	if !ok {
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		lookup := tx.Where("LOWER(username) = LOWER(?)", username).Limit(1).Find(&root)
		if lookup.Error != nil {
			return lookup.Error
		}
		if lookup.RowsAffected > 0 {
			return tx.Model(&root).Update("role", models.RoleAdmin).Error
		}
		return tx.Create(&models.User{
			Username: username,
			Password: string(hash),
			IsPublic: true,
			Role:     models.RoleAdmin,
			Radius:   models.DefaultRadiusKm,
		}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("development root admin ensured", "username", username)
	return nil
}
