package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"openobservatory/internal/config"
	"openobservatory/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

// SchemaStatus describes what ApplySchema would do and which SQL
// migrations are still pending.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// Usernames and body names are unique ignoring case. Struct tags cannot
// declare expression indexes, so AutoMigrate gets them from here.
var lowerUniqueIndexes = map[string]string{
	"idx_users_username_lower":        "users (LOWER(username))",
	"idx_celestial_bodies_name_lower": "celestial_bodies (LOWER(name))",
}

func schemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

// schemaPolicy decides whether SQL migrations and AutoMigrate run.
// Hybrid skips AutoMigrate in prod-like environments; auto refuses them
// unless destructive changes were explicitly allowed.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	prodLike := slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))
	mode := schemaMode(cfg)
	switch {
	case mode == SchemaModeSQL:
		runSQL = true
	case mode == SchemaModeHybrid:
		runSQL, runAuto = true, !prodLike
	case mode == SchemaModeAuto && prodLike && !cfg.DBAutoMigrateAllowDestructive:
		err = fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
	case mode == SchemaModeAuto:
		runAuto = true
	default:
		err = fmt.Errorf("unknown DB_SCHEMA_MODE %q", mode)
	}
	return runSQL, runAuto, err
}

func runAutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	for name, target := range lowerUniqueIndexes {
		// IF NOT EXISTS is understood by both postgres and sqlite.
		if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + name + " ON " + target).Error; err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	return nil
}

// ApplySchema brings the database schema up to date according to
// DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}
	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	mode := schemaMode(cfg)
	if mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.Warn("AutoMigrate running with destructive changes allowed", slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("running AutoMigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
	if err := runAutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema plan without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if runSQL {
		if status.AppliedVersions, err = NewLedger(db).Applied(ctx); err != nil {
			return nil, err
		}
		status.PendingMigrations = pendingMigrations(status.AppliedVersions, GetMigrations())
	}
	return status, nil
}

func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}
