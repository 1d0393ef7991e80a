// Package config loads settings from config*.yml files and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config is populated by LoadConfig. Every field maps to an environment
// variable of the same name as its mapstructure tag.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	JWTSecret  string `mapstructure:"JWT_SECRET"`
	BcryptCost int    `mapstructure:"BCRYPT_COST"`

	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBReadHost     string `mapstructure:"DB_READ_HOST"`
	DBReadPort     string `mapstructure:"DB_READ_PORT"`
	DBReadUser     string `mapstructure:"DB_READ_USER"`
	DBReadPassword string `mapstructure:"DB_READ_PASSWORD"`

	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	ImageUploadDir       string `mapstructure:"IMAGE_UPLOAD_DIR"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`

	SeedCatalog bool `mapstructure:"SEED_CATALOG"`
}

// defaults suit a local docker-compose stack. Viper only binds environment
// variables for keys it knows about, so every field needs an entry here.
var defaults = map[string]any{
	"APP_ENV":                          "development",
	"PORT":                             "8080",
	"JWT_SECRET":                       defaultJWTSecret,
	"BCRYPT_COST":                      10,
	"DB_HOST":                          "localhost",
	"DB_PORT":                          "5432",
	"DB_USER":                          "observatory",
	"DB_PASSWORD":                      "password",
	"DB_NAME":                          "openobservatory",
	"DB_SSLMODE":                       "disable",
	"DB_READ_HOST":                     "",
	"DB_READ_PORT":                     "5432",
	"DB_READ_USER":                     "observatory",
	"DB_READ_PASSWORD":                 "password",
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                10,
	"DB_CONN_MAX_LIFETIME_MINUTES":     30,
	"DB_SCHEMA_MODE":                   "hybrid",
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,
	"REDIS_URL":                        "localhost:6379",
	"ALLOWED_ORIGINS":                  "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173",
	"FEATURE_FLAGS":                    "nearby_notifications=on",
	"IMAGE_UPLOAD_DIR":                 "./uploads/images",
	"IMAGE_MAX_UPLOAD_SIZE_MB":         10,
	"TRACING_ENABLED":                  false,
	"TRACING_EXPORTER":                 "stdout",
	"OTLP_ENDPOINT":                    "localhost:4318",
	"TRACING_SAMPLER_RATIO":            1.0,
	"DEV_BOOTSTRAP_ROOT":               false,
	"DEV_ROOT_USERNAME":                "",
	"DEV_ROOT_PASSWORD":                "",
	"SEED_CATALOG":                     true,
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LoadConfig reads config.yml, then config.<APP_ENV>.yml for any profile
// other than development and test, then the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for _, dir := range []string{".", "..", "../.."} {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// The base file is optional.
	_ = v.ReadInConfig()

	switch env := v.GetString("APP_ENV"); env {
	case "development", "test":
	default:
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("loaded profile configuration", "file", "config."+env+".yml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.DBSSLMode = strings.ToLower(strings.TrimSpace(cfg.DBSSLMode))
	cfg.DBSchemaMode = strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once. Production adds secret and TLS
// requirements on top of the basic checks.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.Port == "" {
		fail("PORT is required")
	}
	if c.JWTSecret == "" {
		fail("JWT_SECRET is required")
	}
	if c.RedisURL == "" {
		fail("REDIS_URL is required")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		fail("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		fail("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}
	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		fail("DB_SCHEMA_MODE %q is not one of hybrid, sql, auto", c.DBSchemaMode)
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		fail("TRACING_SAMPLER_RATIO must be within [0, 1]")
	}

	if !c.IsProduction() {
		if len(c.JWTSecret) < 32 {
			slog.Warn("JWT_SECRET is shorter than 32 characters")
		}
		return errors.Join(errs...)
	}

	if c.JWTSecret == defaultJWTSecret {
		fail("JWT_SECRET must be changed from the default value in production")
	}
	if len(c.JWTSecret) < 32 {
		fail("JWT_SECRET must be at least 32 characters in production")
	}
	if c.DBPassword == "" || c.DBPassword == "password" {
		fail("a strong DB_PASSWORD is required in production")
	}
	if c.DBSSLMode == "" || c.DBSSLMode == "disable" {
		fail("DB_SSLMODE must enable TLS in production")
	}
	if c.DevBootstrapRoot {
		fail("DEV_BOOTSTRAP_ROOT cannot be enabled in production")
	}
	if c.AllowedOrigins == "*" {
		slog.Warn("ALLOWED_ORIGINS is '*' in production")
	}
	return errors.Join(errs...)
}
