package testutil

import (
	"openobservatory/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func must(t T, what string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
}

// NewSQLiteDB returns an in-memory database with every persistent model
// migrated. The pool holds a single connection: each new sqlite
// connection would otherwise open its own empty memory database.
func NewSQLiteDB(t T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	must(t, "open sqlite", err)
	pool, err := db.DB()
	must(t, "sqlite pool", err)
	pool.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = pool.Close() })

	must(t, "migrate sqlite", db.AutoMigrate(database.PersistentModels()...))
	return db
}

// NewRedis returns a miniredis instance and a client for it, both torn
// down at cleanup.
func NewRedis(t T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	must(t, "start miniredis", err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}
