package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"openobservatory/internal/observability"

	"github.com/redis/go-redis/v9"
)

// load reports whether key held a value that decoded into dest.
func load(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func store(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest, then stores dest with ttl. Cache failures never fail the lookup.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}
	lookups := observability.CacheLookups.MustCurryWith(map[string]string{"family": keyFamily(key)})

	if hit, err := load(ctx, key, dest); err == nil && hit {
		lookups.WithLabelValues("hit").Inc()
		return nil
	}
	lookups.WithLabelValues("miss").Inc()

	if err := fetch(); err != nil {
		return err
	}
	_ = store(ctx, key, dest, ttl)
	return nil
}
