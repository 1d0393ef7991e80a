package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	CelestialBodyKeyPrefix = "celestial_body:%d"
	KarmaKeyPrefix         = "karma:%d"
	WSTicketKeyPrefix      = "ws_ticket:%s"
	BlacklistKeyPrefix     = "blacklist:%s"
)

const (
	CelestialBodyTTL = 10 * time.Minute
	KarmaTTL         = 2 * time.Minute
	WSTicketTTL      = 30 * time.Second
)

func CelestialBodyKey(id uint) string {
	return fmt.Sprintf(CelestialBodyKeyPrefix, id)
}

func KarmaKey(userID uint) string {
	return fmt.Sprintf(KarmaKeyPrefix, userID)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateCelestialBody(ctx context.Context, id uint) {
	Invalidate(ctx, CelestialBodyKey(id))
}

func InvalidateKarma(ctx context.Context, userID uint) {
	Invalidate(ctx, KarmaKey(userID))
}
