// Package cache provides a redis-backed first-seen check used as a cheap
// front for webhook deduplication. The database unique constraint remains
// authoritative; redis only short-circuits the common duplicate-delivery case.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{rdb: rdb, ttl: ttl}
}

// FirstSeen records key and reports whether this is its first appearance.
// Redis errors are returned so the caller can fall through to the durable
// check rather than dropping the event.
func (d *Deduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, "webhook:seen:"+key, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
