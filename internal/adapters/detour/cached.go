package detour

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/ports"
)

// CachedEstimator puts a Redis lookaside cache in front of another estimator.
// Detour costs between fixed coordinates barely move, so match recomputation
// stays live on the package pool while repeated geometry is answered from
// cache. Cache writes are best-effort; a Redis outage degrades to pass-through.
type CachedEstimator struct {
	inner  ports.DetourEstimator
	client *redis.Client
	ttl    time.Duration
	log    *zap.SugaredLogger
}

func NewCachedEstimator(inner ports.DetourEstimator, client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *CachedEstimator {
	return &CachedEstimator{inner: inner, client: client, ttl: ttl, log: log}
}

func (c *CachedEstimator) EstimateDetourKm(ctx context.Context, start, end, pickup, dropoff domain.Coordinates) (float64, error) {
	key := cacheKey(start, end, pickup, dropoff)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		km, parseErr := strconv.ParseFloat(cached, 64)
		if parseErr == nil {
			return km, nil
		}
		c.log.Warnw("detour cache holds unparsable value", "key", key, "value", cached)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warnw("detour cache read failed", "key", key, "error", err)
	}

	km, err := c.inner.EstimateDetourKm(ctx, start, end, pickup, dropoff)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatFloat(km, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.log.Warnw("detour cache write failed", "key", key, "error", err)
	}
	return km, nil
}

// Coordinates are rounded to five decimals (about a metre) so nearby floats
// share a cache entry.
func cacheKey(coords ...domain.Coordinates) string {
	var b strings.Builder
	b.WriteString("detour:")
	for i, c := range coords {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%.5f,%.5f", c.Lat, c.Lon)
	}
	return b.String()
}
