package rates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedProvider decorates a Provider with a Redis read-through cache. Cache
// failures degrade to the underlying provider; they never fail a lookup.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProvider wraps next with a Redis cache using the given TTL.
func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(base, target string) string {
	return fmt.Sprintf("ticketpay:rate:%s:%s", base, target)
}

// Rate returns the cached rate when present, otherwise resolves through the
// underlying provider and stores the result.
func (p *CachedProvider) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	key := cacheKey(base, target)

	cached, err := p.client.Get(ctx, key).Result()
	if err == nil {
		rate, parseErr := decimal.NewFromString(cached)
		if parseErr == nil && rate.IsPositive() {
			return rate, nil
		}
		// Corrupt entry; drop it and fall through to the provider.
		_ = p.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		p.logger.WarnContext(ctx, "rate cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	rate, err := p.next.Rate(ctx, base, target)
	if err != nil {
		return decimal.Zero, err
	}

	if err := p.client.Set(ctx, key, rate.String(), p.ttl).Err(); err != nil {
		p.logger.WarnContext(ctx, "rate cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return rate, nil
}
