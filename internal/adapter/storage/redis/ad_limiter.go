package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// AdLimiter implements ports.AdLimiter with a per-account daily counter.
// Keys are scoped by UTC date and expire on their own, so a new day starts
// from zero without any reset job.
type AdLimiter struct {
	client *goredis.Client
	prefix string
}

// NewAdLimiter creates a Redis-backed daily ad counter.
func NewAdLimiter(client *goredis.Client) *AdLimiter {
	return &AdLimiter{client: client, prefix: "ads:"}
}

// Take consumes one ad-watch slot for today. Returns the count used and
// whether this watch is still within the cap.
func (l *AdLimiter) Take(ctx context.Context, accountID string, cap int) (int, bool, error) {
	now := time.Now().UTC()
	key := fmt.Sprintf("%s%s:%s", l.prefix, accountID, now.Format("2006-01-02"))

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis ad counter incr: %w", err)
	}

	if count == 1 {
		midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		// +1m safety margin past midnight
		l.client.Expire(ctx, key, midnight.Sub(now)+time.Minute)
	}

	return int(count), count <= int64(cap), nil
}

// Release gives back one slot taken earlier today, so a failed grant does not
// burn part of the cap.
func (l *AdLimiter) Release(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	key := fmt.Sprintf("%s%s:%s", l.prefix, accountID, now.Format("2006-01-02"))

	count, err := l.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis ad counter decr: %w", err)
	}
	// the key may have rolled over at midnight since the Take
	if count < 0 {
		l.client.Del(ctx, key)
	}
	return nil
}
