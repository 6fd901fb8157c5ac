package redis

import (
	"context"
	"fmt"

	"klover-backend/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:xp"

// Leaderboard implements ports.Leaderboard on a Redis sorted set. The set is
// a cache of the account store's XP column and can be rebuilt from it.
type Leaderboard struct {
	client *goredis.Client
}

// NewLeaderboard creates a Redis-backed XP leaderboard.
func NewLeaderboard(client *goredis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

// SetScore records the account's XP.
func (l *Leaderboard) SetScore(ctx context.Context, accountID string, xp int64) error {
	err := l.client.ZAdd(ctx, leaderboardKey, goredis.Z{
		Score:  float64(xp),
		Member: accountID,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis leaderboard zadd: %w", err)
	}
	return nil
}

// Top returns the n highest-XP members, best first.
func (l *Leaderboard) Top(ctx context.Context, n int64) ([]ports.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis leaderboard zrevrange: %w", err)
	}

	entries := make([]ports.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, ports.LeaderboardEntry{
			AccountID: id,
			XP:        int64(m.Score),
		})
	}
	return entries, nil
}
