package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:scores"

// Leaderboard maintains the global score ordering as a sorted set so rank
// lookups avoid a full table scan on every settlement.
type Leaderboard struct {
	rdb *redis.Client
}

func NewLeaderboard(c *Client) *Leaderboard {
	return &Leaderboard{rdb: c.rdb}
}

func (l *Leaderboard) SetScore(ctx context.Context, userID int64, score int) error {
	member := redis.Z{
		Score:  float64(score),
		Member: strconv.FormatInt(userID, 10),
	}
	if err := l.rdb.ZAdd(ctx, leaderboardKey, member).Err(); err != nil {
		return fmt.Errorf("redis: set score for user %d: %w", userID, err)
	}
	return nil
}

// RankOf returns 1 plus the number of members with a strictly greater score,
// so tied scores share a rank.
func (l *Leaderboard) RankOf(ctx context.Context, score int) (int, error) {
	greater, err := l.rdb.ZCount(ctx, leaderboardKey, "("+strconv.Itoa(score), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis: rank of score %d: %w", score, err)
	}
	return int(greater) + 1, nil
}
