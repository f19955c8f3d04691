package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-backend/internal/models"
)

const leaderboardCacheTTL = 10 * time.Minute

// LeaderboardCache mirrors each sport's best scores in a sorted set. Members
// are usernames; ZADD GT keeps only a user's best. Equal scores come back in
// descending username order, matching ScoreRepo.Top.
type LeaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

func leaderboardKey(sport models.Sport) string {
	return fmt.Sprintf("leaderboard:%s", sport)
}

// Top returns the cached board and whether the cache held it.
func (c *LeaderboardCache) Top(ctx context.Context, sport models.Sport, limit int) ([]models.ScoreEntry, bool, error) {
	key := leaderboardKey(sport)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	zs, err := c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, err
	}

	entries := make([]models.ScoreEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, models.ScoreEntry{Username: member, Score: int(z.Score)})
	}
	return entries, true, nil
}

// Record raises username's cached score if the key is warm. A cold key is
// left cold so the next read repopulates it from Postgres.
func (c *LeaderboardCache) Record(ctx context.Context, sport models.Sport, username string, score int) error {
	key := leaderboardKey(sport)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	return c.client.ZAddGT(ctx, key, redis.Z{Score: float64(score), Member: username}).Err()
}

// Fill replaces the cached board with entries.
func (c *LeaderboardCache) Fill(ctx context.Context, sport models.Sport, entries []models.ScoreEntry) error {
	key := leaderboardKey(sport)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(entries) > 0 {
		members := make([]redis.Z, 0, len(entries))
		for _, e := range entries {
			members = append(members, redis.Z{Score: float64(e.Score), Member: e.Username})
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, leaderboardCacheTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}
