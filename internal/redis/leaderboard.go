package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/charhunt/api/internal/game"
)

// Best-time leaderboard. Members are pseudos, scores are best elapsed
// milliseconds, so an ascending range is the ranking. Postgres stays
// authoritative; the sorted set is rebuilt from it at startup.
const leaderboardBestTimeKey = "leaderboard:besttime"

// RecordTime records a completed run for a pseudo. ZAddLT keeps the
// stored score only if the new time is lower, so re-recording a slower
// run never degrades a player's best.
func (c *Client) RecordTime(ctx context.Context, pseudo string, elapsedMs int64) error {
	err := c.ZAddLT(ctx, leaderboardBestTimeKey, redis.Z{
		Score:  float64(elapsedMs),
		Member: pseudo,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record time: %w", err)
	}
	return nil
}

// TopTimes returns the ranked board, fastest first. A limit of 0 or
// less returns the whole board.
func (c *Client) TopTimes(ctx context.Context, limit int64) ([]game.RankedUser, error) {
	stop := limit - 1
	if limit <= 0 {
		stop = -1
	}

	entries, err := c.ZRangeWithScores(ctx, leaderboardBestTimeKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top times: %w", err)
	}

	ranked := make([]game.RankedUser, 0, len(entries))
	for i, entry := range entries {
		pseudo, _ := entry.Member.(string)
		ranked = append(ranked, game.RankedUser{
			Pseudo:    pseudo,
			ElapsedMs: int64(entry.Score),
			Rank:      i + 1,
		})
	}
	return ranked, nil
}

// PlayerRank returns the 1-based rank of a pseudo, or 0 when the
// pseudo has no recorded completion.
func (c *Client) PlayerRank(ctx context.Context, pseudo string) (int, error) {
	rank, err := c.ZRank(ctx, leaderboardBestTimeKey, pseudo).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get player rank: %w", err)
	}
	return int(rank) + 1, nil
}

// PlayerBestTime returns a pseudo's best elapsed milliseconds.
func (c *Client) PlayerBestTime(ctx context.Context, pseudo string) (int64, bool, error) {
	score, err := c.ZScore(ctx, leaderboardBestTimeKey, pseudo).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get player best time: %w", err)
	}
	return int64(score), true, nil
}

// Rebuild replaces the cached board with the given ranking (used for
// cache initialization from the database).
func (c *Client) Rebuild(ctx context.Context, ranked []game.RankedUser) error {
	pipe := c.Pipeline()

	pipe.Del(ctx, leaderboardBestTimeKey)
	for _, entry := range ranked {
		pipe.ZAdd(ctx, leaderboardBestTimeKey, redis.Z{
			Score:  float64(entry.ElapsedMs),
			Member: entry.Pseudo,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}
