package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/charhunt/api/internal/config"
)

// Client wraps the Redis connection used for the leaderboard cache.
type Client struct {
	*redis.Client
}

// Config holds the cache connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// LoadConfigFromEnv reads the cache settings from REDIS_* variables.
func LoadConfigFromEnv() *Config {
	return &Config{
		Addr:        config.Get("REDIS_ADDR", "localhost:6379"),
		Password:    config.Get("REDIS_PASSWORD", ""),
		DB:          config.GetInt("REDIS_DB", 0),
		PoolSize:    config.GetInt("REDIS_POOL_SIZE", 10),
		DialTimeout: config.GetDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
	}
}

// NewClient connects and verifies the cache is reachable. Leaderboard
// operations are single sorted-set commands, so the per-command
// timeouts stay short.
func NewClient(cfg *Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis] Leaderboard cache connected to %s (db %d)", cfg.Addr, cfg.DB)

	return &Client{rdb}, nil
}
