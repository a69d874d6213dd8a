package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rin0913/dashpoll/internal/config"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	addr := cfg.Addr
	if addr == "" {
		addr = "redis:6379"
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection with a short deadline so a missing redis does
// not stall startup.
func Ping(ctx context.Context, c *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}
