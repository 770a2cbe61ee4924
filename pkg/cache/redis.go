package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/studynotion-api/pkg/config"
)

const (
	dialTimeout  = 5 * time.Second
	ioTimeout    = 3 * time.Second
	startupProbe = 5 * time.Second
)

// NewRedis returns a Redis client for the course structure cache and OTP store. The connection is
// probed once so a misconfigured address fails at startup instead of on the first signup.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), startupProbe)
	defer cancel()

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}

	return client, nil
}

// Ping reports whether the client can reach Redis. Used by the readiness probe.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("redis client not configured")
	}
	return client.Ping(ctx).Err()
}
