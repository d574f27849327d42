package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions is where the Redis client connects.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// ConnectRedis opens a pooled client and pings it before handing it out.
func ConnectRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		ConnMaxLifetime: time.Hour,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connection to redis at %s failed: %w", opts.Addr, err)
	}
	if logger != nil {
		logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}
	return client, nil
}
