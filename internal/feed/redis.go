package feed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFanOut publishes feed events on a Redis pub/sub channel
type RedisFanOut struct {
	client *redis.Client
}

func NewRedisFanOut(ctx context.Context, addr, password string) (*RedisFanOut, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return &RedisFanOut{client: client}, nil
}

func (r *RedisFanOut) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *RedisFanOut) Close() error {
	return r.client.Close()
}
