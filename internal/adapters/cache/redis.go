package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSettings configures the Redis client.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a Cache shared between service replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, s RedisSettings) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     s.Addr,
		Password: s.Password,
		DB:       s.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", s.Addr, err)
	}
	return &Redis{client: client, ttl: s.TTL}, nil
}

func versionKey(dayID string) string { return "stagely:version:" + url.QueryEscape(dayID) }

func (r *Redis) Version(ctx context.Context, dayID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(dayID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

func (r *Redis) Bump(ctx context.Context, dayID string) (int64, error) {
	v, err := r.client.Incr(ctx, versionKey(dayID)).Result()
	if err != nil {
		return 0, fmt.Errorf("bump version: %w", err)
	}
	return v, nil
}

func (r *Redis) Get(ctx context.Context, k Key) ([]byte, error) {
	b, err := r.client.Get(ctx, k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", k.View, err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, k Key, payload []byte) error {
	if err := r.client.Set(ctx, k.String(), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", k.View, err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close releases the client.
func (r *Redis) Close() error { return r.client.Close() }
