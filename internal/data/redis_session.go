package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kerdahl/authentication-samples/internal/biz"

	"github.com/redis/go-redis/v9"
)

type redisSessionRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionRepo creates a Redis-backed session repo. Expiry is delegated
// to Redis key TTLs.
func NewRedisSessionRepo(client *redis.Client) biz.SessionRepo {
	return &redisSessionRepo{
		client: client,
		prefix: "session:",
	}
}

func (r *redisSessionRepo) key(id string) string {
	return r.prefix + id
}

func (r *redisSessionRepo) Load(ctx context.Context, id string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, biz.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	return val, nil
}

func (r *redisSessionRepo) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		// If expired, delete session instead of extending
		return r.Delete(ctx, id)
	}
	if err := r.client.Set(ctx, r.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *redisSessionRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (r *redisSessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisSessionRepo) Close() error {
	return r.client.Close()
}
