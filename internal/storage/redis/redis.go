package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"handoff_service/internal/models"
	"handoff_service/internal/storage"

	"github.com/redis/go-redis/v9"
)

// RedisRepo backs the download token table with Redis. Unlike the in-memory
// store it survives restarts, and Redis expires keys itself so no expiry
// bookkeeping is needed on read.
type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func tokenKey(token string) string {
	return fmt.Sprintf("handoff:token:%s", token)
}

// PutToken stores a minted token with its TTL.
func (r *RedisRepo) PutToken(ctx context.Context, t models.DownloadToken, ttl time.Duration) error {
	const op = "storage.redis.PutToken"

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Set(ctx, tokenKey(t.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeToken fetches and deletes a token in one step. GETDEL is atomic on
// the Redis side, so two concurrent redemptions of the same token cannot
// both succeed even though each one crosses an I/O round trip.
func (r *RedisRepo) ConsumeToken(ctx context.Context, token string) (models.DownloadToken, error) {
	const op = "storage.redis.ConsumeToken"

	data, err := r.client.GetDel(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.DownloadToken{}, storage.ErrTokenNotFound
		}

		return models.DownloadToken{}, fmt.Errorf("%s: %w", op, err)
	}

	var t models.DownloadToken
	if err := json.Unmarshal(data, &t); err != nil {
		return models.DownloadToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
