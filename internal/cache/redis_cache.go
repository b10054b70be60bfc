package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by Get when the key does not exist. Callers that
// treat cached data as advisory should fold backend failures into a miss as
// well (see IsMiss).
var ErrCacheMiss = errors.New("cache: key not found")

type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// IsMiss reports whether err means "no usable cached value".
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) CacheService {
	return &redisCache{
		client: client,
		logger: logger,
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value for key %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache: set key %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		r.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache: get key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is as good as absent.
		r.logger.Warn("redis value unmarshal failed", zap.String("key", key), zap.Error(err))
		return ErrCacheMiss
	}
	return nil
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: delete key %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache: delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan pattern %s: %w", pattern, err)
	}
	return nil
}
