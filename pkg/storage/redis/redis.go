package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	cfg "github.com/feichai0017/handwriting-ocr/config"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
	"github.com/feichai0017/handwriting-ocr/pkg/storage"
)

// indexKey 有序集合，score 为写入时间，供 CleanupBefore 使用
const indexKey = "ocr:archive:index"

var _ storage.Storage = (*RedisStorage)(nil)

// RedisStorage keeps archived objects as plain string values that expire after ttl.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisStorage(ctx context.Context, c cfg.RedisConfig, ttl time.Duration, log logger.Logger) (*RedisStorage, error) {
	if c.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStorageWithClient(client, ttl, log), nil
}

func NewRedisStorageWithClient(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl, logger: log.Named("redis")}
}

func (r *RedisStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read object: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, r.ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(time.Now().Unix()), Member: key})
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to store object to redis", logger.String("key", key), logger.Error(err))
		return "", fmt.Errorf("failed to store object: %w", err)
	}

	return key, nil
}

func (r *RedisStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, indexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// CleanupBefore 过期值由 TTL 自动删除，这里同时清理索引
func (r *RedisStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	upper := "(" + strconv.FormatInt(threshold.Unix(), 10)
	keys, err := r.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return fmt.Errorf("failed to list expired objects: %w", err)
	}

	for _, key := range keys {
		if err := r.Delete(ctx, key); err != nil {
			r.logger.Warn("Failed to delete expired object", logger.String("key", key), logger.Error(err))
			continue
		}
	}

	if len(keys) > 0 {
		r.logger.Info("Deleted expired objects", logger.Int("count", len(keys)))
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
