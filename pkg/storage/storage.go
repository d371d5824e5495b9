package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// Storage 接口定义
type Storage interface {
	// Store 存储对象，返回其 key
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get 获取对象；不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象
	Delete(ctx context.Context, key string) error
	// CleanupBefore 清理过期对象
	CleanupBefore(ctx context.Context, threshold time.Time) error
}
