package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// ResultArchive stores completed document results as JSON objects under a key prefix.
type ResultArchive struct {
	store  Storage
	prefix string
	logger logger.Logger
}

func NewResultArchive(store Storage, prefix string, log logger.Logger) *ResultArchive {
	return &ResultArchive{
		store:  store,
		prefix: prefix,
		logger: log.Named("archive"),
	}
}

// Key returns the object key for a result id.
func (a *ResultArchive) Key(id string) string {
	return a.prefix + id + ".json"
}

func (a *ResultArchive) Save(ctx context.Context, result *models.DocumentResult) error {
	if result == nil || result.ID == "" {
		return errors.New("result has no id")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	key, err := a.store.Store(ctx, bytes.NewReader(data), a.Key(result.ID))
	if err != nil {
		return err
	}

	a.logger.Debug("result archived", logger.String("key", key), logger.Int("bytes", len(data)))
	return nil
}

func (a *ResultArchive) Load(ctx context.Context, id string) (*models.DocumentResult, error) {
	body, err := a.store.Get(ctx, a.Key(id))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var result models.DocumentResult
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", id, err)
	}
	return &result, nil
}

// Cleanup 删除早于 ttl 的归档
func (a *ResultArchive) Cleanup(ctx context.Context, ttl time.Duration) error {
	return a.store.CleanupBefore(ctx, time.Now().Add(-ttl))
}

// RunJanitor calls Cleanup every interval until ctx is done.
func (a *ResultArchive) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Cleanup(ctx, ttl); err != nil {
				a.logger.Warn("archive cleanup failed", logger.Error(err))
			}
		}
	}
}
