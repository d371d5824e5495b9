package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

type memoryObject struct {
	data     []byte
	modified time.Time
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	now     time.Time
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string]memoryObject), now: time.Now()}
}

func (m *memoryStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, modified: m.now}
	return key, nil
}

func (m *memoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, obj := range m.objects {
		if obj.modified.Before(threshold) {
			delete(m.objects, key)
		}
	}
	return nil
}

func TestArchiveRoundTrip(t *testing.T) {
	store := newMemoryStorage()
	archive := NewResultArchive(store, "results/", logger.NewTestLogger())

	result := &models.DocumentResult{
		ID:       "abc",
		Pages:    []models.PageResult{{PageNumber: 1, ExtractedText: "hello", ConfidenceScore: 0.8}},
		FullText: "hello",
		Metadata: models.DocumentMetadata{TotalPages: 1, AverageConfidence: 0.8},
	}
	require.NoError(t, archive.Save(context.Background(), result))

	_, ok := store.objects["results/abc.json"]
	require.True(t, ok)

	loaded, err := archive.Load(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, result.FullText, loaded.FullText)
	assert.Equal(t, result.Pages, loaded.Pages)
}

func TestArchiveMissing(t *testing.T) {
	archive := NewResultArchive(newMemoryStorage(), "", logger.NewTestLogger())

	_, err := archive.Load(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestArchiveRejectsEmptyID(t *testing.T) {
	archive := NewResultArchive(newMemoryStorage(), "", logger.NewTestLogger())
	require.Error(t, archive.Save(context.Background(), &models.DocumentResult{}))
}

func TestArchiveCorruptObject(t *testing.T) {
	store := newMemoryStorage()
	archive := NewResultArchive(store, "", logger.NewTestLogger())
	_, err := store.Store(context.Background(), strings.NewReader("{not json"), archive.Key("bad"))
	require.NoError(t, err)

	_, err = archive.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestArchiveCleanup(t *testing.T) {
	store := newMemoryStorage()
	store.now = time.Now().Add(-48 * time.Hour)
	archive := NewResultArchive(store, "", logger.NewTestLogger())

	require.NoError(t, archive.Save(context.Background(), &models.DocumentResult{ID: "old"}))
	require.NoError(t, archive.Cleanup(context.Background(), 24*time.Hour))
	assert.Empty(t, store.objects)
}
