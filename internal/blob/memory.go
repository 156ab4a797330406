package blob

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-process Store used by the memory driver and in tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

type memBlob struct {
	data        []byte
	contentType string
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memBlob)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, errors.Wrapf(err, "failed to read %s", key)
	}
	m.mu.Lock()
	m.blobs[key] = memBlob{data: data, contentType: contentType}
	m.mu.Unlock()
	return Info{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (m *Memory) Open(_ context.Context, key string) (io.ReadCloser, Info, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, Info{}, err
	}
	m.mu.RLock()
	b, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, Info{}, ErrNotFound
	}
	info := Info{Key: key, Size: int64(len(b.data)), ContentType: b.contentType}
	return io.NopCloser(bytes.NewReader(b.data)), info, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

// Keys lists stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys
}
