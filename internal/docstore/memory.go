package docstore

import (
	"context"
	"slices"
	"sync"
)

// Memory keeps documents in process memory. Used by DOCSTORE=memory and by
// tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (m *Memory) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if !ValidSegment(collection) {
		return nil, ErrInvalidPath
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	keys := make([]string, 0, len(docs))
	for key := range docs {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	result := make([]Document, 0, len(keys))
	for _, key := range keys {
		result = append(result, Document{Key: key, Data: slices.Clone(docs[key])})
	}
	return result, nil
}

func (m *Memory) Read(ctx context.Context, path string) ([]byte, error) {
	collection, key, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

func (m *Memory) Write(ctx context.Context, path string, data []byte) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := checkData(data); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		m.collections[collection] = docs
	}
	docs[key] = slices.Clone(data)
	return nil
}

func (m *Memory) Append(ctx context.Context, collection string, data []byte) (string, error) {
	key, err := NewKey()
	if err != nil {
		return "", err
	}
	if err := m.Write(ctx, Path(collection, key), data); err != nil {
		return "", err
	}
	return key, nil
}
