package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

type MemoryStorage struct {
	values map[string]json.RawMessage
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]json.RawMessage),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Get(key string, out interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, exists := m.values[key]
	if !exists {
		return ErrKeyNotFound
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return nil
}

func (m *MemoryStorage) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = data
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
