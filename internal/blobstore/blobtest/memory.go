// Package blobtest provides an in-memory blobstore.Store for tests.
package blobtest

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps blobs in a map. PutErr and DeleteErr, when set, are returned
// by the matching calls without touching the map.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string

	PutErr    error
	DeleteErr error
	Deleted   []string
}

func New() *Memory {
	return &Memory{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.blobs[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.blobs, key)
	delete(m.types, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

func (m *Memory) URL(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?expires=3600", key), nil
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

// Len is the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// ContentType returns the type recorded for key.
func (m *Memory) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}
