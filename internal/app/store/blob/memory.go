package blob

import (
	"context"
	"errors"
	"sync"
)

// ErrNotStored is returned by Memory.Read for unknown keys.
var ErrNotStored = errors.New("blob not stored")

// Memory is an in-memory blob store for tests. It counts Save calls so
// tests can assert that deduplicated ingests skip the blob write.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// SaveCalls is incremented on every Save. Read it only after all
	// writers are done, or while holding no expectations of ordering.
	SaveCalls int

	// FailSaves makes every Save return an error, for exercising the
	// no-orphan-metadata path.
	FailSaves bool
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.FailSaves {
		return errors.New("memory blob store: save disabled")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return nil
}

func (m *Memory) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotStored
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	delete(m.blobs, key)
	return ok, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
