// Package mock provides an arr.Arrer implementation for tests.
package mock

import (
	"context"
	"sync"

	"github.com/plexsweep/plexsweep/internal/engine/arr"
)

// MockArrer is a mock implementation of arr.Arrer for testing.
type MockArrer struct {
	mu sync.RWMutex

	// ids maps rating-key-like lookup results; keys are TMDB/TVDB ids or
	// lowercase "title|year" strings set through SetID.
	ids map[string]int32

	deleted     []int32
	bulkDeleted [][]int32

	// Error simulation
	ResolveIDError  error
	BulkDeleteError error
	// DeleteErrors scripts per-id failures for DeleteMedia.
	DeleteErrors map[int32]error
}

// NewMockArrer creates a new MockArrer instance.
func NewMockArrer() *MockArrer {
	return &MockArrer{
		ids:          make(map[string]int32),
		DeleteErrors: make(map[int32]error),
	}
}

// Reset clears all data and errors from the mock.
func (m *MockArrer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ids = make(map[string]int32)
	m.deleted = nil
	m.bulkDeleted = nil
	m.ResolveIDError = nil
	m.BulkDeleteError = nil
	m.DeleteErrors = make(map[int32]error)
}

// SetID registers a lookup key that ResolveID will answer.
func (m *MockArrer) SetID(key string, id int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[key] = id
}

// Deleted returns the ids passed to DeleteMedia, in call order.
func (m *MockArrer) Deleted() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int32, len(m.deleted))
	copy(out, m.deleted)
	return out
}

// BulkDeleted returns the id batches passed to BulkDelete.
func (m *MockArrer) BulkDeleted() [][]int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]int32, len(m.bulkDeleted))
	copy(out, m.bulkDeleted)
	return out
}

// ResolveID is a mock implementation. It answers keys registered via
// SetID and reports everything else as not managed.
func (m *MockArrer) ResolveID(_ context.Context, ref arr.MediaRef) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ResolveIDError != nil {
		return 0, m.ResolveIDError
	}
	if id, ok := m.ids[ref.Title]; ok {
		return id, nil
	}
	return 0, arr.ErrNotManaged
}

// DeleteMedia is a mock implementation with per-id scripted errors.
func (m *MockArrer) DeleteMedia(_ context.Context, id int32, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.DeleteErrors[id]; ok {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// BulkDelete is a mock implementation.
func (m *MockArrer) BulkDelete(_ context.Context, ids []int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BulkDeleteError != nil {
		return m.BulkDeleteError
	}
	for _, id := range ids {
		if err, ok := m.DeleteErrors[id]; ok {
			return err
		}
	}
	batch := make([]int32, len(ids))
	copy(batch, ids)
	m.bulkDeleted = append(m.bulkDeleted, batch)
	m.deleted = append(m.deleted, ids...)
	return nil
}

var _ arr.Arrer = (*MockArrer)(nil)
