// Package mock provides an in-memory catalog for tests.
package mock

import (
	"context"
	"sync"

	"github.com/plexsweep/plexsweep/internal/catalog"
	"github.com/plexsweep/plexsweep/internal/rules"
)

// MockCatalog is an in-memory catalog.Catalog implementation.
type MockCatalog struct {
	mu    sync.Mutex
	items map[rules.MediaType][]rules.MediaItem

	// Err, when set, is returned by ListMediaItems. With FailAtOffset >= 0
	// only calls starting at or past that offset fail, so tests can let a
	// scan make partial progress before the catalog goes away.
	Err          error
	FailAtOffset int

	calls int
}

var _ catalog.Catalog = (*MockCatalog)(nil)

// NewMockCatalog creates an empty mock catalog.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		items:        make(map[rules.MediaType][]rules.MediaItem),
		FailAtOffset: -1,
	}
}

// SetItems replaces the items served for a media type.
func (m *MockCatalog) SetItems(mediaType rules.MediaType, items []rules.MediaItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[mediaType] = items
}

// Calls returns the number of ListMediaItems invocations.
func (m *MockCatalog) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ListMediaItems serves the configured items page by page.
func (m *MockCatalog) ListMediaItems(_ context.Context, mediaType rules.MediaType, offset, limit int) (*catalog.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.Err != nil && (m.FailAtOffset < 0 || offset >= m.FailAtOffset) {
		return nil, m.Err
	}

	all := m.items[mediaType]
	page := &catalog.Page{Offset: offset}
	if offset >= len(all) {
		return page, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page.Items = append(page.Items, all[offset:end]...)
	return page, nil
}
