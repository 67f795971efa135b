package assetstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// MockAssetStore is an in-memory AssetStore for tests.
type MockAssetStore struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte

	// GetErr, when set, is returned by every GetPNG call.
	GetErr error
}

func NewMockAssetStore() *MockAssetStore {
	return &MockAssetStore{blobs: make(map[uuid.UUID][]byte)}
}

func (m *MockAssetStore) GetPNG(_ context.Context, cardID uuid.UUID) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[cardID]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MockAssetStore) SavePNG(_ context.Context, cardID uuid.UUID, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := make([]byte, len(data))
	copy(clone, data)
	m.blobs[cardID] = clone
	return nil
}

var _ AssetStore = (*MockAssetStore)(nil)
