package history

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/models"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID][]models.PriceRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[uuid.UUID][]models.PriceRecord)}
}

func (m *Memory) Append(ctx context.Context, rec models.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.records[rec.ProductID]
	if n := len(existing); n > 0 && !rec.ObservedAt.After(existing[n-1].ObservedAt) {
		return ErrDuplicateRecord
	}
	m.records[rec.ProductID] = append(existing, rec)
	return nil
}

func (m *Memory) Latest(ctx context.Context, productID uuid.UUID) (*models.PriceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := m.records[productID]
	if len(existing) == 0 {
		return nil, nil
	}
	latest := existing[len(existing)-1]
	return &latest, nil
}

func (m *Memory) Recent(ctx context.Context, productID uuid.UUID, n int) ([]models.PriceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := m.records[productID]
	if n <= 0 || n > len(existing) {
		n = len(existing)
	}
	out := make([]models.PriceRecord, n)
	copy(out, existing[len(existing)-n:])
	return out, nil
}
