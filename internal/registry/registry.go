// Package registry keeps the list of tracked products.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/models"
)

// ErrNotFound is returned when no product matches the id.
var ErrNotFound = errors.New("product not found")

// Registry is implemented by the Postgres product repository and by Memory.
type Registry interface {
	// Add registers a product. Adding a URL that is already tracked returns
	// the existing product and reactivates it.
	Add(ctx context.Context, p *models.Product) (*models.Product, error)
	ListActive(ctx context.Context) ([]*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Remove(ctx context.Context, id uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

// Memory is an in-process Registry.
type Memory struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*models.Product
	byURL    map[string]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[uuid.UUID]*models.Product),
		byURL:    make(map[string]uuid.UUID),
	}
}

func (m *Memory) Add(ctx context.Context, p *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byURL[p.URL]; ok {
		existing := m.products[id]
		existing.Active = true
		return copyProduct(existing), nil
	}

	stored := copyProduct(p)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.Active = true
	m.products[stored.ID] = stored
	m.byURL[stored.URL] = stored.ID
	return copyProduct(stored), nil
}

func (m *Memory) ListActive(ctx context.Context) ([]*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Product
	for _, p := range m.products {
		if p.Active {
			out = append(out, copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProduct(p), nil
}

func (m *Memory) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok || !p.Active {
		return ErrNotFound
	}
	p.Active = false
	return nil
}

func (m *Memory) Rename(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Name = name
	return nil
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	return &c
}
