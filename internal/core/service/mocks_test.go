package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
)

// Mock KeyValueStore
type mockKV struct {
	mu       sync.Mutex
	values   map[string]string
	failGet  bool
	failSet  bool
	setCalls int
}

func newMockKV() *mockKV {
	return &mockKV{values: make(map[string]string)}
}

func (m *mockKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet {
		return "", false, errors.New("kv read failed")
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls++
	if m.failSet {
		return errors.New("kv write failed")
	}
	m.values[key] = value
	return nil
}

func (m *mockKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *mockKV) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockKV) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Mock CatalogSource
type mockSource struct {
	mu        sync.Mutex
	rows      []domain.RemoteRow
	err       error
	insertErr error
	panics    bool
	block     chan struct{}
	fetch     func(ctx context.Context) ([]domain.RemoteRow, error)
	inserted  []domain.Listing
}

func (m *mockSource) ActiveProducts(ctx context.Context) ([]domain.RemoteRow, error) {
	m.mu.Lock()
	rows, err, block, panics, fetch := m.rows, m.err, m.block, m.panics, m.fetch
	m.mu.Unlock()

	if fetch != nil {
		return fetch(ctx)
	}
	if panics {
		panic("driver exploded")
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rows, err
}

func (m *mockSource) InsertProduct(ctx context.Context, listing domain.Listing) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return "", m.insertErr
	}
	m.inserted = append(m.inserted, listing)
	return "remote-new", nil
}

var _ port.CatalogSource = (*mockSource)(nil)

// Static CatalogProvider
type staticCatalog struct {
	mu       sync.Mutex
	products []domain.Product
	reads    int
}

func (c *staticCatalog) Products() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return append([]domain.Product(nil), c.products...)
}

func (c *staticCatalog) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
