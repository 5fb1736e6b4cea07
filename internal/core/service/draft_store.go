package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
)

// DraftStore keeps locally authored products, newest first.
type DraftStore struct {
	kv     port.KeyValueStore
	key    string
	logger *zap.Logger

	// serializes read-modify-write within this process only
	mu sync.Mutex
}

func NewDraftStore(kv port.KeyValueStore, logger *zap.Logger) *DraftStore {
	return &DraftStore{
		kv:     kv,
		key:    DraftsKey,
		logger: logger.Named("drafts"),
	}
}

// List returns the stored drafts, or nil when none are stored or the value is corrupt.
func (d *DraftStore) List(ctx context.Context) []domain.Product {
	var drafts []domain.Product
	if !loadJSON(ctx, d.kv, d.key, &drafts, d.logger, "drafts") {
		return nil
	}
	return drafts
}

func (d *DraftStore) Prepend(ctx context.Context, p domain.Product) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	drafts := append([]domain.Product{p}, d.List(ctx)...)
	return saveJSON(ctx, d.kv, d.key, drafts, d.logger, "drafts")
}
