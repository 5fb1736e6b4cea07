package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
)

const orderKeyPrefix = "orders:"

// OrderArchive stores confirmed orders so receipts can be fetched later.
type OrderArchive struct {
	kv     port.KeyValueStore
	logger *zap.Logger
}

func NewOrderArchive(kv port.KeyValueStore, logger *zap.Logger) *OrderArchive {
	return &OrderArchive{kv: kv, logger: logger.Named("orders")}
}

func (a *OrderArchive) Save(ctx context.Context, order domain.Order) error {
	return saveJSON(ctx, a.kv, orderKeyPrefix+order.ID, order, a.logger, "orders")
}

func (a *OrderArchive) Get(ctx context.Context, id string) (domain.Order, bool) {
	var order domain.Order
	if !loadJSON(ctx, a.kv, orderKeyPrefix+id, &order, a.logger, "orders") {
		return domain.Order{}, false
	}
	return order, true
}
