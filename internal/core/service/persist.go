package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

const (
	CartStateKey     = "cart-state"
	WishlistStateKey = "wishlist-state"
	DraftsKey        = "community-drafts"
)

// loadJSON decodes the value under key into v. A missing, unreadable or
// corrupt value reports false and leaves the caller with its empty state.
func loadJSON(ctx context.Context, kv port.KeyValueStore, key string, v any, logger *zap.Logger, store string) bool {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		telemetry.PersistFailures.WithLabelValues(store, "read").Inc()
		logger.Warn("read persisted state failed, starting empty",
			zap.String("store", store), zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		telemetry.PersistFailures.WithLabelValues(store, "decode").Inc()
		logger.Warn("discarding corrupt persisted state",
			zap.String("store", store), zap.String("key", key), zap.Error(err))
		return false
	}

	return true
}

func saveJSON(ctx context.Context, kv port.KeyValueStore, key string, v any, logger *zap.Logger, store string) error {
	data, err := json.Marshal(v)
	if err != nil {
		telemetry.PersistFailures.WithLabelValues(store, "encode").Inc()
		return fmt.Errorf("%w: encode %s: %w", ErrPersistence, key, err)
	}

	if err := kv.Set(ctx, key, string(data)); err != nil {
		telemetry.PersistFailures.WithLabelValues(store, "write").Inc()
		logger.Warn("persist state failed, keeping in-memory state",
			zap.String("store", store), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, key, err)
	}

	return nil
}
