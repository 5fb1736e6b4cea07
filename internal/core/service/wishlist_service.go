package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

// WishlistService owns the saved-items set. It shares the cart's
// persistence contract on its own key.
type WishlistService struct {
	kv     port.KeyValueStore
	key    string
	logger *zap.Logger

	mu        sync.Mutex
	state     domain.WishlistState
	listeners listeners[[]domain.Product]
	notifyMu  sync.Mutex
}

func NewWishlistService(ctx context.Context, kv port.KeyValueStore, key string, logger *zap.Logger) *WishlistService {
	if key == "" {
		key = WishlistStateKey
	}

	s := &WishlistService{
		kv:     kv,
		key:    key,
		logger: logger.Named("wishlist"),
	}
	s.state = s.load(ctx)

	return s
}

func (s *WishlistService) load(ctx context.Context) domain.WishlistState {
	state := domain.EmptyWishlist()

	var items []domain.Product
	if !loadJSON(ctx, s.kv, s.key, &items, s.logger, "wishlist") {
		return state
	}
	for _, p := range items {
		if p.ID == "" {
			continue
		}
		state.Add(p)
	}

	return state
}

// AddItem is idempotent: a product already saved is left untouched.
func (s *WishlistService) AddItem(ctx context.Context, p domain.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return domain.ErrMissingProductID
	}

	s.mutate(ctx, "add", func(state *domain.WishlistState) {
		state.Add(p)
	})
	return nil
}

func (s *WishlistService) RemoveItem(ctx context.Context, id string) {
	s.mutate(ctx, "remove", func(state *domain.WishlistState) {
		state.Remove(id)
	})
}

func (s *WishlistService) ClearWishlist(ctx context.Context) {
	s.mutate(ctx, "clear", func(state *domain.WishlistState) {
		state.Clear()
	})
}

// MoveToCart adds the saved product to cart and drops it from the wishlist.
// It reports false when id is not saved.
func (s *WishlistService) MoveToCart(ctx context.Context, id string, cart *CartService) (bool, error) {
	s.mu.Lock()
	p, ok := s.state.Get(id)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	if err := cart.AddItem(ctx, p); err != nil {
		return false, err
	}
	s.RemoveItem(ctx, id)
	return true, nil
}

func (s *WishlistService) mutate(ctx context.Context, op string, fn func(*domain.WishlistState)) {
	s.mu.Lock()
	fn(&s.state)
	items := s.state.Items()
	_ = saveJSON(ctx, s.kv, s.key, items, s.logger, "wishlist")
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	telemetry.StoreMutations.WithLabelValues("wishlist", op).Inc()
	s.listeners.notify(items)
}

func (s *WishlistService) IsInWishlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Contains(id)
}

func (s *WishlistService) Items() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Items()
}

func (s *WishlistService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Len()
}

// Subscribe delivers the items after every change, in mutation order. fn
// must not mutate the wishlist.
func (s *WishlistService) Subscribe(fn func([]domain.Product)) func() {
	return s.listeners.add(fn)
}
