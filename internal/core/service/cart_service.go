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

type cartSnapshot struct {
	Lines      []domain.CartLine `json:"lines"`
	TotalItems int               `json:"totalItems"`
	TotalPrice int64             `json:"totalPrice"`
}

// CartService owns one shopping cart. Every mutation recomputes the totals
// and writes the whole cart back under its key before returning.
type CartService struct {
	kv     port.KeyValueStore
	key    string
	logger *zap.Logger

	mu        sync.Mutex
	state     domain.CartState
	listeners listeners[domain.CartState]

	// held from the end of a mutation until its subscribers have run
	notifyMu sync.Mutex
	// held for the duration of one checkout
	checkoutMu sync.Mutex
}

// NewCartService rehydrates the cart stored under key (CartStateKey when empty).
func NewCartService(ctx context.Context, kv port.KeyValueStore, key string, logger *zap.Logger) *CartService {
	if key == "" {
		key = CartStateKey
	}

	s := &CartService{
		kv:     kv,
		key:    key,
		logger: logger.Named("cart"),
	}
	s.state = s.load(ctx)

	return s
}

func (s *CartService) load(ctx context.Context) domain.CartState {
	state := domain.EmptyCart()

	var snap cartSnapshot
	if !loadJSON(ctx, s.kv, s.key, &snap, s.logger, "cart") {
		return state
	}

	// stored totals are ignored, they are derived from the lines
	for _, line := range snap.Lines {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if _, dup := state.Lines[line.ProductID]; dup {
			continue
		}
		state.Lines[line.ProductID] = line
	}
	state.Recalculate()

	return state
}

// AddItem increments the line for p or creates it with quantity 1.
func (s *CartService) AddItem(ctx context.Context, p domain.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return domain.ErrMissingProductID
	}

	s.mutate(ctx, "add", func(state *domain.CartState) {
		state.Add(p)
	})
	return nil
}

// UpdateQuantity sets the quantity of an existing line; quantity <= 0 removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mutate(ctx, "update_quantity", func(state *domain.CartState) {
		state.SetQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, productID string) {
	s.mutate(ctx, "remove", func(state *domain.CartState) {
		state.Remove(productID)
	})
}

func (s *CartService) ClearCart(ctx context.Context) {
	s.mutate(ctx, "clear", func(state *domain.CartState) {
		state.Clear()
	})
}

// RemovePurchased takes the quantities of lines out of the cart, leaving
// anything added after they were snapshotted.
func (s *CartService) RemovePurchased(ctx context.Context, lines []domain.CartLine) {
	s.mutate(ctx, "checkout", func(state *domain.CartState) {
		state.Subtract(lines)
	})
}

// BeginCheckout claims the cart for a single checkout. It reports false while
// another checkout holds the claim; otherwise release must be called once.
func (s *CartService) BeginCheckout() (release func(), ok bool) {
	if !s.checkoutMu.TryLock() {
		return nil, false
	}
	return s.checkoutMu.Unlock, true
}

func (s *CartService) mutate(ctx context.Context, op string, fn func(*domain.CartState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	// persistence errors are already logged and never reach the caller
	_ = saveJSON(ctx, s.kv, s.key, cartSnapshot{
		Lines:      snapshot.SortedLines(),
		TotalItems: snapshot.TotalItems,
		TotalPrice: snapshot.TotalPrice,
	}, s.logger, "cart")
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	telemetry.StoreMutations.WithLabelValues("cart", op).Inc()
	s.listeners.notify(snapshot)
}

func (s *CartService) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *CartService) Totals() (items int, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalItems, s.state.TotalPrice
}

// Subscribe registers fn for every state change and returns its cancel func.
// Snapshots arrive in mutation order. fn may read the cart but must not
// mutate it.
func (s *CartService) Subscribe(fn func(domain.CartState)) func() {
	return s.listeners.add(fn)
}
