package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/money"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

// CheckoutService runs the simulated payment step. Payment always succeeds
// after a fixed delay; confirmed orders are queued for the archive workers.
type CheckoutService struct {
	latency    time.Duration
	logger     *zap.Logger
	orderQueue chan domain.Order

	mu     sync.RWMutex
	closed bool
}

func NewCheckoutService(latency time.Duration, queueSize int, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		latency:    latency,
		logger:     logger.Named("checkout"),
		orderQueue: make(chan domain.Order, queueSize),
	}
}

// Checkout charges the cart as it stands when called. Items added while
// payment is pending stay in the cart; a second checkout on the same cart
// fails with ErrCheckoutInProgress until the first one returns.
func (s *CheckoutService) Checkout(ctx context.Context, cart *CartService, method domain.PaymentMethod) (domain.Order, error) {
	release, ok := cart.BeginCheckout()
	if !ok {
		return domain.Order{}, ErrCheckoutInProgress
	}
	defer release()

	state := cart.State()
	if state.IsEmpty() {
		return domain.Order{}, ErrEmptyCart
	}

	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return domain.Order{}, ctx.Err()
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		Lines:      state.SortedLines(),
		TotalItems: state.TotalItems,
		TotalPrice: state.TotalPrice,
		Method:     method,
		Status:     domain.OrderStatusConfirmed,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.enqueue(ctx, order); err != nil {
		return domain.Order{}, err
	}

	cart.RemovePurchased(ctx, order.Lines)
	telemetry.Checkouts.Inc()
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("total", money.Display(order.TotalPrice)),
		zap.String("method", string(method)),
	)

	return order, nil
}

func (s *CheckoutService) enqueue(ctx context.Context, order domain.Order) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrCheckoutClosed
	}

	select {
	case s.orderQueue <- order:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue order %s: %w", order.ID, ctx.Err())
	}
}

func (s *CheckoutService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *CheckoutService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.orderQueue)
	}
}
