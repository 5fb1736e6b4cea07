package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
	PaymentCash   PaymentMethod = "cash"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return PaymentCard, nil
	case PaymentCard, PaymentWallet, PaymentCash:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPayment, s)
	}
}

// Order is the receipt of a simulated checkout.
type Order struct {
	ID         string        `json:"id"`
	Lines      []CartLine    `json:"lines"`
	TotalItems int           `json:"totalItems"`
	TotalPrice int64         `json:"totalPrice"`
	Method     PaymentMethod `json:"method"`
	Status     OrderStatus   `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}
