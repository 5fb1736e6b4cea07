package service

import "errors"

var (
	// ErrPersistence wraps key value store failures. Stores log and swallow it.
	ErrPersistence = errors.New("persistence failed")

	// ErrStaleResult means a newer request superseded this one before it resolved.
	ErrStaleResult = errors.New("result superseded by a newer request")

	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutClosed     = errors.New("checkout is shutting down")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)
