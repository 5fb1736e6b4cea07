package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrMissingProductID = fmt.Errorf("%w: product id is required", ErrValidation)
	ErrMissingIdentity  = fmt.Errorf("%w: remote row has no id or name", ErrValidation)
	ErrMalformedRow     = fmt.Errorf("%w: remote row is malformed", ErrValidation)
	ErrInvalidListing   = fmt.Errorf("%w: invalid listing", ErrValidation)
	ErrUnknownSortKey   = fmt.Errorf("%w: unknown sort key", ErrValidation)
	ErrUnknownPriceBand = fmt.Errorf("%w: unknown price range", ErrValidation)
	ErrUnknownPayment   = fmt.Errorf("%w: unknown payment method", ErrValidation)
)
