package port

import (
	"context"
	"errors"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
)

var ErrRemoteUnavailable = errors.New("remote catalog unavailable")

type CatalogSource interface {
	// ActiveProducts returns every remote product row with status active
	ActiveProducts(ctx context.Context) ([]domain.RemoteRow, error)

	// InsertProduct publishes a listing and returns its remote id
	InsertProduct(ctx context.Context, listing domain.Listing) (string, error)
}

// CatalogProvider exposes the current aggregated catalog.
type CatalogProvider interface {
	Products() []domain.Product
}
