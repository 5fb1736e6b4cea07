package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

type ListingResult struct {
	Product      domain.Product `json:"product"`
	SavedLocally bool           `json:"savedLocally"`
}

// ListingService publishes new listings to the remote catalog and falls
// back to a local draft when the remote write fails.
type ListingService struct {
	source  port.CatalogSource
	drafts  *DraftStore
	catalog *CatalogService
	logger  *zap.Logger
}

func NewListingService(source port.CatalogSource, drafts *DraftStore, catalog *CatalogService, logger *zap.Logger) *ListingService {
	return &ListingService{
		source:  source,
		drafts:  drafts,
		catalog: catalog,
		logger:  logger.Named("listing"),
	}
}

// Submit returns an error only for an invalid listing, or when the listing
// could be stored neither remotely nor locally.
func (s *ListingService) Submit(ctx context.Context, listing domain.Listing) (ListingResult, error) {
	ctx, span := tracer.Start(ctx, "ListingService.Submit")
	defer span.End()

	listing, err := listing.Normalize()
	if err != nil {
		span.SetStatus(codes.Error, "invalid listing")
		return ListingResult{}, err
	}

	var result ListingResult
	id, err := s.source.InsertProduct(ctx, listing)
	if err == nil {
		result.Product = listing.ToProduct(id)
		telemetry.Listings.WithLabelValues("remote").Inc()
		s.logger.Info("listing published", zap.String("id", id))
	} else {
		span.RecordError(err)
		s.logger.Warn("remote listing failed, saving draft locally", zap.Error(err))

		result.Product = listing.ToProduct(domain.DraftIDPrefix + uuid.NewString())
		result.SavedLocally = true
		if perr := s.drafts.Prepend(ctx, result.Product); perr != nil {
			telemetry.Listings.WithLabelValues("lost").Inc()
			span.SetStatus(codes.Error, "listing not stored")
			return ListingResult{}, fmt.Errorf("save draft: %w", errors.Join(err, perr))
		}
		telemetry.Listings.WithLabelValues("local").Inc()
	}

	span.SetAttributes(
		attribute.String("listing.id", result.Product.ID),
		attribute.Bool("listing.local", result.SavedLocally),
	)

	s.catalog.Refresh(ctx)
	return result, nil
}
