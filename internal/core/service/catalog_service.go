package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

var tracer = otel.Tracer("github.com/rl1809/artisan-storefront/internal/core/service")

// CatalogService merges the remote catalog with local drafts. Remote
// entries come first and win on id collisions. Refresh never fails: when
// the remote source is down the catalog is the drafts alone.
type CatalogService struct {
	source  port.CatalogSource
	drafts  *DraftStore
	timeout time.Duration
	logger  *zap.Logger

	generation    atomic.Uint64
	remoteHealthy atomic.Bool

	mu        sync.RWMutex
	products  []domain.Product
	index     map[string]int
	listeners listeners[[]domain.Product]
}

// NewCatalogService bounds each remote fetch by timeout; zero means no deadline.
func NewCatalogService(source port.CatalogSource, drafts *DraftStore, timeout time.Duration, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		source:  source,
		drafts:  drafts,
		timeout: timeout,
		logger:  logger.Named("catalog"),
		index:   make(map[string]int),
	}
}

// Refresh rebuilds the catalog. The result is published only if no newer
// Refresh was issued meanwhile; the caller always gets its own result.
func (s *CatalogService) Refresh(ctx context.Context) []domain.Product {
	token := s.generation.Add(1)

	ctx, span := tracer.Start(ctx, "CatalogService.Refresh")
	defer span.End()

	local := s.drafts.List(ctx)
	remote, err := s.fetchRemote(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote catalog unavailable")
	}

	catalog := domain.MergeCatalog(remote, local)
	span.SetAttributes(
		attribute.Int64("catalog.generation", int64(token)),
		attribute.Int("catalog.remote", len(remote)),
		attribute.Int("catalog.local", len(local)),
		attribute.Int("catalog.size", len(catalog)),
	)

	if s.publish(token, catalog, err == nil) {
		telemetry.CatalogSize.WithLabelValues("remote").Set(float64(len(remote)))
		telemetry.CatalogSize.WithLabelValues("local").Set(float64(len(local)))
	} else {
		telemetry.StaleResults.WithLabelValues("catalog_refresh").Inc()
		s.logger.Debug("discarding superseded catalog refresh", zap.Uint64("generation", token))
	}

	return catalog
}

func (s *CatalogService) fetchRemote(ctx context.Context) (products []domain.Product, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			products = nil
			err = fmt.Errorf("%w: source panicked: %v", port.ErrRemoteUnavailable, r)
		}
		if err != nil {
			telemetry.RemoteFetchFailures.Inc()
			s.logger.Warn("remote catalog unavailable, serving local drafts", zap.Error(err))
		}
	}()

	rows, err := s.source.ActiveProducts(ctx)
	if err != nil {
		return nil, err
	}

	products = make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, perr := domain.ParseRemoteRow(row)
		if perr != nil {
			telemetry.RejectedRemoteRows.Inc()
			s.logger.Warn("rejecting remote product row", zap.String("id", row.ID), zap.Error(perr))
			continue
		}
		products = append(products, p)
	}

	return products, nil
}

// publish installs catalog and the remote health it was built with, unless
// a newer Refresh has been issued.
func (s *CatalogService) publish(token uint64, catalog []domain.Product, remoteHealthy bool) bool {
	s.mu.Lock()
	if token != s.generation.Load() {
		s.mu.Unlock()
		return false
	}

	s.remoteHealthy.Store(remoteHealthy)
	s.products = catalog
	s.index = make(map[string]int, len(catalog))
	for i, p := range catalog {
		s.index[p.ID] = i
	}
	snapshot := append([]domain.Product(nil), catalog...)
	s.mu.Unlock()

	s.listeners.notify(snapshot)
	return true
}

// Products returns a copy of the last published catalog.
func (s *CatalogService) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

func (s *CatalogService) Product(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[i], true
}

// Categories lists distinct categories in first-seen order.
func (s *CatalogService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, p := range s.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}

// RemoteHealthy reports whether the remote fetch behind the published
// catalog succeeded.
func (s *CatalogService) RemoteHealthy() bool {
	return s.remoteHealthy.Load()
}

func (s *CatalogService) Subscribe(fn func([]domain.Product)) func() {
	return s.listeners.add(fn)
}
