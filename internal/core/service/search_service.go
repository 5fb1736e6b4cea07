package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

// SearchResult is what a view renders. Loading is set while the latest
// request is still in flight; Products then still holds the previous result.
type SearchResult struct {
	Generation uint64           `json:"generation"`
	Query      domain.Query     `json:"query"`
	Products   []domain.Product `json:"products"`
	Loading    bool             `json:"loading"`
}

type searchOutcome struct {
	result SearchResult
	stale  bool
}

// SearchService runs queries against the current catalog after a fixed
// simulated latency. Each Submit takes a new generation; a result is
// published only while its generation is still the latest one issued.
type SearchService struct {
	catalog port.CatalogProvider
	latency time.Duration
	logger  *zap.Logger
	after   func(time.Duration) <-chan time.Time

	mu         sync.Mutex
	generation uint64
	current    SearchResult
	waiters    map[uint64]chan searchOutcome
	inflight   sync.WaitGroup
	listeners  listeners[SearchResult]
}

func NewSearchService(catalog port.CatalogProvider, latency time.Duration, logger *zap.Logger) *SearchService {
	return &SearchService{
		catalog: catalog,
		latency: latency,
		logger:  logger.Named("search"),
		after:   time.After,
		current: SearchResult{Products: []domain.Product{}},
		waiters: make(map[uint64]chan searchOutcome),
	}
}

// Submit issues q and returns its generation. A blank query publishes an
// empty result at once and supersedes anything still in flight.
func (s *SearchService) Submit(q domain.Query) uint64 {
	return s.submit(q, nil)
}

func (s *SearchService) submit(q domain.Query, waiter chan searchOutcome) uint64 {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if waiter != nil {
		s.waiters[gen] = waiter
	}

	if q.Blank() {
		result := SearchResult{Generation: gen, Query: q, Products: []domain.Product{}}
		s.current = result
		s.settle(gen, searchOutcome{result: result})
		s.mu.Unlock()

		s.listeners.notify(result)
		return gen
	}

	s.current.Generation = gen
	s.current.Query = q
	s.current.Loading = true
	loading := s.current
	s.inflight.Add(1)
	s.mu.Unlock()

	s.listeners.notify(loading)
	go s.run(gen, q, time.Now())
	return gen
}

func (s *SearchService) run(gen uint64, q domain.Query, started time.Time) {
	defer s.inflight.Done()

	<-s.after(s.latency)

	// superseded requests skip the filter work entirely
	if s.isStale(gen) {
		s.discard(gen)
		return
	}

	products := s.compute(q)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.discard(gen)
		return
	}
	result := SearchResult{Generation: gen, Query: q, Products: products}
	s.current = result
	s.settle(gen, searchOutcome{result: result})
	s.mu.Unlock()

	telemetry.SearchLatency.Observe(time.Since(started).Seconds())
	s.listeners.notify(result)
}

func (s *SearchService) compute(q domain.Query) []domain.Product {
	_, span := tracer.Start(context.Background(), "SearchService.compute")
	defer span.End()

	catalog := s.catalog.Products()
	products := domain.Apply(catalog, q)

	span.SetAttributes(
		attribute.String("search.sort", string(q.Sort)),
		attribute.Int("search.candidates", len(catalog)),
		attribute.Int("search.results", len(products)),
	)
	return products
}

func (s *SearchService) isStale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.generation
}

func (s *SearchService) discard(gen uint64) {
	telemetry.StaleResults.WithLabelValues("search").Inc()
	s.logger.Debug("discarding superseded search result", zap.Uint64("generation", gen))

	s.mu.Lock()
	s.settle(gen, searchOutcome{stale: true})
	s.mu.Unlock()
}

// settle hands the outcome to a blocked Search call, if any. Callers hold s.mu.
func (s *SearchService) settle(gen uint64, outcome searchOutcome) {
	if ch, ok := s.waiters[gen]; ok {
		ch <- outcome
		delete(s.waiters, gen)
	}
}

// Search submits q and blocks until it resolves. It returns ErrStaleResult
// when a newer request superseded q first.
func (s *SearchService) Search(ctx context.Context, q domain.Query) ([]domain.Product, error) {
	waiter := make(chan searchOutcome, 1)
	gen := s.submit(q, waiter)

	select {
	case outcome := <-waiter:
		if outcome.stale {
			return nil, ErrStaleResult
		}
		return outcome.result.Products, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.waiters, gen)
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Current returns the visible result.
func (s *SearchService) Current() SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.current
	result.Products = append([]domain.Product{}, s.current.Products...)
	return result
}

// Wait blocks until every in-flight request has published or been discarded.
func (s *SearchService) Wait() {
	s.inflight.Wait()
}

func (s *SearchService) Subscribe(fn func(SearchResult)) func() {
	return s.listeners.add(fn)
}
