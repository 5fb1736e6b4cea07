package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

// Session groups the per-visitor stores. Keys are namespaced by session id
// so sessions never read each other's state.
type Session struct {
	ID       string
	Cart     *CartService
	Wishlist *WishlistService
	Search   *SearchService
}

// SessionRegistry caches live sessions. At most limit sessions are kept and a
// session unused for idleTTL is dropped; its state stays in the store and is
// rehydrated on the next request.
type SessionRegistry struct {
	kv            port.KeyValueStore
	catalog       port.CatalogProvider
	searchLatency time.Duration
	logger        *zap.Logger

	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

func NewSessionRegistry(
	kv port.KeyValueStore,
	catalog port.CatalogProvider,
	searchLatency time.Duration,
	limit int,
	idleTTL time.Duration,
	logger *zap.Logger,
) *SessionRegistry {
	r := &SessionRegistry{
		kv:            kv,
		catalog:       catalog,
		searchLatency: searchLatency,
		logger:        logger,
	}
	r.sessions = expirable.NewLRU[string, *Session](limit, r.onEvict, idleTTL)
	return r
}

// Get returns the session for id, rehydrating it from the store on first
// use. An empty or malformed id gets a fresh session id.
func (r *SessionRegistry) Get(ctx context.Context, id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Get(id)
	if !ok {
		logger := r.logger.With(zap.String("session", id))
		s = &Session{
			ID:       id,
			Cart:     NewCartService(ctx, r.kv, SessionKey(id, CartStateKey), logger),
			Wishlist: NewWishlistService(ctx, r.kv, SessionKey(id, WishlistStateKey), logger),
			Search:   NewSearchService(r.catalog, r.searchLatency, logger),
		}
	}
	// re-adding restarts the idle timer
	r.sessions.Add(id, s)
	return s
}

func (r *SessionRegistry) onEvict(id string, _ *Session) {
	telemetry.SessionsEvicted.Inc()
	r.logger.Debug("session evicted", zap.String("session", id))
}

func (r *SessionRegistry) Len() int {
	return r.sessions.Len()
}

func SessionKey(sessionID, key string) string {
	return "session:" + sessionID + ":" + key
}
