package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/core/service"
	"github.com/rl1809/artisan-storefront/internal/money"
)

const SessionHeader = "X-Session-ID"

type sessionKey struct{}

type HTTPHandler struct {
	catalog  *service.CatalogService
	sessions *service.SessionRegistry
	listings *service.ListingService
	checkout *service.CheckoutService
	orders   *service.OrderArchive
	logger   *zap.Logger
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ProductRequest struct {
	ProductID string `json:"productId"`
}

type QuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type CheckoutRequest struct {
	Method string `json:"method"`
}

type CartResponse struct {
	Lines          []domain.CartLine `json:"lines"`
	TotalItems     int               `json:"totalItems"`
	TotalPrice     int64             `json:"totalPrice"`
	FormattedTotal string            `json:"formattedTotal"`
}

type WishlistResponse struct {
	Items []domain.Product `json:"items"`
	Count int              `json:"count"`
}

type CatalogResponse struct {
	Products      []domain.Product `json:"products"`
	Categories    []string         `json:"categories"`
	RemoteHealthy bool             `json:"remoteHealthy"`
}

// SearchResponse with Superseded set carries no results: a newer search on
// the same session replaced this one.
type SearchResponse struct {
	Query      domain.Query     `json:"query"`
	Products   []domain.Product `json:"products"`
	Count      int              `json:"count"`
	Superseded bool             `json:"superseded,omitempty"`
}

type ReceiptResponse struct {
	Order          domain.Order `json:"order"`
	FormattedTotal string       `json:"formattedTotal"`
}

type MoveResponse struct {
	Cart     CartResponse     `json:"cart"`
	Wishlist WishlistResponse `json:"wishlist"`
}

func NewHTTPHandler(
	catalog *service.CatalogService,
	sessions *service.SessionRegistry,
	listings *service.ListingService,
	checkout *service.CheckoutService,
	orders *service.OrderArchive,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		catalog:  catalog,
		sessions: sessions,
		listings: listings,
		checkout: checkout,
		orders:   orders,
		logger:   logger.Named("http"),
	}
}

// Routes builds the storefront router. Search, cart and wishlist routes run
// inside a session resolved from the X-Session-ID header; the rest are
// session-free.
func (h *HTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.ListCatalog)
		r.Post("/catalog/refresh", h.RefreshCatalog)
		r.Get("/catalog/{id}", h.GetProduct)
		r.Post("/listings", h.SubmitListing)
		r.Get("/orders/{id}", h.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(h.withSession)

			r.Get("/search", h.Search)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddToCart)
				r.Put("/items/{id}", h.UpdateCartItem)
				r.Delete("/items/{id}", h.RemoveFromCart)
				r.Post("/checkout", h.Checkout)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", h.GetWishlist)
				r.Delete("/", h.ClearWishlist)
				r.Post("/items", h.AddToWishlist)
				r.Delete("/items/{id}", h.RemoveFromWishlist)
				r.Post("/items/{id}/move-to-cart", h.MoveToCart)
			})
		})
	})

	return r
}

func (h *HTTPHandler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.Get(r.Context(), r.Header.Get(SessionHeader))
		w.Header().Set(SessionHeader, session.ID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func sessionFrom(r *http.Request) *service.Session {
	return r.Context().Value(sessionKey{}).(*service.Session)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !h.catalog.RemoteHealthy() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *HTTPHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalogResponse(h.catalog.Products()))
}

func (h *HTTPHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalogResponse(h.catalog.Refresh(r.Context())))
}

func (h *HTTPHandler) catalogResponse(products []domain.Product) CatalogResponse {
	if products == nil {
		products = []domain.Product{}
	}
	return CatalogResponse{
		Products:      products,
		Categories:    h.catalog.Categories(),
		RemoteHealthy: h.catalog.RemoteHealthy(),
	}
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.Product(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	sort, err := domain.ParseSortKey(params.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	band, err := domain.ParsePriceRange(params.Get("price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := domain.Query{
		Text:       params.Get("q"),
		Category:   params.Get("category"),
		Sort:       sort,
		PriceRange: band,
	}

	products, err := sessionFrom(r).Search.Search(r.Context(), q)
	if errors.Is(err, service.ErrStaleResult) {
		writeJSON(w, http.StatusOK, SearchResponse{Query: q, Products: []domain.Product{}, Superseded: true})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Products: products, Count: len(products)})
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cartResponse(sessionFrom(r).Cart))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart := sessionFrom(r).Cart
	cart.ClearCart(r.Context())
	writeJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	cart := sessionFrom(r).Cart
	if err := cart.AddItem(r.Context(), p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	cart := sessionFrom(r).Cart
	cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	writeJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart := sessionFrom(r).Cart
	cart.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.checkout.Checkout(r.Context(), sessionFrom(r).Cart, method)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReceiptResponse{Order: order, FormattedTotal: money.Display(order.TotalPrice)})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, ReceiptResponse{Order: order, FormattedTotal: money.Display(order.TotalPrice)})
}

func (h *HTTPHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wishlistResponse(sessionFrom(r).Wishlist))
}

func (h *HTTPHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	wishlist := sessionFrom(r).Wishlist
	wishlist.ClearWishlist(r.Context())
	writeJSON(w, http.StatusOK, wishlistResponse(wishlist))
}

func (h *HTTPHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	wishlist := sessionFrom(r).Wishlist
	if err := wishlist.AddItem(r.Context(), p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wishlistResponse(wishlist))
}

func (h *HTTPHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	wishlist := sessionFrom(r).Wishlist
	wishlist.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, wishlistResponse(wishlist))
}

func (h *HTTPHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	moved, err := session.Wishlist.MoveToCart(r.Context(), chi.URLParam(r, "id"), session.Cart)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !moved {
		writeError(w, http.StatusNotFound, "product not in wishlist")
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{
		Cart:     cartResponse(session.Cart),
		Wishlist: wishlistResponse(session.Wishlist),
	})
}

func (h *HTTPHandler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	var listing domain.Listing
	if err := json.NewDecoder(r.Body).Decode(&listing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.listings.Submit(r.Context(), listing)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.SavedLocally {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// decodeProduct resolves the product named in the request body against
// the current catalog.
func (h *HTTPHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return domain.Product{}, false
	}

	p, ok := h.catalog.Product(req.ProductID)
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return domain.Product{}, false
	}
	return p, true
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrEmptyCart):
		status = http.StatusConflict
		message = "cart is empty"
	case errors.Is(err, service.ErrCheckoutInProgress):
		status = http.StatusConflict
		message = "checkout already in progress"
	case errors.Is(err, service.ErrCheckoutClosed):
		status = http.StatusServiceUnavailable
		message = "checkout unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "request cancelled"
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Stringer("trace_id", trace.SpanContextFromContext(r.Context()).TraceID()),
			zap.Error(err),
		)
	}

	writeError(w, status, message)
}

func cartResponse(cart *service.CartService) CartResponse {
	state := cart.State()
	return CartResponse{
		Lines:          state.SortedLines(),
		TotalItems:     state.TotalItems,
		TotalPrice:     state.TotalPrice,
		FormattedTotal: money.Display(state.TotalPrice),
	}
}

func wishlistResponse(wishlist *service.WishlistService) WishlistResponse {
	items := wishlist.Items()
	if items == nil {
		items = []domain.Product{}
	}
	return WishlistResponse{Items: items, Count: len(items)}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
