// Package handler exposes the storefront HTTP API: gate unlock, catalog
// reads, cart mutations, checkout hand-off, and email signup.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oddline/storefront/internal/domain/cart"
	"github.com/oddline/storefront/internal/domain/catalog"
	"github.com/oddline/storefront/internal/gate"
	"github.com/oddline/storefront/internal/signup"
)

const (
	gateCookieName = "gate_token"
	cartCookieName = "cart_id"

	// cartCookieTTL keeps the cart identifier stable well past a single
	// session so the cart survives reloads and return visits.
	cartCookieTTL = 180 * 24 * time.Hour
)

// Handler serves the storefront API routes.
type Handler struct {
	gate    *gate.Gate
	catalog catalog.Repository
	carts   *cart.Service
	signups *signup.Service

	secureCookies bool
}

// Config holds non-dependency settings for the Handler.
type Config struct {
	// SecureCookies marks issued cookies Secure; enable everywhere except
	// plain-HTTP local development.
	SecureCookies bool
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	g *gate.Gate,
	catalogRepo catalog.Repository,
	carts *cart.Service,
	signups *signup.Service,
) *Handler {
	return &Handler{
		gate:          g,
		catalog:       catalogRepo,
		carts:         carts,
		signups:       signups,
		secureCookies: cfg.SecureCookies,
	}
}

// Routes returns the chi router for all storefront endpoints. Gate unlock and
// signup are public (they serve the landing page); everything behind the gate
// requires a valid gate token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/gate", h.UnlockGate)
	r.Post("/api/signup", h.Signup)

	r.Group(func(r chi.Router) {
		r.Use(h.requireGate)

		r.Get("/api/products", h.ListProducts)
		r.Get("/api/products/{handle}", h.GetProduct)

		r.Get("/api/cart", h.GetCart)
		r.Post("/api/cart/items", h.AddCartItem)
		r.Patch("/api/cart/items/{variantID}", h.UpdateCartItem)
		r.Delete("/api/cart/items/{variantID}", h.RemoveCartItem)
		r.Post("/api/cart/checkout", h.CreateCheckout)
	})

	return r
}

// requireGate rejects requests that lack a valid gate session token.
func (h *Handler) requireGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(gateCookieName)
		if err != nil || h.gate.Verify(c.Value) != nil {
			writeError(w, http.StatusUnauthorized, "gate locked")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cartID returns the client's stable cart identifier, minting and setting one
// when the request carries none.
func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookieName); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(cartCookieTTL),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
