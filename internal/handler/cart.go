package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oddline/storefront/internal/commerce"
	"github.com/oddline/storefront/internal/domain/cart"
)

// cartResponse is the cart with its derived totals. Totals are recomputed on
// every read; the total price is rounded to two decimal places here, at the
// presentation boundary.
type cartResponse struct {
	Items      []cart.LineItem    `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice totalPriceResponse `json:"totalPrice"`
}

type totalPriceResponse struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode,omitempty"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	total := c.TotalPrice()
	return cartResponse{
		Items:      c.Items(),
		TotalItems: c.TotalItems(),
		TotalPrice: totalPriceResponse{
			Amount:       total.Amount.StringFixed(2),
			CurrencyCode: total.CurrencyCode,
		},
	}
}

// GetCart returns the client's current cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), h.cartID(w, r))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddCartItem adds a line item to the cart. Adding a variant that is already
// present merges quantities; the stored price and options snapshot is kept.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var item cart.LineItem
	if err := decodeBody(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if item.VariantID == "" {
		writeError(w, http.StatusBadRequest, "variantId required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), h.cartID(w, r), item)
	if err != nil {
		var iqErr *cart.InvalidQuantityError
		if errors.As(err, &iqErr) {
			writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets the quantity of a line item. Zero or negative removes
// the item; an unknown variant leaves the cart unchanged.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variantID := chi.URLParam(r, "variantID")
	c, err := h.carts.UpdateQuantity(r.Context(), h.cartID(w, r), variantID, req.Quantity)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem deletes a line item; removing an absent variant is a no-op.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")
	c, err := h.carts.RemoveItem(r.Context(), h.cartID(w, r), variantID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// CreateCheckout creates a checkout session on the commerce platform for the
// current cart and returns its URL. The cart is never modified here, so a
// failed attempt can simply be retried.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	url, err := h.carts.CreateCheckout(r.Context(), h.cartID(w, r))
	if err != nil {
		if errors.Is(err, cart.ErrCheckoutInFlight) {
			writeError(w, http.StatusConflict, "checkout already in progress")
			return
		}

		// Empty responses, platform rejections, and transport failures are
		// distinguished in logs but presented identically: retryable failure.
		lg := zctx.From(r.Context())
		switch {
		case errors.Is(err, commerce.ErrEmptyCheckout):
			lg.Warn("checkout returned no url", zap.Error(err))
		default:
			lg.Error("checkout failed", zap.Error(err))
		}
		writeError(w, http.StatusBadGateway, "checkout failed, please try again")
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{CheckoutURL: url})
}
