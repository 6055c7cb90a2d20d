package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oddline/storefront/internal/domain/catalog"
)

const (
	defaultProductPageSize = 20
	maxProductPageSize     = 100
)

// Product response shapes. Monetary amounts serialize as decimal strings.

type priceResponse struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type optionResponse struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type selectedOptionResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type variantResponse struct {
	ID              string                   `json:"id"`
	Title           string                   `json:"title"`
	Price           priceResponse            `json:"price"`
	SelectedOptions []selectedOptionResponse `json:"selectedOptions"`
}

type imageResponse struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}

type productResponse struct {
	ID          string            `json:"id"`
	Handle      string            `json:"handle"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Options     []optionResponse  `json:"options"`
	Variants    []variantResponse `json:"variants"`
	Images      []imageResponse   `json:"images"`
	PriceRange  struct {
		Min priceResponse `json:"min"`
		Max priceResponse `json:"max"`
	} `json:"priceRange"`
}

// ListProducts returns a page of the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	first := defaultProductPageSize
	if raw := r.URL.Query().Get("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "first must be a positive integer")
			return
		}
		first = min(n, maxProductPageSize)
	}

	products, err := h.catalog.List(r.Context(), first)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product by its URL handle.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	p, err := h.catalog.GetByHandle(r.Context(), handle)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

func toProductResponse(p catalog.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		Description: p.Description,
		Tags:        p.Tags,
	}
	resp.PriceRange.Min = toPriceResponse(p.PriceRange.Min)
	resp.PriceRange.Max = toPriceResponse(p.PriceRange.Max)

	resp.Options = make([]optionResponse, len(p.Options))
	for i, o := range p.Options {
		resp.Options[i] = optionResponse{Name: o.Name, Values: o.Values}
	}

	resp.Variants = make([]variantResponse, len(p.Variants))
	for i, v := range p.Variants {
		vr := variantResponse{
			ID:    v.ID,
			Title: v.Title,
			Price: toPriceResponse(v.Price),
		}
		vr.SelectedOptions = make([]selectedOptionResponse, len(v.SelectedOptions))
		for j, so := range v.SelectedOptions {
			vr.SelectedOptions[j] = selectedOptionResponse{Name: so.Name, Value: so.Value}
		}
		resp.Variants[i] = vr
	}

	resp.Images = make([]imageResponse, len(p.Images))
	for i, img := range p.Images {
		resp.Images[i] = imageResponse{URL: img.URL, AltText: img.AltText}
	}

	return resp
}

func toPriceResponse(p catalog.Price) priceResponse {
	return priceResponse{Amount: p.Amount, CurrencyCode: p.CurrencyCode}
}
