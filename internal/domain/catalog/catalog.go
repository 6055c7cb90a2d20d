package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Price is a monetary amount with its ISO currency code.
type Price struct {
	Amount       decimal.Decimal
	CurrencyCode string
}

// Option describes a configurable product dimension and its allowed values,
// e.g. Size: [S, M, L].
type Option struct {
	Name   string
	Values []string
}

// SelectedOption is one concrete option choice on a variant.
type SelectedOption struct {
	Name  string
	Value string
}

// Variant is a specific purchasable configuration of a product.
type Variant struct {
	ID              string
	Title           string
	Price           Price
	SelectedOptions []SelectedOption
}

// Image holds a product image URL and its alt text.
type Image struct {
	URL     string
	AltText string
}

// PriceRange spans the cheapest and most expensive variant of a product.
type PriceRange struct {
	Min Price
	Max Price
}

// Product is a catalog item as served by the commerce platform. The platform
// is the system of record; this layer never mutates catalog data.
type Product struct {
	ID          string
	Handle      string
	Title       string
	Description string
	Tags        []string
	Options     []Option
	Variants    []Variant
	Images      []Image
	PriceRange  PriceRange
}

// Repository defines read access to the product catalog.
type Repository interface {
	// List returns up to first products.
	List(ctx context.Context, first int) ([]Product, error)
	// GetByHandle returns the product with the given URL handle, or
	// ErrNotFound.
	GetByHandle(ctx context.Context, handle string) (*Product, error)
}
