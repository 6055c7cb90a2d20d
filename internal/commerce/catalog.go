package commerce

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/oddline/storefront/internal/domain/catalog"
)

// Compile-time check: the commerce client is the catalog repository.
var _ catalog.Repository = (*Client)(nil)

// productFields is the shared selection set for catalog queries.
const productFields = `
  id
  handle
  title
  description
  tags
  options { name values }
  variants(first: 100) {
    edges {
      node {
        id
        title
        price { amount currencyCode }
        selectedOptions { name value }
      }
    }
  }
  images(first: 10) {
    edges { node { url altText } }
  }
  priceRange {
    minVariantPrice { amount currencyCode }
    maxVariantPrice { amount currencyCode }
  }`

const listProductsQuery = `query ListProducts($first: Int!) {
  products(first: $first) {
    edges { node {` + productFields + ` } }
  }
}`

const productByHandleQuery = `query ProductByHandle($handle: String!) {
  product(handle: $handle) {` + productFields + ` }
}`

// Wire shapes for the platform's connection-style payloads.

type priceWire struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type optionWire struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type selectedOptionWire struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type variantWire struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Price           priceWire            `json:"price"`
	SelectedOptions []selectedOptionWire `json:"selectedOptions"`
}

type imageWire struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type productWire struct {
	ID          string       `json:"id"`
	Handle      string       `json:"handle"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Options     []optionWire `json:"options"`
	Variants    struct {
		Edges []struct {
			Node variantWire `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
	Images struct {
		Edges []struct {
			Node imageWire `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	PriceRange struct {
		MinVariantPrice priceWire `json:"minVariantPrice"`
		MaxVariantPrice priceWire `json:"maxVariantPrice"`
	} `json:"priceRange"`
}

// List returns up to first products from the platform catalog.
func (c *Client) List(ctx context.Context, first int) ([]catalog.Product, error) {
	data, err := c.do(ctx, listProductsQuery, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("first")
		e.Int(first)
		e.ObjEnd()
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	var payload struct {
		Products struct {
			Edges []struct {
				Node productWire `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := decodeData(data, &payload); err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	products := make([]catalog.Product, len(payload.Products.Edges))
	for i, edge := range payload.Products.Edges {
		products[i] = mapProduct(edge.Node)
	}
	return products, nil
}

// GetByHandle returns the product with the given URL handle. A null product
// in the response maps to catalog.ErrNotFound.
func (c *Client) GetByHandle(ctx context.Context, handle string) (*catalog.Product, error) {
	data, err := c.do(ctx, productByHandleQuery, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("handle")
		e.Str(handle)
		e.ObjEnd()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", handle)
	}

	var payload struct {
		Product *productWire `json:"product"`
	}
	if err := decodeData(data, &payload); err != nil {
		return nil, errors.Wrapf(err, "get product %q", handle)
	}
	if payload.Product == nil {
		return nil, catalog.ErrNotFound
	}

	p := mapProduct(*payload.Product)
	return &p, nil
}

func mapProduct(w productWire) catalog.Product {
	p := catalog.Product{
		ID:          w.ID,
		Handle:      w.Handle,
		Title:       w.Title,
		Description: w.Description,
		Tags:        w.Tags,
		PriceRange: catalog.PriceRange{
			Min: mapPrice(w.PriceRange.MinVariantPrice),
			Max: mapPrice(w.PriceRange.MaxVariantPrice),
		},
	}

	p.Options = make([]catalog.Option, len(w.Options))
	for i, o := range w.Options {
		p.Options[i] = catalog.Option{Name: o.Name, Values: o.Values}
	}

	p.Variants = make([]catalog.Variant, len(w.Variants.Edges))
	for i, edge := range w.Variants.Edges {
		v := edge.Node
		variant := catalog.Variant{
			ID:    v.ID,
			Title: v.Title,
			Price: mapPrice(v.Price),
		}
		variant.SelectedOptions = make([]catalog.SelectedOption, len(v.SelectedOptions))
		for j, so := range v.SelectedOptions {
			variant.SelectedOptions[j] = catalog.SelectedOption{Name: so.Name, Value: so.Value}
		}
		p.Variants[i] = variant
	}

	p.Images = make([]catalog.Image, len(w.Images.Edges))
	for i, edge := range w.Images.Edges {
		p.Images[i] = catalog.Image{URL: edge.Node.URL, AltText: edge.Node.AltText}
	}

	return p
}

func mapPrice(w priceWire) catalog.Price {
	return catalog.Price{Amount: w.Amount, CurrencyCode: w.CurrencyCode}
}
