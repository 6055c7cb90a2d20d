package cart

import (
	"github.com/shopspring/decimal"
)

// Money is a monetary amount paired with its ISO currency code. Amounts are
// decimal strings on the wire; arithmetic is exact via shopspring/decimal.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// SelectedOption is one (name, value) pair describing a variant choice,
// e.g. Size=M. Order is significant and preserved as received.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductRef is a display snapshot of the catalog product a line item belongs
// to. It is captured at add time and never re-validated against live
// inventory by this layer.
type ProductRef struct {
	Handle   string `json:"handle"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl,omitempty"`
	ImageAlt string `json:"imageAlt,omitempty"`
}

// LineItem is one entry in the cart: a purchasable variant, its quantity, and
// the price/options snapshot taken when it was first added.
type LineItem struct {
	VariantID       string           `json:"variantId"`
	Product         ProductRef       `json:"product"`
	VariantTitle    string           `json:"variantTitle"`
	Price           Money            `json:"price"`
	Quantity        int              `json:"quantity"`
	SelectedOptions []SelectedOption `json:"selectedOptions,omitempty"`
}

// Cart holds an ordered list of line items. VariantID is unique across the
// list; insertion order governs display order and survives merges.
//
// Cart is a pure in-memory state container: its mutations never fail.
// Persistence and checkout creation live in Service.
type Cart struct {
	items []LineItem
}

// New returns a cart pre-populated with the given items, preserving order.
// Used when rehydrating persisted state.
func New(items []LineItem) *Cart {
	c := &Cart{items: make([]LineItem, len(items))}
	copy(c.items, items)
	return c
}

// Add inserts a line item. When an item with the same VariantID already
// exists, its quantity is incremented by item.Quantity and every other field
// of the existing entry is left untouched: the original price and options
// snapshot wins, and the item keeps its position. Otherwise the item is
// appended.
func (c *Cart) Add(item LineItem) {
	for i := range c.items {
		if c.items[i].VariantID == item.VariantID {
			c.items[i].Quantity += item.Quantity
			return
		}
	}
	c.items = append(c.items, item)
}

// UpdateQuantity sets the quantity for the line item with the given
// VariantID. A quantity of zero or less removes the item entirely. An unknown
// VariantID is a silent no-op.
func (c *Cart) UpdateQuantity(variantID string, quantity int) {
	if quantity <= 0 {
		c.Remove(variantID)
		return
	}
	for i := range c.items {
		if c.items[i].VariantID == variantID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// Remove deletes the line item with the given VariantID. An unknown
// VariantID is a silent no-op.
func (c *Cart) Remove(variantID string) {
	for i := range c.items {
		if c.items[i].VariantID == variantID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Items returns a copy of the line items in display order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int {
	return len(c.items)
}

// TotalItems returns the sum of quantities across all line items. Recomputed
// on every call, never cached.
func (c *Cart) TotalItems() int {
	total := 0
	for i := range c.items {
		total += c.items[i].Quantity
	}
	return total
}

// TotalPrice returns Σ(price × quantity) over the line items, using the
// currency code of the first item. The exact decimal is returned; rounding to
// two places happens at the presentation boundary.
func (c *Cart) TotalPrice() Money {
	total := Money{Amount: decimal.Zero}
	for i := range c.items {
		item := &c.items[i]
		if total.CurrencyCode == "" {
			total.CurrencyCode = item.Price.CurrencyCode
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		total.Amount = total.Amount.Add(item.Price.Amount.Mul(qty))
	}
	return total
}
