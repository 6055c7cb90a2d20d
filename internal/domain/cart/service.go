package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// ErrCheckoutInFlight is returned when a checkout session creation is
// requested for a cart that already has one outstanding. The caller should
// wait for the first request to settle rather than retry immediately.
var ErrCheckoutInFlight = errors.New("checkout already in flight")

// InvalidQuantityError indicates an add with a non-positive quantity.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for variant %s", e.VariantID)
}

// Repository defines durable persistence for cart line items, keyed by the
// stable client cart identifier. Only the items list is persisted; transient
// checkout state never is.
type Repository interface {
	Load(ctx context.Context, cartID string) ([]LineItem, error)
	Save(ctx context.Context, cartID string, items []LineItem) error
}

// CheckoutLine is the (variant, quantity) pair submitted to the commerce
// platform when creating a checkout session.
type CheckoutLine struct {
	VariantID string
	Quantity  int
}

// CheckoutCreator creates a checkout session on the external commerce
// platform and returns its URL. A nil error implies a usable, non-empty URL.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, lines []CheckoutLine) (string, error)
}

const defaultCheckoutTimeout = 15 * time.Second

// Service owns the authoritative cart state for every client: it loads the
// persisted cart, applies mutations with the merge rules defined on Cart,
// writes the result back, and mediates checkout session creation.
//
// Carts are single-writer: each request loads, mutates, and saves one cart.
// The only cross-request coordination is the per-cart checkout in-flight
// guard, which replaces the UI-side "disable while loading" convention with
// an explicit contract.
type Service struct {
	repo            Repository
	checkouts       CheckoutCreator
	checkoutTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithCheckoutTimeout overrides the timeout applied to checkout session
// creation requests.
func WithCheckoutTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.checkoutTimeout = d }
}

// NewService creates a cart Service backed by the given repository and
// checkout creator.
func NewService(repo Repository, checkouts CheckoutCreator, opts ...ServiceOption) *Service {
	s := &Service{
		repo:            repo,
		checkouts:       checkouts,
		checkoutTimeout: defaultCheckoutTimeout,
		inFlight:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current cart for cartID, hydrated from storage. A cart
// that was never written is returned empty.
func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return New(items), nil
}

// AddItem adds a line item to the cart, merging quantities when the variant
// is already present, and persists the updated state. Quantities below 1 are
// rejected with InvalidQuantityError.
func (s *Service) AddItem(ctx context.Context, cartID string, item LineItem) (*Cart, error) {
	if item.Quantity < 1 {
		return nil, &InvalidQuantityError{VariantID: item.VariantID}
	}
	return s.mutate(ctx, cartID, func(c *Cart) {
		c.Add(item)
	})
}

// UpdateQuantity sets the quantity of an existing line item and persists the
// updated state. A target quantity of zero or less removes the item; an
// unknown variant is a no-op.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, variantID string, quantity int) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) {
		c.UpdateQuantity(variantID, quantity)
	})
}

// RemoveItem deletes a line item and persists the updated state. An unknown
// variant is a no-op.
func (s *Service) RemoveItem(ctx context.Context, cartID, variantID string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) {
		c.Remove(variantID)
	})
}

// mutate loads the cart, applies fn, and writes the result back.
func (s *Service) mutate(ctx context.Context, cartID string, fn func(*Cart)) (*Cart, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	c := New(items)
	fn(c)
	if err := s.repo.Save(ctx, cartID, c.Items()); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// CreateCheckout creates a checkout session on the commerce platform for the
// cart's current items and returns the session URL.
//
// At most one checkout creation per cart is allowed at a time; a second call
// while one is outstanding fails fast with ErrCheckoutInFlight. The in-flight
// flag is cleared on every return path, so a failed or timed-out request
// never leaves the cart stuck in a loading state. The cart contents are never
// modified by this operation, success or failure.
//
// An empty cart is not blocked here: the commerce platform rejects it, and
// callers are expected to disable the trigger for empty carts anyway.
func (s *Service) CreateCheckout(ctx context.Context, cartID string) (string, error) {
	if !s.beginCheckout(cartID) {
		return "", ErrCheckoutInFlight
	}
	defer s.endCheckout(cartID)

	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return "", errors.Wrap(err, "load cart")
	}

	lines := make([]CheckoutLine, len(items))
	for i, item := range items {
		lines[i] = CheckoutLine{VariantID: item.VariantID, Quantity: item.Quantity}
	}

	ctx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()

	url, err := s.checkouts.CreateCheckout(ctx, lines)
	if err != nil {
		return "", errors.Wrap(err, "create checkout session")
	}
	return url, nil
}

// CheckoutInFlight reports whether a checkout session creation is currently
// outstanding for the cart. This is the loading flag the UI binds to.
func (s *Service) CheckoutInFlight(cartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[cartID]
	return ok
}

func (s *Service) beginCheckout(cartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[cartID]; ok {
		return false
	}
	s.inFlight[cartID] = struct{}{}
	return true
}

func (s *Service) endCheckout(cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, cartID)
}
