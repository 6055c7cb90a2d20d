package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/oddline/storefront/internal/domain/cart"
)

// Compile-time check: the commerce client creates checkout sessions.
var _ cart.CheckoutCreator = (*Client)(nil)

// ErrEmptyCheckout indicates the platform accepted the mutation but returned
// no checkout URL. Kept distinct from transport failures so the two can be
// told apart in logs; both are checkout failures to the caller.
var ErrEmptyCheckout = errors.New("checkout response has no url")

// UserErrorsError carries the userErrors the platform attached to a rejected
// checkout mutation, e.g. an unknown variant or zero quantity.
type UserErrorsError struct {
	Messages []string
}

func (e *UserErrorsError) Error() string {
	return fmt.Sprintf("checkout rejected: %s", strings.Join(e.Messages, "; "))
}

const checkoutCreateMutation = `mutation CheckoutCreate($lines: [CheckoutLineInput!]!) {
  checkoutCreate(input: { lines: $lines }) {
    checkout { id webUrl }
    userErrors { field message }
  }
}`

// CreateCheckout creates a checkout session for the given lines and returns
// its URL. A nil error guarantees a non-empty URL.
func (c *Client) CreateCheckout(ctx context.Context, lines []cart.CheckoutLine) (string, error) {
	data, err := c.do(ctx, checkoutCreateMutation, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("lines")
		e.ArrStart()
		for _, line := range lines {
			e.ObjStart()
			e.FieldStart("variantId")
			e.Str(line.VariantID)
			e.FieldStart("quantity")
			e.Int(line.Quantity)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
	if err != nil {
		return "", errors.Wrap(err, "checkout create")
	}

	var payload struct {
		CheckoutCreate struct {
			Checkout *struct {
				ID     string `json:"id"`
				WebURL string `json:"webUrl"`
			} `json:"checkout"`
			UserErrors []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"checkoutCreate"`
	}
	if err := decodeData(data, &payload); err != nil {
		return "", errors.Wrap(err, "checkout create")
	}

	if len(payload.CheckoutCreate.UserErrors) > 0 {
		ue := &UserErrorsError{Messages: make([]string, len(payload.CheckoutCreate.UserErrors))}
		for i, e := range payload.CheckoutCreate.UserErrors {
			ue.Messages[i] = e.Message
		}
		return "", ue
	}

	checkout := payload.CheckoutCreate.Checkout
	if checkout == nil || checkout.WebURL == "" {
		return "", ErrEmptyCheckout
	}
	return checkout.WebURL, nil
}
