//go:build integration

package integration

import (
	"net/http"
	"testing"
)

// The compose environment points the commerce endpoint at an unreachable
// host, so checkout exercises the failure mapping: the platform being down
// must surface as a retryable upstream error, never corrupt the cart.
func TestCheckout_PlatformUnavailable(t *testing.T) {
	client := newClient(t)
	unlock(t, client)

	resp := doJSON(t, client, http.MethodPost, "/api/cart/items", addItemBody("variant-co", 1))
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, "/api/cart/checkout", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("checkout with platform down: got %d, want 502", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Message == "" {
		t.Error("expected error message in body")
	}

	// The cart is untouched by the failed attempt and can retry.
	cartResp := doGet(t, client, "/api/cart")
	cart := decodeJSON[cartResponse](t, cartResp)
	cartResp.Body.Close()
	if cart.TotalItems != 1 {
		t.Errorf("cart after failed checkout: got %d items, want 1", cart.TotalItems)
	}
}
