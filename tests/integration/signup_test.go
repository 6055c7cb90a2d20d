//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestSignup_Register(t *testing.T) {
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, "/api/signup", map[string]string{"email": "first@example.com"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: got %d, want 201", resp.StatusCode)
	}
}

func TestSignup_DuplicateConflicts(t *testing.T) {
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, "/api/signup", map[string]string{"email": "dupe@example.com"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first signup: got %d, want 201", resp.StatusCode)
	}

	// Same address with different casing and whitespace is still a duplicate.
	resp = doJSON(t, client, http.MethodPost, "/api/signup", map[string]string{"email": "  DUPE@example.com "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: got %d, want 409", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Message == "" {
		t.Error("expected error message in body")
	}
}

func TestSignup_InvalidEmail(t *testing.T) {
	client := newClient(t)

	for _, email := range []string{"", "not-an-email", "@no-local.example"} {
		resp := doJSON(t, client, http.MethodPost, "/api/signup", map[string]string{"email": email})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("signup %q: got %d, want 400", email, resp.StatusCode)
		}
	}
}
