package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/oddline/storefront/internal/gate"
)

type unlockRequest struct {
	Password string `json:"password"`
}

// UnlockGate checks the storefront password and, on success, sets the gate
// session cookie.
func (h *Handler) UnlockGate(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := h.gate.Unlock(req.Password)
	if err != nil {
		if errors.Is(err, gate.ErrWrongPassword) {
			writeError(w, http.StatusUnauthorized, "wrong password")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     gateCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
