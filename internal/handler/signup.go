package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/oddline/storefront/internal/signup"
)

type signupRequest struct {
	Email string `json:"email"`
}

// Signup registers an email address for drop notifications.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.signups.Signup(r.Context(), req.Email)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case errors.Is(err, signup.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid email address")
	case errors.Is(err, signup.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "email already registered")
	default:
		writeInternalError(w, r, err)
	}
}
