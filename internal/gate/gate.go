// Package gate implements the storefront's landing gate: a shared password
// that unlocks the showcase, exchanged for a signed, expiring session token.
package gate

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrWrongPassword is returned for a failed unlock attempt.
	ErrWrongPassword = errors.New("wrong password")
	// ErrInvalidToken is returned for a missing, malformed, tampered, or
	// expired gate token.
	ErrInvalidToken = errors.New("invalid gate token")
)

const tokenSubject = "gate"

// Config holds the gate's credential and token settings.
type Config struct {
	// Password is the shared storefront password.
	Password string
	// TokenSecret signs gate session tokens (HS256).
	TokenSecret []byte
	// TokenTTL bounds how long an unlocked session stays valid.
	TokenTTL time.Duration
}

// Gate verifies unlock attempts and issues session tokens. The configured
// password is stored only as an HMAC, and attempts are compared in constant
// time.
type Gate struct {
	passwordMAC []byte
	secret      []byte
	ttl         time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates a Gate from config.
func New(cfg Config) *Gate {
	return &Gate{
		passwordMAC: mac(cfg.TokenSecret, cfg.Password),
		secret:      cfg.TokenSecret,
		ttl:         cfg.TokenTTL,
		now:         time.Now,
	}
}

// Unlock checks the supplied password and, when correct, returns a signed
// session token and its expiry. Wrong passwords fail with ErrWrongPassword.
func (g *Gate) Unlock(password string) (token string, expiresAt time.Time, err error) {
	if subtle.ConstantTimeCompare(mac(g.secret, password), g.passwordMAC) != 1 {
		return "", time.Time{}, ErrWrongPassword
	}

	now := g.now()
	expiresAt = now.Add(g.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign gate token")
	}
	return token, expiresAt, nil
}

// Verify checks a session token's signature, subject, and expiry.
func (g *Gate) Verify(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return g.secret, nil
		},
		jwt.WithTimeFunc(func() time.Time { return g.now() }),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != tokenSubject {
		return ErrInvalidToken
	}
	return nil
}

func mac(key []byte, msg string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(msg))
	return m.Sum(nil)
}
