package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate() *Gate {
	return New(Config{
		Password:    "open-sesame",
		TokenSecret: []byte("test-secret"),
		TokenTTL:    time.Hour,
	})
}

func TestUnlock_WrongPassword(t *testing.T) {
	g := newTestGate()

	for _, password := range []string{"", "open-sesam", "OPEN-SESAME"} {
		_, _, err := g.Unlock(password)
		require.ErrorIs(t, err, ErrWrongPassword)
	}
}

func TestUnlock_IssuesVerifiableToken(t *testing.T) {
	g := newTestGate()

	token, expiresAt, err := g.Unlock("open-sesame")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	require.NoError(t, g.Verify(token))
}

func TestVerify_RejectsGarbage(t *testing.T) {
	g := newTestGate()

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		assert.ErrorIs(t, g.Verify(token), ErrInvalidToken)
	}
}

func TestVerify_RejectsForeignSignature(t *testing.T) {
	g := newTestGate()
	other := New(Config{
		Password:    "open-sesame",
		TokenSecret: []byte("different-secret"),
		TokenTTL:    time.Hour,
	})

	token, _, err := other.Unlock("open-sesame")
	require.NoError(t, err)

	assert.ErrorIs(t, g.Verify(token), ErrInvalidToken)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	g := newTestGate()

	token, _, err := g.Unlock("open-sesame")
	require.NoError(t, err)

	// Jump past the TTL.
	g.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, g.Verify(token), ErrInvalidToken)
}
