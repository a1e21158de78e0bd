package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemates/mates"
)

func TestGateRoundTrip(t *testing.T) {
	gate, err := NewGate("secret-0123456789", time.Hour)
	require.NoError(t, err)

	token, err := gate.Issue("user-1")
	require.NoError(t, err)

	identity, err := gate.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity)
}

func TestGateRejectsBadCredentials(t *testing.T) {
	gate, err := NewGate("secret-0123456789", time.Hour)
	require.NoError(t, err)

	token, err := gate.Issue("user-1")
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"truncated": token[:len(token)-5],
	} {
		_, err := gate.Authenticate(tok)
		assert.ErrorIs(t, err, mates.ErrUnauthenticated, name)
	}
}

func TestGateRejectsForeignSignature(t *testing.T) {
	gate, err := NewGate("secret-0123456789", time.Hour)
	require.NoError(t, err)
	other, err := NewGate("another-secret-value", time.Hour)
	require.NoError(t, err)

	token, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = gate.Authenticate(token)
	assert.ErrorIs(t, err, mates.ErrUnauthenticated)
}

func TestGateRejectsExpired(t *testing.T) {
	gate := &Gate{secret: []byte("secret-0123456789"), ttl: -2 * time.Second}

	token, err := gate.Issue("user-1")
	require.NoError(t, err)

	_, err = gate.Authenticate(token)
	assert.ErrorIs(t, err, mates.ErrUnauthenticated)
}

func TestGateConfig(t *testing.T) {
	_, err := NewGate("", time.Hour)
	require.Error(t, err)

	gate, err := NewGate("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultTokenTTL, gate.TTL())
}
