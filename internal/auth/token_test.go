package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

func TestVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("test-secret", time.Hour)

	token, err := v.Mint("u1", "Alice", []string{"admin"})
	req.NoError(err)

	id, err := v.Verify(token)
	req.NoError(err)
	req.Equal(domain.UserID("u1"), id.UserID)
	req.Equal("Alice", id.DisplayName)
	req.Equal([]string{"admin"}, id.Roles)
}

func TestVerifier_EmptyToken(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("test-secret", time.Hour)

	_, err := v.Verify("")
	req.ErrorIs(err, core.ErrUnauthenticated)
}

func TestVerifier_WrongSecret(t *testing.T) {
	req := require.New(t)
	token, err := NewVerifier("secret-a", time.Hour).Mint("u1", "Alice", nil)
	req.NoError(err)

	_, err = NewVerifier("secret-b", time.Hour).Verify(token)
	req.ErrorIs(err, core.ErrUnauthenticated)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("test-secret", -time.Minute)

	token, err := v.Mint("u1", "Alice", nil)
	req.NoError(err)

	_, err = v.Verify(token)
	req.ErrorIs(err, core.ErrUnauthenticated)
}

func TestVerifier_GarbageToken(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("test-secret", time.Hour)

	_, err := v.Verify("not.a.jwt")
	req.ErrorIs(err, core.ErrUnauthenticated)
}
