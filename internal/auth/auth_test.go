package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "s3cret"))

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func newIssuer(t *testing.T, secret string) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer([]byte(secret), "bank-ledger")
	require.NoError(t, err)
	return issuer
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := newIssuer(t, "0123456789abcdef0123456789abcdef")
	now := time.Now().UTC().Truncate(time.Second)
	sessionID := uuid.New()

	raw, err := issuer.Issue(Claims{UserID: 7, SessionID: sessionID, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	claims, err := issuer.Parse(raw, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.True(t, claims.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestTokenRejected(t *testing.T) {
	issuer := newIssuer(t, "0123456789abcdef0123456789abcdef")
	now := time.Now().UTC().Truncate(time.Second)
	raw, err := issuer.Issue(Claims{UserID: 1, SessionID: uuid.New(), IssuedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := issuer.Parse(raw, now.Add(2*time.Minute))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := newIssuer(t, "fedcba9876543210fedcba9876543210")
		_, err := other.Parse(raw, now)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(raw, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		_, err := issuer.Parse(parts[0]+"."+parts[1]+"."+string(sig), now)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token", now)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewTokenIssuer(nil, "x")
	assert.Error(t, err)

	secret, err := RandomSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}
