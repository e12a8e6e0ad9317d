package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the parts of a verified token the server relies on.
type Claims struct {
	UserID    int64
	SessionID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 bearer tokens. The token only points
// at a session; the session row decides whether it is still usable.
type TokenIssuer struct {
	key    []byte
	issuer string
	signer jose.Signer
}

func NewTokenIssuer(secret []byte, issuer string) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return &TokenIssuer{key: secret, issuer: issuer, signer: signer}, nil
}

// RandomSecret returns a 32 byte key for processes started without one.
func RandomSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

func (i *TokenIssuer) Issue(c Claims) (string, error) {
	cl := jwt.Claims{
		Issuer:   i.issuer,
		Subject:  strconv.FormatInt(c.UserID, 10),
		ID:       c.SessionID.String(),
		IssuedAt: jwt.NewNumericDate(c.IssuedAt),
		Expiry:   jwt.NewNumericDate(c.ExpiresAt),
	}
	return jwt.Signed(i.signer).Claims(cl).CompactSerialize()
}

// Parse verifies the signature, issuer and expiry of raw at now.
func (i *TokenIssuer) Parse(raw string, now time.Time) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if len(tok.Headers) != 1 || tok.Headers[0].Algorithm != string(jose.HS256) {
		return nil, ErrInvalidToken
	}

	var cl jwt.Claims
	if err := tok.Claims(i.key, &cl); err != nil {
		return nil, ErrInvalidToken
	}
	if cl.Expiry == nil {
		return nil, ErrInvalidToken
	}
	if err := cl.ValidateWithLeeway(jwt.Expected{Issuer: i.issuer, Time: now}, 0); err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sessionID, err := uuid.Parse(cl.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		UserID:    userID,
		SessionID: sessionID,
		ExpiresAt: cl.Expiry.Time().UTC(),
	}
	if cl.IssuedAt != nil {
		claims.IssuedAt = cl.IssuedAt.Time().UTC()
	}
	return claims, nil
}
