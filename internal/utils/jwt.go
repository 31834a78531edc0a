// Package utils provides helper functions for password hashing and
// token creation/verification shared by the service layer.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails parsing,
// signature verification or expiry checks. Callers never learn which
// of the three it was.
var ErrInvalidToken = errors.New("invalid token")

// TokenPayload is the fixed claim snapshot embedded in every signed
// token. It mirrors the user's state at mint time; a stale snapshot
// is refreshed on the next rotation.
type TokenPayload struct {
	UserID          string
	Email           string
	Role            string
	Provider        string
	IsEmailVerified bool
}

// Claims is the JWT claim set for both access and refresh tokens.
// Refresh tokens additionally carry a jti (RegisteredClaims.ID) so
// two tokens minted for the same user in the same second still hash
// to distinct ledger rows.
type Claims struct {
	Email           string `json:"email"`
	Role            string `json:"role"`
	Provider        string `json:"provider"`
	IsEmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Payload converts verified claims back into a TokenPayload.
func (c *Claims) Payload() TokenPayload {
	return TokenPayload{
		UserID:          c.Subject,
		Email:           c.Email,
		Role:            c.Role,
		Provider:        c.Provider,
		IsEmailVerified: c.IsEmailVerified,
	}
}

// SignedToken pairs a serialized JWT with its expiry so callers can
// align cookie Max-Age with the token's cryptographic validity.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 access token valid for
// ttlMin minutes.
func NewAccessToken(secret string, p TokenPayload, ttlMin int) (SignedToken, error) {
	return signToken(secret, p, time.Duration(ttlMin)*time.Minute, "")
}

// NewRefreshToken builds and signs an HS256 refresh token valid for
// ttlDays days. A fresh jti makes every issuance unique.
func NewRefreshToken(secret string, p TokenPayload, ttlDays int) (SignedToken, error) {
	return signToken(secret, p, time.Duration(ttlDays)*24*time.Hour, uuid.NewString())
}

func signToken(secret string, p TokenPayload, ttl time.Duration, jti string) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Email:           p.Email,
		Role:            p.Role,
		Provider:        p.Provider,
		IsEmailVerified: p.IsEmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a token signed with secret. Only
// HMAC signatures are accepted; anything else is ErrInvalidToken.
func VerifyToken(secret, raw string) (*Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as
// a hex string. Only the hash is persisted, so a leaked ledger row
// cannot be replayed as a live session.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewOpaqueToken returns a 64-character hex string from 32 bytes of
// secure randomness. Used for email verification and password reset
// tokens.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
