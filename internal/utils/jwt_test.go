package utils

import (
	"errors"
	"testing"
)

var payload = TokenPayload{
	UserID:          "user-1",
	Email:           "ada@example.com",
	Role:            "USER",
	Provider:        "LOCAL",
	IsEmailVerified: true,
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", payload, 15)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := VerifyToken("secret", tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	if got := claims.Payload(); got != payload {
		t.Fatalf("payload round trip: got %+v, want %+v", got, payload)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", payload, 15)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyToken("other-secret", tok.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", payload, -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyToken("secret", tok.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "x", "a.b.c"} {
		if _, err := VerifyToken("secret", raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestRefreshTokensAreUniquePerIssuance(t *testing.T) {
	a, err := NewRefreshToken("secret", payload, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRefreshToken("secret", payload, 7)
	if err != nil {
		t.Fatal(err)
	}
	if a.Token == b.Token {
		t.Fatal("two issuances produced the same refresh token")
	}
	if HashRefreshRaw(a.Token) == HashRefreshRaw(b.Token) {
		t.Fatal("two issuances hashed to the same ledger key")
	}
}

func TestHashRefreshRawIsStable(t *testing.T) {
	if HashRefreshRaw("abc") != HashRefreshRaw("abc") {
		t.Fatal("hash is not deterministic")
	}
	if len(HashRefreshRaw("abc")) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(HashRefreshRaw("abc")))
	}
}

func TestNewOpaqueToken(t *testing.T) {
	a, err := NewOpaqueToken()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewOpaqueToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64", len(a))
	}
	if a == b {
		t.Fatal("two opaque tokens collided")
	}
}
