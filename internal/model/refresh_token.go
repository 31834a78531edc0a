package model

import "time"

// RefreshToken models a row in the `refresh_tokens` table. One row
// exists per live session; the row is deleted when the session ends
// (logout, rotation, revocation). The plain token is never stored,
// only its SHA-256 hash.
//
// Fields:
//  ID        – primary key (UUID string), doubles as the session id.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  CreatedAt – when the session was opened.
//  ExpiresAt – hard deadline; rows past it are dead even before the
//              sweeper removes them.
type RefreshToken struct {
	ID        string    // refresh_tokens.id
	UserID    string    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	CreatedAt time.Time // refresh_tokens.created_at
	ExpiresAt time.Time // refresh_tokens.expires_at
}

// Expired reports whether the row is past its deadline at t.
func (r *RefreshToken) Expired(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// Session is the client-facing view of a RefreshToken row, used by
// the session enumeration endpoints. The token hash is omitted.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsExpired bool      `json:"isExpired"`
}
