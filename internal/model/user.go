package model

import "time"

// Role values stored in users.role.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Provider values stored in users.provider.
const (
	ProviderLocal  = "LOCAL"
	ProviderGoogle = "GOOGLE"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. Nullable columns are pointers so that a NULL can be
// told apart from a zero value; a user created through the Google
// flow, for instance, has no password at all.
//
// Fields:
//  ID                     – primary key (UUID string).
//  Email                  – unique, stored lowercased.
//  PasswordHash           – bcrypt hash; nil for federated-only accounts.
//  FirstName, LastName    – display name parts.
//  Role                   – USER or ADMIN.
//  Provider               – LOCAL or GOOGLE (how the account was created).
//  GoogleID               – external Google subject id; unique when set.
//  IsEmailVerified        – whether the address has been confirmed.
//  EmailVerificationToken – pending verification token, nil once used.
//  IsActive               – deactivated accounts cannot authenticate.
//  Avatar                 – optional avatar URL.
//  EmailVerifiedAt        – when the address was confirmed.
//  LastLoginAt            – last successful authentication.
//  PasswordResetToken     – pending reset token, nil when none.
//  PasswordResetExpires   – reset token deadline.
type User struct {
	ID                     string     // users.id
	Email                  string     // users.email
	PasswordHash           *string    // users.password_hash (nullable)
	FirstName              string     // users.first_name
	LastName               string     // users.last_name
	Role                   string     // users.role
	Provider               string     // users.provider
	GoogleID               *string    // users.google_id (nullable, unique)
	IsEmailVerified        bool       // users.is_email_verified
	EmailVerificationToken *string    // users.email_verification_token (nullable)
	IsActive               bool       // users.is_active
	Avatar                 *string    // users.avatar (nullable)
	EmailVerifiedAt        *time.Time // users.email_verified_at (nullable)
	LastLoginAt            *time.Time // users.last_login_at (nullable)
	CreatedAt              time.Time  // users.created_at
	UpdatedAt              time.Time  // users.updated_at
	PasswordResetToken     *string    // users.password_reset_token (nullable)
	PasswordResetExpires   *time.Time // users.password_reset_expires (nullable)
}

// LinkState describes how an account can authenticate. It is a
// single tagged view over (Provider, GoogleID, PasswordHash) so the
// unlink and status rules reason about one value instead of three
// independent nullable fields.
type LinkState int

const (
	// LinkLocal: password only, no Google identity attached.
	LinkLocal LinkState = iota
	// LinkFederated: Google identity only, no usable password.
	LinkFederated
	// LinkBoth: Google identity attached and a password is set.
	LinkBoth
)

// LinkState classifies the account's credential linkage.
func (u *User) LinkState() LinkState {
	switch {
	case u.GoogleID != nil && u.PasswordHash != nil:
		return LinkBoth
	case u.GoogleID != nil || (u.Provider == ProviderGoogle && u.PasswordHash == nil):
		return LinkFederated
	default:
		return LinkLocal
	}
}

// HasPassword reports whether a password is set on the account.
func (u *User) HasPassword() bool { return u.PasswordHash != nil }

// SanitizedUser is the client-facing projection of a User. Secret
// columns (password hash, verification token, reset token/expiry)
// never leave the server.
type SanitizedUser struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Role            string     `json:"role"`
	Provider        string     `json:"provider"`
	GoogleID        *string    `json:"googleId,omitempty"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsActive        bool       `json:"isActive"`
	Avatar          *string    `json:"avatar,omitempty"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Sanitize strips the secret fields from a User.
func (u *User) Sanitize() SanitizedUser {
	return SanitizedUser{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		Provider:        u.Provider,
		GoogleID:        u.GoogleID,
		IsEmailVerified: u.IsEmailVerified,
		IsActive:        u.IsActive,
		Avatar:          u.Avatar,
		EmailVerifiedAt: u.EmailVerifiedAt,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
