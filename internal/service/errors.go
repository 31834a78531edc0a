// Package service holds the business logic for sessions, federated
// identity and user administration. Handlers translate the sentinel
// errors below into HTTP statuses; the services themselves never see
// a ResponseWriter.
package service

import "errors"

var (
	// ErrEmailTaken: registration or email change hit an existing address.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCredentials is deliberately generic. Callers cannot tell
	// "no such user" from "wrong password".
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled: the account exists but is deactivated.
	ErrAccountDisabled = errors.New("account is deactivated")

	// ErrUseFederatedLogin: the account has no password and must sign in
	// through Google.
	ErrUseFederatedLogin = errors.New("account uses google sign-in")

	// ErrMissingToken: no refresh token was presented.
	ErrMissingToken = errors.New("refresh token not found")

	// ErrInvalidToken: token failed signature or expiry verification, or
	// matched no pending verification record.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionNotFound: the refresh token verified but no live ledger
	// row backs it (rotated, revoked or expired).
	ErrSessionNotFound = errors.New("invalid or expired refresh token")

	// ErrResetTokenInvalid: the password reset token is unknown or past
	// its window.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")

	// ErrAlreadyVerified: a verification resend for a verified address.
	ErrAlreadyVerified = errors.New("email is already verified")

	// ErrGoogleAlreadyLinked: the Google identity belongs to another user.
	ErrGoogleAlreadyLinked = errors.New("google account already linked to another user")

	// ErrNoFallbackCredential: unlinking would leave the account with no
	// way to sign in.
	ErrNoFallbackCredential = errors.New("set a password before unlinking google")

	// ErrSelfAction: an admin tried to deactivate, delete or re-role
	// their own account.
	ErrSelfAction = errors.New("action not allowed on own account")

	// ErrForbidden: the principal may not touch the target resource.
	ErrForbidden = errors.New("access denied")

	// ErrNotFound: the target user or session does not exist.
	ErrNotFound = errors.New("not found")
)
