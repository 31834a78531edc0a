// Package repository implements MySQL persistence for users and
// refresh tokens. Sentinel errors defined here let the service layer
// branch on failure modes without importing database/sql.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update violates the
// unique constraint on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrGoogleIDExists is returned when an insert or update violates
// the unique constraint on users.google_id.
var ErrGoogleIDExists = errors.New("google id already linked")
