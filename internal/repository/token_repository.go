package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// TokenRepo is the refresh-token ledger. One row per live session;
// rows are hard-deleted when a session ends, so existence of a
// non-expired row is the whole truth about a session.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a ledger row for a freshly issued refresh token.
func (r *TokenRepo) Store(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES (?,?,?,?)",
		id, userID, tokenHash, expiresAt)
	return err
}

// FindByHash returns the ledger row for a token hash.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, created_at, expires_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return t, err
}

// Consume deletes the row for a token hash and reports whether this
// call was the one that removed it. Of N concurrent redemptions of
// the same token, exactly one observes true; the delete is the
// single-use guard for rotation.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAllForUser removes every session owned by userID.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}

// DeleteAllForUserExcept removes every session owned by userID other
// than the one matching keepHash. Used by password change so the
// requesting device stays logged in.
func (r *TokenRepo) DeleteAllForUserExcept(ctx context.Context, userID, keepHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND token_hash<>?", userID, keepHash)
	return err
}

// DeleteByIDForUser removes one session by row id, scoped to its
// owner so a user cannot revoke someone else's session.
func (r *TokenRepo) DeleteByIDForUser(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListForUser returns all ledger rows for a user, newest first.
func (r *TokenRepo) ListForUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, token_hash, created_at, expires_at FROM refresh_tokens "+
			"WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountForUser returns the number of live ledger rows for a user.
func (r *TokenRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM refresh_tokens WHERE user_id=?", userID).Scan(&n)
	return n, err
}

// DeleteExpired sweeps rows past their deadline. Advisory cleanup;
// redemption re-checks expiry regardless.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at<=?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
