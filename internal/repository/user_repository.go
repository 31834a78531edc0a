package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

const userColumns = "id,email,password_hash,first_name,last_name,role,provider,google_id," +
	"is_email_verified,email_verification_token,is_active,avatar,email_verified_at," +
	"last_login_at,created_at,updated_at,password_reset_token,password_reset_expires"

// UserRepo persists user records in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// UserFilter narrows List queries. Zero values mean "no filter";
// Verified is a pointer so false can be filtered explicitly.
type UserFilter struct {
	Page     int
	Limit    int
	Search   string
	Role     string
	Provider string
	Verified *bool
}

// UserStats aggregates directory-wide counters.
type UserStats struct {
	Total    int64            `json:"totalUsers"`
	Active   int64            `json:"activeUsers"`
	Verified int64            `json:"verifiedUsers"`
	Recent   int64            `json:"recentUsers"`
	Groups   []UserStatsGroup `json:"breakdown"`
}

// UserStatsGroup is one bucket of the (role, provider, verified,
// active) group-by breakdown.
type UserStatsGroup struct {
	Role            string `json:"role"`
	Provider        string `json:"provider"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	IsActive        bool   `json:"isActive"`
	Count           int64  `json:"count"`
}

// Create inserts a user row. The caller supplies the id.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,email,password_hash,first_name,last_name,role,provider,google_id,"+
			"is_email_verified,email_verification_token,is_active,avatar,email_verified_at,last_login_at,"+
			"password_reset_token,password_reset_expires) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.FirstName, u.LastName,
		u.Role, u.Provider, u.GoogleID, u.IsEmailVerified, u.EmailVerificationToken, u.IsActive,
		u.Avatar, u.EmailVerifiedAt, u.LastLoginAt, u.PasswordResetToken, u.PasswordResetExpires)
	return dupErr(err)
}

// Update writes every mutable column of the row identified by u.ID.
// Callers load the record, mutate the struct and write it back.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?,password_hash=?,first_name=?,last_name=?,role=?,provider=?,google_id=?,"+
			"is_email_verified=?,email_verification_token=?,is_active=?,avatar=?,email_verified_at=?,"+
			"last_login_at=?,password_reset_token=?,password_reset_expires=? WHERE id=?",
		strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.FirstName, u.LastName, u.Role,
		u.Provider, u.GoogleID, u.IsEmailVerified, u.EmailVerificationToken, u.IsActive, u.Avatar,
		u.EmailVerifiedAt, u.LastLoginAt, u.PasswordResetToken, u.PasswordResetExpires, u.ID)
	if err != nil {
		return dupErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 both for missing rows and no-op updates, so
		// confirm the row actually exists before calling it missing.
		var one int
		if qerr := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", u.ID).Scan(&one); qerr == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return nil
}

// Delete removes a user. Refresh-token rows cascade via the FK.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByGoogleID fetches a user by its linked Google subject id.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE google_id=? LIMIT 1", googleID)
}

// GetByVerificationToken fetches the user holding the given email
// verification token.
func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email_verification_token=? LIMIT 1", token)
}

// GetByValidResetToken fetches the user holding the given password
// reset token with an expiry still in the future.
func (r *UserRepo) GetByValidResetToken(ctx context.Context, token string, now time.Time) (model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE password_reset_token=? AND password_reset_expires>? LIMIT 1",
		token, now)
}

// List returns one page of users matching the filter, newest first,
// along with the total match count.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	where, args := buildUserWhere(f)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Stats computes the aggregate counters plus the four-way group-by
// breakdown in a single round of queries.
func (r *UserRepo) Stats(ctx context.Context, now time.Time) (UserStats, error) {
	var s UserStats
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_active),0), COALESCE(SUM(is_email_verified),0), "+
			"COALESCE(SUM(created_at >= ?),0) FROM users",
		now.Add(-7*24*time.Hour)).Scan(&s.Total, &s.Active, &s.Verified, &s.Recent)
	if err != nil {
		return s, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT role,provider,is_email_verified,is_active,COUNT(*) FROM users "+
			"GROUP BY role,provider,is_email_verified,is_active")
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var g UserStatsGroup
		if err := rows.Scan(&g.Role, &g.Provider, &g.IsEmailVerified, &g.IsActive, &g.Count); err != nil {
			return s, err
		}
		s.Groups = append(s.Groups, g)
	}
	return s, rows.Err()
}

func buildUserWhere(f UserFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Search != "" {
		pat := "%" + strings.ToLower(f.Search) + "%"
		conds = append(conds, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, pat, pat, pat)
	}
	if f.Role != "" {
		conds = append(conds, "role=?")
		args = append(args, f.Role)
	}
	if f.Provider != "" {
		conds = append(conds, "provider=?")
		args = append(args, f.Provider)
	}
	if f.Verified != nil {
		conds = append(conds, "is_email_verified=?")
		args = append(args, *f.Verified)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.Provider, &u.GoogleID, &u.IsEmailVerified, &u.EmailVerificationToken, &u.IsActive,
		&u.Avatar, &u.EmailVerifiedAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
		&u.PasswordResetToken, &u.PasswordResetExpires)
	return u, err
}

func (r *UserRepo) getOne(ctx context.Context, query string, args ...interface{}) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// dupErr maps MySQL duplicate-key failures (error 1062) onto the
// repository sentinels, keyed on which unique index tripped.
func dupErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "1062") {
		if strings.Contains(msg, "google_id") {
			return ErrGoogleIDExists
		}
		return ErrEmailExists
	}
	return fmt.Errorf("users: %w", err)
}
