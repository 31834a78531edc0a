package service

import (
	"context"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// UserStore is the credential-store surface the services consume.
// *repository.UserRepo satisfies it; tests use an in-memory fake.
// Delete is expected to cascade to the user's ledger rows.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (model.User, error)
	GetByValidResetToken(ctx context.Context, token string, now time.Time) (model.User, error)
	List(ctx context.Context, f repository.UserFilter) ([]model.User, int64, error)
	Stats(ctx context.Context, now time.Time) (repository.UserStats, error)
}

// TokenLedger is the refresh-token ledger surface. *repository.TokenRepo
// satisfies it. Consume must be atomic: for N concurrent calls with
// one hash, exactly one may report true.
type TokenLedger interface {
	Store(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	Consume(ctx context.Context, tokenHash string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteAllForUserExcept(ctx context.Context, userID, keepHash string) error
	DeleteByIDForUser(ctx context.Context, id, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.RefreshToken, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Mailer delivers account emails. Implementations are expected to be
// fire-and-forget friendly; the services log failures and move on,
// never failing the primary operation over mail.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, firstName, token string) error
	SendPasswordResetEmail(ctx context.Context, to, firstName, token string) error
}

// Principal is the minimal authenticated identity attached to a
// request by the auth middleware.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }
