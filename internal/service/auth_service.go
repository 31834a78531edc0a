package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// ForgotPasswordMessage is returned for every forgot-password request
// regardless of whether the address exists, so responses cannot be
// used to enumerate accounts.
const ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent"

// AuthService is the session manager: it owns registration, login,
// refresh rotation, logout and the credential-recovery flows. All
// session truth lives in the ledger; the service holds no mutable
// state of its own and is safe for concurrent use.
type AuthService struct {
	cfg    config.Config
	users  UserStore
	tokens TokenLedger
	mailer Mailer
}

func NewAuthService(cfg config.Config, users UserStore, tokens TokenLedger, mailer Mailer) *AuthService {
	return &AuthService{cfg: cfg, users: users, tokens: tokens, mailer: mailer}
}

// AuthResult is a freshly minted session: the owning user plus the
// access/refresh pair. Expiries ride along so cookie Max-Age always
// matches the signed exp claim.
type AuthResult struct {
	User    model.User
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a LOCAL account, queues the verification email and
// opens the first session. Duplicate email yields ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	verifyToken, err := utils.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	u := model.User{
		ID:                     uuid.NewString(),
		Email:                  email,
		PasswordHash:           &hash,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		Role:                   model.RoleUser,
		Provider:               model.ProviderLocal,
		EmailVerificationToken: &verifyToken,
		IsActive:               true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.sendMail(func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, u.Email, u.FirstName, verifyToken)
	})

	return s.issueSession(ctx, &u)
}

// Login verifies an email/password pair and opens a session. The
// credential failure is generic on purpose; only disabled accounts
// and passwordless federated accounts get distinct signals.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	if u.Provider == model.ProviderGoogle && !u.HasPassword() {
		return nil, ErrUseFederatedLogin
	}
	if !u.HasPassword() || !utils.VerifyPassword(*u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, &u); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, &u)
}

// Refresh redeems a refresh token for a new pair. The old ledger row
// is consumed atomically before the new one is written, so a token
// value is redeemable at most once: of two concurrent calls with the
// same value, the loser observes ErrSessionNotFound.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*AuthResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingToken
	}
	if _, err := utils.VerifyToken(s.cfg.JWTRefreshSecret, raw); err != nil {
		return nil, ErrInvalidToken
	}

	hash := utils.HashRefreshRaw(raw)
	row, err := s.tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	now := time.Now().UTC()
	if row.Expired(now) {
		// Dead row the sweeper has not reached yet. Remove it and fail.
		_, _ = s.tokens.Consume(ctx, hash)
		return nil, ErrSessionNotFound
	}

	u, err := s.users.GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	ok, err := s.tokens.Consume(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent refresh already rotated this token.
		return nil, ErrSessionNotFound
	}

	return s.issueSession(ctx, &u)
}

// Logout ends the session behind the presented refresh token. It is
// idempotent: an unknown or already-removed token is not an error.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	_, err := s.tokens.Consume(ctx, utils.HashRefreshRaw(raw))
	return err
}

// LogoutAll ends every session owned by userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.DeleteAllForUser(ctx, userID)
}

// ChangePassword swaps the password hash and revokes every other
// session. The ledger row matching currentRefreshRaw survives so the
// requesting device stays signed in.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, currentRefreshRaw string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() || !utils.VerifyPassword(*u.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = &hash
	if err := s.users.Update(ctx, &u); err != nil {
		return err
	}

	return s.tokens.DeleteAllForUserExcept(ctx, userID, utils.HashRefreshRaw(currentRefreshRaw))
}

// ForgotPassword starts the reset flow. The caller always gets the
// same generic outcome; accounts that cannot reset (unknown address,
// federated-only) simply receive no email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if u.Provider == model.ProviderGoogle && !u.HasPassword() {
		return nil
	}

	token, err := utils.NewOpaqueToken()
	if err != nil {
		return err
	}
	expires := time.Now().UTC().Add(10 * time.Minute)
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
	if err := s.users.Update(ctx, &u); err != nil {
		return err
	}

	s.sendMail(func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, u.Email, u.FirstName, token)
	})
	return nil
}

// ResetPassword redeems a reset token. On success the token is
// cleared (single use) and every session is revoked, so a password
// reset never leaves stale sessions alive anywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	u, err := s.users.GetByValidResetToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = &hash
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
	if err := s.users.Update(ctx, &u); err != nil {
		return err
	}

	return s.tokens.DeleteAllForUser(ctx, u.ID)
}

// VerifyEmail marks the address behind the token as confirmed. A
// second call with the same token finds the already-verified user
// and succeeds with no further side effects.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (model.User, bool, error) {
	u, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, false, ErrInvalidToken
		}
		return model.User{}, false, err
	}
	if u.IsEmailVerified {
		return u, true, nil
	}

	now := time.Now().UTC()
	u.IsEmailVerified = true
	u.EmailVerifiedAt = &now
	if err := s.users.Update(ctx, &u); err != nil {
		return model.User{}, false, err
	}
	return u, false, nil
}

// ResendVerification regenerates the verification token. Overwriting
// the stored token invalidates the previous email's link.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return ErrAlreadyVerified
	}

	token, err := utils.NewOpaqueToken()
	if err != nil {
		return err
	}
	u.EmailVerificationToken = &token
	if err := s.users.Update(ctx, &u); err != nil {
		return err
	}

	s.sendMail(func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, u.Email, u.FirstName, token)
	})
	return nil
}

// Profile bundles a user with the count of live sessions.
type Profile struct {
	User          model.User
	ActiveDevices int64
}

// GetProfile loads the caller's record plus its session count.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	n, err := s.tokens.CountForUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, ActiveDevices: n}, nil
}

// UpdateProfileInput carries optional profile changes; empty fields
// are left untouched.
type UpdateProfileInput struct {
	FirstName string
	LastName  string
	Email     string
}

// UpdateProfile applies name/email changes for the caller. An email
// change drops the account back to unverified and queues a fresh
// verification email for the new address.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (model.User, bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, false, err
	}

	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}

	emailChanged := false
	newEmail := strings.ToLower(strings.TrimSpace(in.Email))
	if newEmail != "" && newEmail != u.Email {
		if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
			return model.User{}, false, ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return model.User{}, false, err
		}
		token, err := utils.NewOpaqueToken()
		if err != nil {
			return model.User{}, false, err
		}
		u.Email = newEmail
		u.IsEmailVerified = false
		u.EmailVerifiedAt = nil
		u.EmailVerificationToken = &token
		emailChanged = true
	}

	if err := s.users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, false, ErrEmailTaken
		}
		return model.User{}, false, err
	}

	if emailChanged {
		token := *u.EmailVerificationToken
		s.sendMail(func(ctx context.Context) error {
			return s.mailer.SendVerificationEmail(ctx, u.Email, u.FirstName, token)
		})
	}
	return u, emailChanged, nil
}

// issueSession mints an access/refresh pair bound to the user's
// current claim snapshot and persists the refresh side in the ledger.
func (s *AuthService) issueSession(ctx context.Context, u *model.User) (*AuthResult, error) {
	payload := utils.TokenPayload{
		UserID:          u.ID,
		Email:           u.Email,
		Role:            u.Role,
		Provider:        u.Provider,
		IsEmailVerified: u.IsEmailVerified,
	}
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, payload, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.JWTRefreshSecret, payload, s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Store(ctx, uuid.NewString(), u.ID, utils.HashRefreshRaw(refresh.Token), refresh.Exp); err != nil {
		return nil, err
	}
	return &AuthResult{User: *u, Access: access, Refresh: refresh}, nil
}

// sendMail runs a mail send off the request path. Delivery failures
// are logged and never surface to the caller.
func (s *AuthService) sendMail(send func(context.Context) error) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Printf("mail: send failed: %v", err)
		}
	}()
}
