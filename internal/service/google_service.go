package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// GoogleService reconciles Google identity assertions against the
// credential store and manages linking. Session minting is delegated
// to the AuthService so federated logins behave exactly like local
// ones once an account is resolved.
type GoogleService struct {
	users UserStore
	auth  *AuthService
}

func NewGoogleService(users UserStore, auth *AuthService) *GoogleService {
	return &GoogleService{users: users, auth: auth}
}

// GoogleIdentity is the externally asserted profile from Google.
type GoogleIdentity struct {
	GoogleID  string
	Email     string
	FirstName string
	LastName  string
	Avatar    string
}

// ResolveIdentity runs the three-way branch: create a new verified
// account, link an existing account by email, or treat a known
// google_id as a returning login. The bool result reports whether a
// new account was created.
func (s *GoogleService) ResolveIdentity(ctx context.Context, id GoogleIdentity) (*AuthResult, bool, error) {
	now := time.Now().UTC()

	u, err := s.users.GetByGoogleID(ctx, id.GoogleID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	byGoogle := err == nil

	if !byGoogle {
		u, err = s.users.GetByEmail(ctx, id.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
		if errors.Is(err, repository.ErrNotFound) {
			// Branch 1: first contact, create a pre-verified account.
			gid := id.GoogleID
			u = model.User{
				ID:              uuid.NewString(),
				Email:           id.Email,
				FirstName:       id.FirstName,
				LastName:        id.LastName,
				Role:            model.RoleUser,
				Provider:        model.ProviderGoogle,
				GoogleID:        &gid,
				IsEmailVerified: true,
				EmailVerifiedAt: &now,
				IsActive:        true,
				Avatar:          optional(id.Avatar),
				LastLoginAt:     &now,
			}
			if err := s.users.Create(ctx, &u); err != nil {
				return nil, false, err
			}
			res, err := s.auth.issueSession(ctx, &u)
			return res, true, err
		}

		// Branch 2: same email. Link only when no google_id is on
		// file yet; an account already linked to a different Google
		// identity keeps it, and this is just a returning login.
		if u.GoogleID == nil {
			gid := id.GoogleID
			u.GoogleID = &gid
			u.IsEmailVerified = true
			if u.EmailVerifiedAt == nil {
				u.EmailVerifiedAt = &now
			}
			u.EmailVerificationToken = nil
		}
	}
	// Branch 3 (and tail of branch 2): returning login.
	u.LastLoginAt = &now
	if id.Avatar != "" {
		u.Avatar = optional(id.Avatar)
	}

	if !u.IsActive {
		return nil, false, ErrAccountDisabled
	}
	if err := s.users.Update(ctx, &u); err != nil {
		return nil, false, err
	}

	res, err := s.auth.issueSession(ctx, &u)
	return res, false, err
}

// Link attaches a Google identity to the caller's account. If the
// asserted email matches an unverified account email, verification
// comes along for free.
func (s *GoogleService) Link(ctx context.Context, userID, googleID, googleEmail string) (model.User, error) {
	if existing, err := s.users.GetByGoogleID(ctx, googleID); err == nil && existing.ID != userID {
		return model.User{}, ErrGoogleAlreadyLinked
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	gid := googleID
	u.GoogleID = &gid
	if u.Email == googleEmail && !u.IsEmailVerified {
		now := time.Now().UTC()
		u.IsEmailVerified = true
		u.EmailVerifiedAt = &now
		u.EmailVerificationToken = nil
	}
	if err := s.users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrGoogleIDExists) {
			return model.User{}, ErrGoogleAlreadyLinked
		}
		return model.User{}, err
	}
	return u, nil
}

// Unlink detaches the Google identity. Federated-only accounts with
// no password are refused, otherwise the user would be locked out.
func (s *GoogleService) Unlink(ctx context.Context, userID string) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if u.LinkState() == model.LinkFederated {
		return model.User{}, ErrNoFallbackCredential
	}

	u.GoogleID = nil
	if u.Provider == model.ProviderGoogle {
		u.Provider = model.ProviderLocal
	}
	if err := s.users.Update(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// GoogleStatus summarizes the account's linkage for the settings UI.
type GoogleStatus struct {
	IsLinked    bool   `json:"isLinked"`
	Provider    string `json:"provider"`
	HasPassword bool   `json:"hasPassword"`
	CanUnlink   bool   `json:"canUnlink"`
}

// Status reports the caller's Google linkage.
func (s *GoogleService) Status(ctx context.Context, userID string) (GoogleStatus, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return GoogleStatus{}, err
	}
	return GoogleStatus{
		IsLinked:    u.GoogleID != nil,
		Provider:    u.Provider,
		HasPassword: u.HasPassword(),
		CanUnlink:   u.LinkState() != model.LinkFederated,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
