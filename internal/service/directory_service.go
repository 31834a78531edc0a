package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// DirectoryService implements user administration: filtered listing,
// mutations with the self-action guards, aggregate stats and session
// enumeration/revocation. Every operation takes the acting principal
// so the guards live here rather than in the handlers.
type DirectoryService struct {
	users  UserStore
	tokens TokenLedger
}

func NewDirectoryService(users UserStore, tokens TokenLedger) *DirectoryService {
	return &DirectoryService{users: users, tokens: tokens}
}

// Pagination is the listing envelope: totalPages is always
// ceil(totalCount/limit), zero rows giving zero pages.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
}

// UserPage is one page of sanitized users.
type UserPage struct {
	Users      []model.SanitizedUser `json:"users"`
	Pagination Pagination            `json:"pagination"`
}

// List returns a filtered, paginated directory page.
func (s *DirectoryService) List(ctx context.Context, f repository.UserFilter) (UserPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return UserPage{}, err
	}

	out := make([]model.SanitizedUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Sanitize())
	}
	totalPages := (total + int64(f.Limit) - 1) / int64(f.Limit)
	return UserPage{
		Users: out,
		Pagination: Pagination{
			CurrentPage: f.Page,
			TotalPages:  totalPages,
			TotalCount:  total,
			Limit:       f.Limit,
		},
	}, nil
}

// Get loads one user. Permitted for the user themself or an admin.
func (s *DirectoryService) Get(ctx context.Context, p Principal, targetID string) (Profile, error) {
	if p.ID != targetID && !p.IsAdmin() {
		return Profile{}, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return Profile{}, notFound(err)
	}
	n, err := s.tokens.CountForUser(ctx, targetID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, ActiveDevices: n}, nil
}

// UpdateUserInput carries admin/self user edits. Empty strings leave
// a field untouched; IsActive is a pointer so false is expressible.
type UpdateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
	IsActive  *bool
}

// Update edits a user. Non-admin callers may only touch their own
// first/last/email, and an email change re-enters unverified state.
// Admins may additionally set role and active status, but cannot
// deactivate themselves.
func (s *DirectoryService) Update(ctx context.Context, p Principal, targetID string, in UpdateUserInput) (model.User, error) {
	if p.ID != targetID && !p.IsAdmin() {
		return model.User{}, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return model.User{}, notFound(err)
	}

	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}

	if !p.IsAdmin() {
		newEmail := strings.ToLower(strings.TrimSpace(in.Email))
		if newEmail != "" && newEmail != u.Email {
			if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
				return model.User{}, ErrEmailTaken
			} else if !errors.Is(err, repository.ErrNotFound) {
				return model.User{}, err
			}
			token, err := utils.NewOpaqueToken()
			if err != nil {
				return model.User{}, err
			}
			u.Email = newEmail
			u.IsEmailVerified = false
			u.EmailVerifiedAt = nil
			u.EmailVerificationToken = &token
		}
	} else {
		if in.Email != "" {
			u.Email = strings.ToLower(strings.TrimSpace(in.Email))
		}
		if in.Role != "" {
			u.Role = in.Role
		}
		if in.IsActive != nil {
			if p.ID == targetID && !*in.IsActive {
				return model.User{}, ErrSelfAction
			}
			u.IsActive = *in.IsActive
		}
	}

	if err := s.users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, err
	}
	return u, nil
}

// UpdateRole changes a user's role. Admins cannot re-role themselves.
func (s *DirectoryService) UpdateRole(ctx context.Context, p Principal, targetID, role string) (model.User, error) {
	if p.ID == targetID {
		return model.User{}, ErrSelfAction
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return model.User{}, notFound(err)
	}
	u.Role = role
	if err := s.users.Update(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Deactivate disables an account and revokes all its sessions, which
// forces a logout on every device. Admins cannot deactivate
// themselves.
func (s *DirectoryService) Deactivate(ctx context.Context, p Principal, targetID string) (model.User, error) {
	if p.ID == targetID {
		return model.User{}, ErrSelfAction
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return model.User{}, notFound(err)
	}
	u.IsActive = false
	if err := s.users.Update(ctx, &u); err != nil {
		return model.User{}, err
	}
	if err := s.tokens.DeleteAllForUser(ctx, targetID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Activate re-enables an account.
func (s *DirectoryService) Activate(ctx context.Context, targetID string) (model.User, error) {
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return model.User{}, notFound(err)
	}
	u.IsActive = true
	if err := s.users.Update(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Delete removes an account, cascading to its ledger rows. Admins
// cannot delete themselves; a regular user may delete their own
// account.
func (s *DirectoryService) Delete(ctx context.Context, p Principal, targetID string) error {
	if p.ID != targetID && !p.IsAdmin() {
		return ErrForbidden
	}
	if p.ID == targetID && p.IsAdmin() {
		return ErrSelfAction
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return notFound(err)
	}
	return nil
}

// Stats returns the directory-wide counters.
func (s *DirectoryService) Stats(ctx context.Context) (repository.UserStats, error) {
	return s.users.Stats(ctx, time.Now().UTC())
}

// Sessions lists the caller's ledger rows as client-facing sessions.
func (s *DirectoryService) Sessions(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := s.tokens.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]model.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Session{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			ExpiresAt: r.ExpiresAt,
			IsExpired: r.Expired(now),
		})
	}
	return out, nil
}

// RevokeSession deletes one of the caller's sessions by id.
func (s *DirectoryService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	ok, err := s.tokens.DeleteByIDForUser(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
