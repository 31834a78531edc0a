package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// fakeUserStore is an in-memory UserStore mirroring the repository's
// uniqueness rules.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
	seq   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range f.users {
		if other.Email == u.Email {
			return repository.ErrEmailExists
		}
		if u.GoogleID != nil && other.GoogleID != nil && *other.GoogleID == *u.GoogleID {
			return repository.ErrGoogleIDExists
		}
	}
	f.seq++
	u.CreatedAt = time.Now().UTC().Add(time.Duration(f.seq) * time.Millisecond)
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserStore) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for id, other := range f.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return repository.ErrEmailExists
		}
		if u.GoogleID != nil && other.GoogleID != nil && *other.GoogleID == *u.GoogleID {
			return repository.ErrGoogleIDExists
		}
	}
	u.UpdatedAt = time.Now().UTC()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByGoogleID(_ context.Context, googleID string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByVerificationToken(_ context.Context, token string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByValidResetToken(_ context.Context, token string, now time.Time) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) List(_ context.Context, flt repository.UserFilter) ([]model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		if flt.Role != "" && u.Role != flt.Role {
			continue
		}
		if flt.Provider != "" && u.Provider != flt.Provider {
			continue
		}
		if flt.Verified != nil && u.IsEmailVerified != *flt.Verified {
			continue
		}
		if flt.Search != "" {
			needle := strings.ToLower(flt.Search)
			hay := strings.ToLower(u.FirstName + " " + u.LastName + " " + u.Email)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		matched = append(matched, u)
	}
	// Newest first, as the SQL listing orders it.
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.After(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	total := int64(len(matched))
	start := (flt.Page - 1) * flt.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + flt.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeUserStore) Stats(_ context.Context, now time.Time) (repository.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var st repository.UserStats
	groups := map[repository.UserStatsGroup]int64{}
	cutoff := now.Add(-7 * 24 * time.Hour)
	for _, u := range f.users {
		st.Total++
		if u.IsActive {
			st.Active++
		}
		if u.IsEmailVerified {
			st.Verified++
		}
		if u.CreatedAt.After(cutoff) {
			st.Recent++
		}
		key := repository.UserStatsGroup{
			Role:            u.Role,
			Provider:        u.Provider,
			IsEmailVerified: u.IsEmailVerified,
			IsActive:        u.IsActive,
		}
		groups[key]++
	}
	for k, n := range groups {
		k.Count = n
		st.Groups = append(st.Groups, k)
	}
	return st, nil
}

// fakeTokenLedger is an in-memory TokenLedger; Consume is atomic
// under the mutex the same way the SQL delete is.
type fakeTokenLedger struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken // keyed by token hash
}

func newFakeTokenLedger() *fakeTokenLedger {
	return &fakeTokenLedger{rows: map[string]model.RefreshToken{}}
}

func (f *fakeTokenLedger) Store(_ context.Context, id, userID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tokenHash] = model.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (f *fakeTokenLedger) FindByHash(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[tokenHash]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return row, nil
}

func (f *fakeTokenLedger) Consume(_ context.Context, tokenHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[tokenHash]; !ok {
		return false, nil
	}
	delete(f.rows, tokenHash)
	return true, nil
}

func (f *fakeTokenLedger) DeleteAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, row := range f.rows {
		if row.UserID == userID {
			delete(f.rows, h)
		}
	}
	return nil
}

func (f *fakeTokenLedger) DeleteAllForUserExcept(_ context.Context, userID, keepHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, row := range f.rows {
		if row.UserID == userID && h != keepHash {
			delete(f.rows, h)
		}
	}
	return nil
}

func (f *fakeTokenLedger) DeleteByIDForUser(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, row := range f.rows {
		if row.ID == id && row.UserID == userID {
			delete(f.rows, h)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTokenLedger) ListForUser(_ context.Context, userID string) ([]model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.RefreshToken
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeTokenLedger) CountForUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenLedger) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, row := range f.rows {
		if row.Expired(now) {
			delete(f.rows, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeMailer records sends instead of delivering.
type fakeMailer struct {
	mu     sync.Mutex
	verify []string // recipient addresses
	reset  []string
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verify = append(f.verify, to)
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset = append(f.reset, to)
	return nil
}

func (f *fakeMailer) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reset)
}

func testConfig() config.Config {
	return config.Config{
		Env:              "test",
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTTLMin:     15,
		RefreshTTLDays:   7,
		BcryptCost:       4, // keep hashing fast in tests
		ClientURL:        "http://localhost:3000",
		AppName:          "Auth App",
	}
}

func newTestServices() (*AuthService, *fakeUserStore, *fakeTokenLedger, *fakeMailer) {
	users := newFakeUserStore()
	tokens := newFakeTokenLedger()
	mailer := &fakeMailer{}
	return NewAuthService(testConfig(), users, tokens, mailer), users, tokens, mailer
}
