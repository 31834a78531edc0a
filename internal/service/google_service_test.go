package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/auth-service/internal/model"
)

func newGoogleFixture() (*GoogleService, *AuthService, *fakeUserStore, *fakeTokenLedger) {
	auth, users, tokens, _ := newTestServices()
	return NewGoogleService(users, auth), auth, users, tokens
}

func identity(gid, email string) GoogleIdentity {
	return GoogleIdentity{
		GoogleID:  gid,
		Email:     email,
		FirstName: "Greta",
		LastName:  "Garbo",
		Avatar:    "https://lh3.example/avatar.png",
	}
}

func TestResolveIdentityCreatesVerifiedAccount(t *testing.T) {
	svc, _, _, tokens := newGoogleFixture()

	res, created, err := svc.ResolveIdentity(context.Background(), identity("g-1", "new@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected a new account")
	}
	u := res.User
	if u.Provider != model.ProviderGoogle || u.GoogleID == nil || *u.GoogleID != "g-1" {
		t.Fatalf("provider=%q googleID=%v", u.Provider, u.GoogleID)
	}
	if !u.IsEmailVerified || u.EmailVerifiedAt == nil {
		t.Error("federated signup must arrive verified")
	}
	if u.HasPassword() {
		t.Error("federated signup must not carry a password")
	}
	if tokens.count() != 1 {
		t.Fatalf("ledger rows = %d, want 1", tokens.count())
	}
}

func TestResolveIdentityLinksByEmail(t *testing.T) {
	svc, auth, users, _ := newGoogleFixture()
	ctx := context.Background()

	local := register(t, auth, "link@example.com")
	if local.User.IsEmailVerified {
		t.Fatal("precondition: local signup starts unverified")
	}

	res, created, err := svc.ResolveIdentity(ctx, identity("g-2", "link@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("email match must link, not create")
	}
	if res.User.ID != local.User.ID {
		t.Fatal("linked to the wrong account")
	}
	u, _ := users.GetByID(ctx, local.User.ID)
	if u.GoogleID == nil || *u.GoogleID != "g-2" {
		t.Errorf("googleID = %v, want g-2", u.GoogleID)
	}
	if !u.IsEmailVerified {
		t.Error("linking a matching address must verify it")
	}
	if !u.HasPassword() {
		t.Error("linking must not drop the local password")
	}
}

func TestResolveIdentityKeepsExistingLinkOnEmailMatch(t *testing.T) {
	svc, _, users, _ := newGoogleFixture()
	ctx := context.Background()

	first, _, err := svc.ResolveIdentity(ctx, identity("g-old", "dup@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	// A different Google identity asserting the same email must not
	// replace the one already on file.
	res, created, err := svc.ResolveIdentity(ctx, identity("g-new", "dup@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("email match must not create a second account")
	}
	if res.User.ID != first.User.ID {
		t.Fatal("resolved a different account")
	}
	u, _ := users.GetByID(ctx, first.User.ID)
	if u.GoogleID == nil || *u.GoogleID != "g-old" {
		t.Fatalf("googleID = %v, want the original g-old", u.GoogleID)
	}
}

func TestResolveIdentityReturningLogin(t *testing.T) {
	svc, _, users, _ := newGoogleFixture()
	ctx := context.Background()

	first, created, err := svc.ResolveIdentity(ctx, identity("g-3", "ret@example.com"))
	if err != nil || !created {
		t.Fatalf("setup: created=%v err=%v", created, err)
	}

	res, created, err := svc.ResolveIdentity(ctx, identity("g-3", "ret@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("returning login must not create")
	}
	if res.User.ID != first.User.ID {
		t.Fatal("returning login resolved a different account")
	}
	u, _ := users.GetByID(ctx, first.User.ID)
	if u.LastLoginAt == nil {
		t.Error("returning login must stamp last_login_at")
	}
}

func TestResolveIdentityDisabledAccount(t *testing.T) {
	svc, _, users, _ := newGoogleFixture()
	ctx := context.Background()

	res, _, err := svc.ResolveIdentity(ctx, identity("g-4", "off@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	u, _ := users.GetByID(ctx, res.User.ID)
	u.IsActive = false
	if err := users.Update(ctx, &u); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.ResolveIdentity(ctx, identity("g-4", "off@example.com")); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled account = %v, want ErrAccountDisabled", err)
	}
}

func TestLink(t *testing.T) {
	svc, auth, _, _ := newGoogleFixture()
	ctx := context.Background()

	a := register(t, auth, "a@example.com")
	b := register(t, auth, "b@example.com")

	// Linking with the account's own address brings verification along.
	u, err := svc.Link(ctx, a.User.ID, "g-5", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.GoogleID == nil || *u.GoogleID != "g-5" || !u.IsEmailVerified {
		t.Fatalf("link result: googleID=%v verified=%v", u.GoogleID, u.IsEmailVerified)
	}

	// The same Google identity cannot attach to a second account.
	if _, err := svc.Link(ctx, b.User.ID, "g-5", "b@example.com"); !errors.Is(err, ErrGoogleAlreadyLinked) {
		t.Errorf("second link = %v, want ErrGoogleAlreadyLinked", err)
	}

	// A different address does not verify the account.
	bu, err := svc.Link(ctx, b.User.ID, "g-6", "elsewhere@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if bu.IsEmailVerified {
		t.Error("mismatched address must not verify the account")
	}
}

func TestUnlink(t *testing.T) {
	svc, auth, users, _ := newGoogleFixture()
	ctx := context.Background()

	// Local account with a linked Google identity can unlink.
	a := register(t, auth, "ua@example.com")
	if _, err := svc.Link(ctx, a.User.ID, "g-7", "ua@example.com"); err != nil {
		t.Fatal(err)
	}
	u, err := svc.Unlink(ctx, a.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.GoogleID != nil {
		t.Error("unlink left the google id in place")
	}
	if u.Provider != model.ProviderLocal {
		t.Errorf("provider = %q, want LOCAL", u.Provider)
	}

	// Federated-only account must keep its only credential.
	res, _, err := svc.ResolveIdentity(ctx, identity("g-8", "only@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Unlink(ctx, res.User.ID); !errors.Is(err, ErrNoFallbackCredential) {
		t.Errorf("federated-only unlink = %v, want ErrNoFallbackCredential", err)
	}
	got, _ := users.GetByID(ctx, res.User.ID)
	if got.GoogleID == nil {
		t.Error("refused unlink must leave the link intact")
	}
}

func TestGoogleStatus(t *testing.T) {
	svc, auth, _, _ := newGoogleFixture()
	ctx := context.Background()

	a := register(t, auth, "st@example.com")
	st, err := svc.Status(ctx, a.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.IsLinked || !st.HasPassword || !st.CanUnlink {
		t.Fatalf("unlinked local status = %+v", st)
	}

	res, _, err := svc.ResolveIdentity(ctx, identity("g-9", "fed@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	st, err = svc.Status(ctx, res.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsLinked || st.HasPassword || st.CanUnlink {
		t.Fatalf("federated-only status = %+v", st)
	}
}
