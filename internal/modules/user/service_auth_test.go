package user

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginIssuesCredential(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "vaibhav", StatusActive)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "  Vaibhav ", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Username != "vaibhav" {
		t.Fatalf("username: got %q", res.Username)
	}
	claims, err := f.issuer.Verify(ctx, res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != u.ID || claims.Username != "vaibhav" || claims.Role != string(RoleUser) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginUnknownUserLooksLikeBadPassword(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Login(context.Background(), "ghost", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "vaibhav", StatusActive)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := f.svc.Login(ctx, "vaibhav", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i, err)
		}
	}

	got := f.repo.user(t, u.ID)
	if got.AccountStatus != StatusLocked || got.FailedLoginAttempts != 3 {
		t.Fatalf("unexpected state: %s, %d attempts", got.AccountStatus, got.FailedLoginAttempts)
	}
	if want := testStart.Add(24 * time.Hour); got.LockUntil == nil || !got.LockUntil.Equal(want) {
		t.Fatalf("lockUntil: got %v, want %v", got.LockUntil, want)
	}

	// the right password does not help while locked
	_, err := f.svc.Login(ctx, "vaibhav", testPassword)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}
	var de *DomainError
	if !errors.As(err, &de) || de.Context == nil {
		t.Fatalf("locked error should carry lockUntil context: %#v", err)
	}

	f.clock.Advance(24*time.Hour + time.Second)
	if _, err := f.svc.Login(ctx, "vaibhav", testPassword); err != nil {
		t.Fatalf("Login after lock: %v", err)
	}
	got = f.repo.user(t, u.ID)
	if got.AccountStatus != StatusActive || got.FailedLoginAttempts != 0 || got.LockUntil != nil {
		t.Fatalf("unexpected state after unlock: %+v", got)
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "vaibhav", StatusActive)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = f.svc.Login(ctx, "vaibhav", "wrong")
	}
	if _, err := f.svc.Login(ctx, "vaibhav", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := f.repo.user(t, u.ID).FailedLoginAttempts; got != 0 {
		t.Fatalf("failed attempts: got %d, want 0", got)
	}
}

func TestLoginFailureAfterExpiredLockStartsNewCount(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "vaibhav", StatusActive)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, "vaibhav", "wrong")
	}
	f.clock.Advance(25 * time.Hour)

	if _, err := f.svc.Login(ctx, "vaibhav", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	got := f.repo.user(t, u.ID)
	if got.AccountStatus != StatusActive || got.FailedLoginAttempts != 1 {
		t.Fatalf("unexpected state: %s, %d attempts", got.AccountStatus, got.FailedLoginAttempts)
	}
}

func TestLoginStatusGates(t *testing.T) {
	cases := []struct {
		status AccountStatus
		want   error
	}{
		{StatusPendingVerification, ErrAccountUnverified},
		{StatusBlocked, ErrAccountBlocked},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newFixture(t)
			u := f.seedUser(t, "vaibhav", tc.status)
			if _, err := f.svc.Login(context.Background(), "vaibhav", testPassword); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if got := f.repo.user(t, u.ID).FailedLoginAttempts; got != 0 {
				t.Fatalf("gated login must not count attempts, got %d", got)
			}
		})
	}
}

func registerInput(username string) RegisterInput {
	return RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Mobile:   "+4915112345678",
		Password: testPassword,
	}
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Register(ctx, registerInput("Ananya"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.drain(t)

	u := f.repo.user(t, id)
	if u.Username != "ananya" || u.AccountStatus != StatusPendingVerification {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.EmailVerified || u.MobileVerified {
		t.Fatal("new account must start unverified")
	}
	if u.PasswordHash == testPassword || !f.hasher.Verify(testPassword, u.PasswordHash) {
		t.Fatal("password must be stored hashed")
	}

	otps := f.repo.otpsFor(id)
	if len(otps) != 2 {
		t.Fatalf("expected email and mobile codes, got %d", len(otps))
	}
	for _, o := range otps {
		if o.Reason != ReasonRegistration {
			t.Fatalf("reason: got %s", o.Reason)
		}
	}
	if n := len(f.notifier.all()); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
}

func TestRegisterReusesPendingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, registerInput("ananya"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.drain(t)

	second, err := f.svc.Register(ctx, registerInput("ananya"))
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	f.drain(t)

	if first != second {
		t.Fatalf("expected the pending account to be reused, got %s and %s", first, second)
	}
	// the resend falls inside the cooldown
	if n := len(f.repo.otpsFor(first)); n != 2 {
		t.Fatalf("expected 2 otps, got %d", n)
	}
}

func TestRegisterRejectsExistingActiveEmail(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "ananya", StatusActive)

	if _, err := f.svc.Register(context.Background(), registerInput("ananya")); !errors.Is(err, ErrUserExists) {
		t.Fatalf("got %v, want ErrUserExists", err)
	}
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "ananya", StatusActive)

	in := registerInput("ananya")
	in.Email = "other@example.com"
	if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("got %v, want ErrUsernameExists", err)
	}
}

func TestRegisterRejectsEmptyPassword(t *testing.T) {
	f := newFixture(t)
	in := registerInput("ananya")
	in.Password = "   "
	if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("got %v, want ErrInvalidPassword", err)
	}
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "vaibhav", StatusActive)

	acc, err := f.svc.GetAccount(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.Username != "vaibhav" || acc.Status != StatusActive || !acc.EmailVerified {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if _, err := f.svc.GetAccount(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
