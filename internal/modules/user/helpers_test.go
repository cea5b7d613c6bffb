package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/delordemm1/account-guard/internal/cache"
	"github.com/delordemm1/account-guard/internal/config"
	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/notification"
	"github.com/delordemm1/account-guard/internal/notification/templates"
	"github.com/delordemm1/account-guard/internal/security"
	"golang.org/x/crypto/bcrypt"
)

var testStart = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

const (
	testPassword = "correct-horse-battery"
	testCode     = "123456"
)

// --- clock & generators ---

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedCode struct {
	mu   sync.Mutex
	code string
}

func (g *fixedCode) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.code, nil
}

func (g *fixedCode) Set(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.code = code
}

type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (g *seqTokens) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

// --- notifier ---

// recordingNotifier renders with the real templates and records deliveries synchronously.
type recordingNotifier struct {
	mu       sync.Mutex
	renderer templates.Renderer
	sent     []notification.Notification
}

func (n *recordingNotifier) Send(_ context.Context, msg notification.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) Render(ctx context.Context, id string, data any) (templates.Rendered, error) {
	return n.renderer.RenderAny(ctx, id, data)
}

func (n *recordingNotifier) Drain(context.Context) error { return nil }

func (n *recordingNotifier) all() []notification.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Notification(nil), n.sent...)
}

// withSubject returns deliveries whose email subject matches.
func (n *recordingNotifier) withSubject(subject string) []notification.Notification {
	var out []notification.Notification
	for _, msg := range n.all() {
		if msg.Content.EmailSubject == subject {
			out = append(out, msg)
		}
	}
	return out
}

// --- in-memory repository ---

type memState struct {
	users  map[string]User
	otps   []Otp
	tokens []PasswordResetToken
}

func (s memState) clone() memState {
	users := make(map[string]User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	return memState{
		users:  users,
		otps:   append([]Otp(nil), s.otps...),
		tokens: append([]PasswordResetToken(nil), s.tokens...),
	}
}

// memRepo is an in-memory Repository. WithTx serialises transactions and restores a
// snapshot when fn fails, mirroring a rollback.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   memState
}

func newMemRepo() *memRepo {
	return &memRepo{st: memState{users: map[string]User{}}}
}

func (r *memRepo) WithTx(_ context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := r.st.clone()
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.st = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) CreateUser(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.st.users {
		switch {
		case existing.Username == u.Username:
			return ErrUsernameExists
		case existing.Email == u.Email:
			return ErrEmailExists
		case existing.Mobile == u.Mobile:
			return ErrMobileExists
		}
	}
	r.st.users[u.ID] = *u
	return nil
}

func (r *memRepo) findUser(match func(User) bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.st.users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) FindUserByID(_ context.Context, id string) (*User, error) {
	return r.findUser(func(u User) bool { return u.ID == id })
}

func (r *memRepo) FindUserByUsername(_ context.Context, username string) (*User, error) {
	return r.findUser(func(u User) bool { return u.Username == username })
}

func (r *memRepo) FindUserByEmail(_ context.Context, email string) (*User, error) {
	return r.findUser(func(u User) bool { return u.Email == email })
}

func (r *memRepo) LockUserByID(ctx context.Context, id string) (*User, error) {
	return r.FindUserByID(ctx, id)
}

func (r *memRepo) UpdateUser(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.st.users[u.ID]; !ok {
		return ErrNotFound
	}
	r.st.users[u.ID] = *u
	return nil
}

func (r *memRepo) CreateOtp(_ context.Context, otp *Otp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.otps = append(r.st.otps, *otp)
	return nil
}

func (r *memRepo) LatestOtp(_ context.Context, userID string, otpType OtpType, reason OtpReason) (*Otp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *Otp
	for i := range r.st.otps {
		o := r.st.otps[i]
		if o.UserID != userID || o.Type != otpType || o.Reason != reason {
			continue
		}
		if latest == nil || !o.CreatedAt.Before(latest.CreatedAt) {
			cp := o
			latest = &cp
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (r *memRepo) LockLatestOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (*Otp, error) {
	return r.LatestOtp(ctx, userID, otpType, reason)
}

func (r *memRepo) CountOtpsSince(_ context.Context, userID string, otpType OtpType, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.st.otps {
		if o.UserID == userID && o.Type == otpType && !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) UpdateOtp(_ context.Context, otp *Otp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.st.otps {
		if r.st.otps[i].ID == otp.ID {
			r.st.otps[i].Status = otp.Status
			r.st.otps[i].RetryCount = otp.RetryCount
			return nil
		}
	}
	return ErrNotFound
}

func (r *memRepo) DeleteExpiredOtps(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.st.otps[:0]
	var n int64
	for _, o := range r.st.otps {
		if o.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	r.st.otps = kept
	return n, nil
}

func (r *memRepo) CreateResetToken(_ context.Context, t *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.st.tokens {
		if t.ActionType == ActionNone && existing.ActionType == ActionNone && existing.UserID == t.UserID {
			return ErrCooldown
		}
	}
	r.st.tokens = append(r.st.tokens, *t)
	return nil
}

func (r *memRepo) findToken(match func(PasswordResetToken) bool) (*PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.st.tokens) - 1; i >= 0; i-- {
		if match(r.st.tokens[i]) {
			cp := r.st.tokens[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) FindRecoveryTokenByUserID(_ context.Context, userID string) (*PasswordResetToken, error) {
	return r.findToken(func(t PasswordResetToken) bool {
		return t.UserID == userID && t.ActionType == ActionNone
	})
}

func (r *memRepo) FindRecoveryTokenByHash(_ context.Context, tokenHash string) (*PasswordResetToken, error) {
	return r.findToken(func(t PasswordResetToken) bool {
		return t.TokenHash == tokenHash && t.ActionType == ActionNone && !t.Used
	})
}

func (r *memRepo) FindActionTokenByHash(_ context.Context, tokenHash string, action ActionType) (*PasswordResetToken, error) {
	return r.findToken(func(t PasswordResetToken) bool {
		return t.TokenHash == tokenHash && t.ActionType == action
	})
}

func (r *memRepo) UpdateResetToken(_ context.Context, t *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.st.tokens {
		if r.st.tokens[i].ID == t.ID {
			r.st.tokens[i] = *t
			return nil
		}
	}
	return ErrNotFound
}

func (r *memRepo) DeleteResetToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.st.tokens {
		if r.st.tokens[i].ID == id {
			r.st.tokens = append(r.st.tokens[:i], r.st.tokens[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memRepo) DeleteExpiredResetTokens(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.st.tokens[:0]
	var n int64
	for _, t := range r.st.tokens {
		if t.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.st.tokens = kept
	return n, nil
}

// snapshot helpers for assertions

func (r *memRepo) user(t *testing.T, id string) User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		t.Fatalf("user %s not found", id)
	}
	return u
}

func (r *memRepo) otpsFor(userID string) []Otp {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Otp
	for _, o := range r.st.otps {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}

func (r *memRepo) tokensFor(userID string) []PasswordResetToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PasswordResetToken
	for _, tk := range r.st.tokens {
		if tk.UserID == userID {
			out = append(out, tk)
		}
	}
	return out
}

// --- fixture ---

type fixture struct {
	svc      *service
	repo     *memRepo
	clock    *manualClock
	codes    *fixedCode
	notifier *recordingNotifier
	locker   *cache.LocalLocker
	issuer   *credential.JWTIssuer
	hasher   security.Hasher
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuer, err := credential.NewJWTIssuer("test-secret-test-secret-test-secret", "account-guard-test", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}

	f := &fixture{
		repo:     newMemRepo(),
		clock:    &manualClock{now: testStart},
		codes:    &fixedCode{code: testCode},
		notifier: &recordingNotifier{renderer: templates.NewEngine(templates.Config{}, quietLogger())},
		locker:   cache.NewLocalLocker(),
		issuer:   issuer,
		hasher:   security.NewBcryptHasher(bcrypt.MinCost),
	}
	f.svc = NewService(&Config{
		Repo:   f.repo,
		Logger: quietLogger(),
		Config: &config.Config{Links: config.LinksConfig{
			ResetPasswordURL: "https://app.example.com/reset-password",
			BlockAccountURL:  "https://app.example.com/block-account",
			SupportEmail:     "support@example.com",
		}},
		Policy:   DefaultPolicy(),
		Notifier: f.notifier,
		Locker:   f.locker,
		Issuer:   f.issuer,
		Clock:    f.clock,
		Hasher:   f.hasher,
		Codes:    f.codes,
		Tokens:   &seqTokens{},
	}).(*service)
	return f
}

// seedUser stores a fully verified account in the given status.
func (f *fixture) seedUser(t *testing.T, username string, status AccountStatus) *User {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &User{
		ID:             "user-" + username,
		Username:       username,
		Email:          username + "@example.com",
		Mobile:         "+9198" + fmt.Sprintf("%08d", len(f.repo.st.users)+1),
		PasswordHash:   hash,
		Role:           RoleUser,
		EmailVerified:  status != StatusPendingVerification,
		MobileVerified: status != StatusPendingVerification,
		AccountStatus:  status,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	}
	if err := f.repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.svc.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

// tokenFromURL extracts the token query value from a rendered email body.
func tokenFromURL(t *testing.T, body, base string) string {
	t.Helper()
	i := strings.Index(body, base+"?token=")
	if i < 0 {
		t.Fatalf("link %s not found in %q", base, body)
	}
	rest := body[i+len(base)+len("?token="):]
	if j := strings.IndexAny(rest, " \n\""); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
