package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/delordemm1/account-guard/internal/cache"
	"github.com/delordemm1/account-guard/internal/config"
	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/notification"
	"github.com/delordemm1/account-guard/internal/notification/templates"
	"github.com/delordemm1/account-guard/internal/security"
	"github.com/google/uuid"
)

// Service defines the interface for the user module's business logic.
// It orchestrates the flow of data between the handlers and the repository,
// and contains the core business rules.
type Service interface {
	// Registration, login and account state
	Register(ctx context.Context, in RegisterInput) (string, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	GetAccount(ctx context.Context, userID string) (*Account, error)
	VerifyAccount(ctx context.Context, username string, otpType OtpType, code string) error

	// One-time passwords
	DispatchOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (DispatchResult, error)
	SendOtp(ctx context.Context, username string, otpType OtpType, reason OtpReason) error
	VerifyOtp(ctx context.Context, username string, otpType OtpType, reason OtpReason, code string) error

	// Recovery
	InitiatePasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ResetPasswordWithOtp(ctx context.Context, username, newPassword string) error
	ForgotUsername(ctx context.Context, email string) error

	// Blocking
	BlockAccount(ctx context.Context, token string) error
	SendUnblockOtp(ctx context.Context, username string, otpType OtpType) error
	VerifyUnblockOtp(ctx context.Context, username string, otpType OtpType, reason OtpReason, code string) error

	// Drain waits for background OTP dispatches to finish or ctx to end.
	Drain(ctx context.Context) error
}

// service implements the Service interface.
type service struct {
	repo     Repository
	logger   *slog.Logger
	links    config.LinksConfig
	policy   Policy
	notifier notification.Service
	locker   cache.Locker
	issuer   credential.Issuer
	clock    security.Clock
	hasher   security.Hasher
	codes    security.Generator
	tokens   security.Generator

	dispatches sync.WaitGroup
}

// Config holds the dependencies for the user service. Repo, Notifier and Issuer are
// required; the rest fall back to production defaults.
type Config struct {
	Repo     Repository
	Logger   *slog.Logger
	Config   *config.Config
	Policy   Policy
	Notifier notification.Service
	Locker   cache.Locker
	Issuer   credential.Issuer
	Clock    security.Clock
	Hasher   security.Hasher
	Codes    security.Generator
	Tokens   security.Generator
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg *Config) Service {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.Config{}
	}

	s := &service{
		repo:     cfg.Repo,
		logger:   cfg.Logger,
		links:    appCfg.Links,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		locker:   cfg.Locker,
		issuer:   cfg.Issuer,
		clock:    cfg.Clock,
		hasher:   cfg.Hasher,
		codes:    cfg.Codes,
		tokens:   cfg.Tokens,
	}
	if s.policy == (Policy{}) {
		s.policy = PolicyFromConfig(appCfg.Security)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locker == nil {
		s.locker = cache.NewLocalLocker()
	}
	if s.clock == nil {
		s.clock = security.SystemClock{}
	}
	if s.hasher == nil {
		s.hasher = security.NewBcryptHasher(appCfg.Security.Login.BcryptCost)
	}
	if s.codes == nil {
		s.codes = security.NumericCode{Digits: s.policy.OtpDigits}
	}
	if s.tokens == nil {
		s.tokens = security.RandomToken{}
	}
	return s
}

func (s *service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.dispatches.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// findByUsername resolves a caller-supplied username; lookups are case-insensitive.
func (s *service) findByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindUserByUsername(ctx, normalize(username))
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("generate id: %w", err))
	}
	return id.String(), nil
}

// withToken appends the raw token as the "token" query parameter of base.
func withToken(base, raw string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(raw)
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String()
}

// notifyEmail renders h for u and emails it. Failures are logged; the flow that triggered the
// notice has already committed.
func notifyEmail[T any](ctx context.Context, s *service, h templates.Handle[T], u *User, data T) {
	err := notification.SendTemplate(ctx, s.notifier, h, u.Email, []notification.Channel{notification.ChannelEmail}, notification.PriorityHigh, data)
	if err != nil {
		s.logger.Error("failed to send notification", "template", h.ID(), "user_id", u.ID, "error", err)
	}
}
