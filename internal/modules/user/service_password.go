package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/delordemm1/account-guard/internal/cache"
	"github.com/delordemm1/account-guard/internal/notification/templates"
	"github.com/delordemm1/account-guard/internal/security"
)

// InitiatePasswordReset replaces the user's recovery token and emails a reset link. Unknown
// emails succeed silently so the endpoint cannot be used to probe for accounts.
func (s *service) InitiatePasswordReset(ctx context.Context, email string) error {
	u, err := s.repo.FindUserByEmail(ctx, normalize(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if err := requireActive(u, s.clock.Now()); err != nil {
		return err
	}

	release, err := s.locker.TryLock(ctx, "reset:"+u.ID, s.policy.DispatchTimeout)
	if errors.Is(err, cache.ErrLocked) {
		return ErrCooldown
	}
	if err != nil {
		return fmt.Errorf("acquire reset lease: %w", err)
	}
	defer release()

	var raw string
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		now := s.clock.Now()
		current, err := tx.FindRecoveryTokenByUserID(ctx, u.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		count, first := 1, now
		if current != nil && !current.FirstRequestAt.Add(s.policy.ResetWindow).Before(now) {
			if current.LastRequestAt.Add(s.policy.ResetCooldown).After(now) {
				return ErrCooldown
			}
			if current.RequestCount >= s.policy.ResetMaxRequests {
				return ErrLimitExceeded
			}
			count, first = current.RequestCount+1, current.FirstRequestAt
		}
		if current != nil {
			if err := tx.DeleteResetToken(ctx, current.ID); err != nil {
				return err
			}
		}

		raw, err = s.createResetToken(ctx, tx, u.ID, ActionNone, now, s.policy.ResetTokenTTL, count, first)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("password reset link issued", "user_id", u.ID)
	notifyEmail(ctx, s, templates.PasswordResetLink, u, templates.PasswordResetLinkData{
		Username:     u.Username,
		ResetURL:     withToken(s.links.ResetPasswordURL, raw),
		ValidMinutes: int(s.policy.ResetTokenTTL / time.Minute),
		SupportEmail: s.links.SupportEmail,
	})
	return nil
}

// ResetPassword consumes a recovery token and sets the new password.
func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}

	var (
		u         *User
		actionRaw string
	)
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		now := s.clock.Now()
		t, err := tx.FindRecoveryTokenByHash(ctx, security.HashToken(token))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if !t.ExpiresAt.After(now) {
			return ErrTokenExpired
		}

		u, err = tx.LockUserByID(ctx, t.UserID)
		if err != nil {
			return err
		}
		if err := requireActive(u, now); err != nil {
			return err
		}

		t.Used = true
		if err := tx.UpdateResetToken(ctx, t); err != nil {
			return err
		}
		actionRaw, err = s.changePassword(ctx, tx, u, newPassword, now)
		return err
	})
	if err != nil {
		return err
	}

	s.sendPasswordChanged(ctx, u, actionRaw)
	return nil
}

// ResetPasswordWithOtp sets a new password using the grant left by a verified
// PASSWORD_RESET code.
func (s *service) ResetPasswordWithOtp(ctx context.Context, username, newPassword string) error {
	found, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}

	var (
		u         *User
		actionRaw string
	)
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		now := s.clock.Now()
		var err error
		u, err = tx.LockUserByID(ctx, found.ID)
		if err != nil {
			return err
		}
		if err := requireActive(u, now); err != nil {
			return err
		}
		if !u.PasswordResetAllowed || u.PasswordResetExpiresAt == nil || !u.PasswordResetExpiresAt.After(now) {
			return ErrUnauthorized.WithDetail("verify a password reset code before changing the password")
		}
		actionRaw, err = s.changePassword(ctx, tx, u, newPassword, now)
		return err
	})
	if err != nil {
		return err
	}

	s.sendPasswordChanged(ctx, u, actionRaw)
	return nil
}

// changePassword stores the new hash, drops any reset grant, and issues the single-use
// ACCOUNT_BLOCK token that accompanies the change alert.
func (s *service) changePassword(ctx context.Context, tx Repository, u *User, newPassword string, now time.Time) (string, error) {
	if strings.TrimSpace(newPassword) == "" {
		return "", ErrInvalidPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", ErrInvalidPassword.WithCause(err)
	}

	u.autoUnlock(now)
	u.PasswordHash = hash
	u.PasswordResetAllowed = false
	u.PasswordResetExpiresAt = nil
	u.UpdatedAt = now
	if err := tx.UpdateUser(ctx, u); err != nil {
		return "", err
	}

	return s.createResetToken(ctx, tx, u.ID, ActionAccountBlock, now, s.policy.ActionTokenTTL, 1, now)
}

func (s *service) createResetToken(ctx context.Context, tx Repository, userID string, action ActionType, now time.Time, ttl time.Duration, count int, first time.Time) (string, error) {
	raw, err := s.tokens.Generate()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	id, err := newID()
	if err != nil {
		return "", err
	}

	err = tx.CreateResetToken(ctx, &PasswordResetToken{
		ID:             id,
		UserID:         userID,
		TokenHash:      security.HashToken(raw),
		ExpiresAt:      now.Add(ttl),
		RequestCount:   count,
		FirstRequestAt: first,
		LastRequestAt:  now,
		ActionType:     action,
		CreatedAt:      now,
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (s *service) sendPasswordChanged(ctx context.Context, u *User, actionRaw string) {
	s.logger.Info("password changed", "user_id", u.ID)
	notifyEmail(ctx, s, templates.PasswordChanged, u, templates.PasswordChangedData{
		Username:     u.Username,
		BlockURL:     withToken(s.links.BlockAccountURL, actionRaw),
		ValidMinutes: int(s.policy.ActionTokenTTL / time.Minute),
		SupportEmail: s.links.SupportEmail,
	})
}

// BlockAccount consumes a security-action token and blocks its owner.
func (s *service) BlockAccount(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}

	var u *User
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		now := s.clock.Now()
		t, err := tx.FindActionTokenByHash(ctx, security.HashToken(token), ActionAccountBlock)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if t.ActionUsed || !t.ExpiresAt.After(now) {
			return ErrTokenExpired
		}

		u, err = tx.LockUserByID(ctx, t.UserID)
		if err != nil {
			return err
		}
		if err := u.block(); err != nil {
			return err
		}
		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}

		t.ActionUsed = true
		return tx.UpdateResetToken(ctx, t)
	})
	if err != nil {
		return err
	}

	s.logger.Warn("account blocked by owner", "user_id", u.ID)
	notifyEmail(ctx, s, templates.AccountBlocked, u, templates.AccountStatusData{
		Username:     u.Username,
		SupportEmail: s.links.SupportEmail,
	})
	return nil
}
