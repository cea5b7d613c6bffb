package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delordemm1/account-guard/internal/cache"
	"github.com/delordemm1/account-guard/internal/notification"
	"github.com/delordemm1/account-guard/internal/notification/templates"
)

var otpPurposes = map[OtpReason]string{
	ReasonRegistration:   "verify your account",
	ReasonPasswordReset:  "reset your password",
	ReasonAccountUnblock: "unblock your account",
	ReasonLogin:          "sign in",
}

func validOtp(otpType OtpType, reason OtpReason) error {
	if otpType != OtpTypeEmail && otpType != OtpTypeMobile {
		return ErrInvalidOTP.WithDetail(fmt.Sprintf("unsupported otp type %q", otpType))
	}
	if _, ok := otpPurposes[reason]; !ok {
		return ErrInvalidOTP.WithDetail(fmt.Sprintf("unsupported otp reason %q", reason))
	}
	return nil
}

// DispatchOtp issues and delivers a new code unless the cooldown or the per-type rate limit
// applies. Concurrent dispatches for the same user and channel are serialised by a lease.
func (s *service) DispatchOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (DispatchResult, error) {
	if err := validOtp(otpType, reason); err != nil {
		return "", err
	}

	release, err := s.locker.TryLock(ctx, fmt.Sprintf("otp:%s:%s", userID, otpType), s.policy.DispatchTimeout)
	if errors.Is(err, cache.ErrLocked) {
		return DispatchCooldown, nil
	}
	if err != nil {
		return "", fmt.Errorf("acquire otp lease: %w", err)
	}
	defer release()

	u, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	last, err := s.repo.LatestOtp(ctx, userID, otpType, reason)
	switch {
	case err == nil:
		if last.LastSentAt.Add(s.policy.OtpCooldown).After(now) {
			return DispatchCooldown, nil
		}
	case !errors.Is(err, ErrNotFound):
		return "", err
	}

	sent, err := s.repo.CountOtpsSince(ctx, userID, otpType, now.Add(-s.policy.OtpWindow))
	if err != nil {
		return "", err
	}
	if sent >= s.policy.OtpMaxPerWindow {
		return DispatchRateLimited, nil
	}

	code, err := s.codes.Generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}
	id, err := newID()
	if err != nil {
		return "", err
	}

	otp := &Otp{
		ID:         id,
		UserID:     userID,
		OtpHash:    hash,
		Type:       otpType,
		Reason:     reason,
		Status:     OtpGenerated,
		ExpiresAt:  now.Add(s.policy.OtpTTL),
		LastSentAt: now,
		CreatedAt:  now,
	}
	if err := s.repo.CreateOtp(ctx, otp); err != nil {
		return "", err
	}

	recipient, channel := u.Email, notification.ChannelEmail
	if otpType == OtpTypeMobile {
		recipient, channel = u.Mobile, notification.ChannelSMS
	}
	err = notification.SendTemplate(ctx, s.notifier, templates.OTPCode, recipient, []notification.Channel{channel}, notification.PriorityHigh, templates.OTPCodeData{
		Username:     u.Username,
		Code:         code,
		Purpose:      otpPurposes[reason],
		ValidMinutes: int(s.policy.OtpTTL / time.Minute),
		SupportEmail: s.links.SupportEmail,
	})
	if err != nil {
		s.logger.Error("failed to deliver otp", "user_id", userID, "otp_type", otpType, "reason", reason, "error", err)
	}
	return DispatchSent, nil
}

// SendOtp schedules a dispatch for the named user and returns without waiting for it.
func (s *service) SendOtp(ctx context.Context, username string, otpType OtpType, reason OtpReason) error {
	if err := validOtp(otpType, reason); err != nil {
		return err
	}
	u, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}
	s.dispatchAsync(ctx, u.ID, otpType, reason)
	return nil
}

// dispatchAsync runs DispatchOtp detached from the caller's cancellation. The outcome is
// only logged.
func (s *service) dispatchAsync(ctx context.Context, userID string, otpType OtpType, reason OtpReason) {
	ctx = context.WithoutCancel(ctx)
	s.dispatches.Add(1)
	go func() {
		defer s.dispatches.Done()
		ctx, cancel := context.WithTimeout(ctx, s.policy.DispatchTimeout)
		defer cancel()

		result, err := s.DispatchOtp(ctx, userID, otpType, reason)
		if err != nil {
			s.logger.Error("otp dispatch failed", "user_id", userID, "otp_type", otpType, "reason", reason, "error", err)
			return
		}
		s.logger.Info("otp dispatch finished", "user_id", userID, "otp_type", otpType, "reason", reason, "result", result)
	}()
}

// VerifyOtp checks a code for the named user. Failed attempts are recorded even though the
// call returns an error.
func (s *service) VerifyOtp(ctx context.Context, username string, otpType OtpType, reason OtpReason, code string) error {
	if err := validOtp(otpType, reason); err != nil {
		return err
	}
	u, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.withOtp(ctx, otpCheck{userID: u.ID, otpType: otpType, reason: reason, code: code})
}

// otpCheck describes one verification. precondition runs on the locked user before the code
// is looked at; onVerified runs in the same transaction after a successful match.
type otpCheck struct {
	userID       string
	otpType      OtpType
	reason       OtpReason
	code         string
	precondition func(u *User) error
	onVerified   func(ctx context.Context, tx Repository, u *User, now time.Time) error
}

// withOtp runs a verification in one transaction. A rejected code still commits the attempt
// bookkeeping and is returned after the commit.
func (s *service) withOtp(ctx context.Context, c otpCheck) error {
	var rejection error
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		u, err := tx.LockUserByID(ctx, c.userID)
		if err != nil {
			return err
		}
		if c.precondition != nil {
			if err := c.precondition(u); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		rejection, err = s.verifyOtp(ctx, tx, u, c.otpType, c.reason, c.code, now)
		if err != nil || rejection != nil {
			return err
		}
		if c.onVerified != nil {
			return c.onVerified(ctx, tx, u, now)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rejection != nil {
		s.logger.Warn("otp rejected", "user_id", c.userID, "otp_type", c.otpType, "reason", c.reason, "error", rejection)
	}
	return rejection
}

// verifyOtp returns a non-nil rejection for a bad code after persisting its effect on the
// stored OTP; err is reserved for storage failures.
func (s *service) verifyOtp(ctx context.Context, tx Repository, u *User, otpType OtpType, reason OtpReason, code string, now time.Time) (rejection error, err error) {
	otp, err := tx.LockLatestOtp(ctx, u.ID, otpType, reason)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidOTP, nil
	}
	if err != nil {
		return nil, err
	}
	if otp.Type != otpType {
		return ErrInvalidOTP, nil
	}
	if otp.Status != OtpGenerated {
		return ErrInvalidOTP.WithDetail("OTP already used or blocked"), nil
	}

	if !otp.ExpiresAt.After(now) {
		otp.Status = OtpExpired
		if err := tx.UpdateOtp(ctx, otp); err != nil {
			return nil, err
		}
		return ErrOTPExpired, nil
	}

	if !s.hasher.Verify(code, otp.OtpHash) {
		otp.RetryCount++
		rejection = ErrInvalidOTP
		if otp.RetryCount >= s.policy.OtpMaxRetries {
			otp.Status = OtpBlocked
			rejection = ErrInvalidOTP.WithDetail("OTP blocked after too many attempts")
		}
		if err := tx.UpdateOtp(ctx, otp); err != nil {
			return nil, err
		}
		return rejection, nil
	}

	otp.Status = OtpVerified
	if err := tx.UpdateOtp(ctx, otp); err != nil {
		return nil, err
	}

	if reason == ReasonPasswordReset {
		until := now.Add(s.policy.ResetGrantTTL)
		u.PasswordResetAllowed = true
		u.PasswordResetExpiresAt = &until
		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
