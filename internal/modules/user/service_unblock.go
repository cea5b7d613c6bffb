package user

import (
	"context"
	"time"

	"github.com/delordemm1/account-guard/internal/notification/templates"
)

// SendUnblockOtp schedules an ACCOUNT_UNBLOCK code for a blocked account.
func (s *service) SendUnblockOtp(ctx context.Context, username string, otpType OtpType) error {
	if err := validOtp(otpType, ReasonAccountUnblock); err != nil {
		return err
	}
	u, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u.AccountStatus != StatusBlocked {
		return ErrAccountNotBlocked
	}
	s.dispatchAsync(ctx, u.ID, otpType, ReasonAccountUnblock)
	return nil
}

// VerifyUnblockOtp reactivates a blocked account once its unblock code checks out.
func (s *service) VerifyUnblockOtp(ctx context.Context, username string, otpType OtpType, reason OtpReason, code string) error {
	if reason != ReasonAccountUnblock {
		return ErrUnauthorized.WithDetail("otp reason must be ACCOUNT_UNBLOCK")
	}
	if err := validOtp(otpType, reason); err != nil {
		return err
	}
	found, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}

	var u *User
	err = s.withOtp(ctx, otpCheck{
		userID:  found.ID,
		otpType: otpType,
		reason:  reason,
		code:    code,
		precondition: func(locked *User) error {
			if locked.AccountStatus != StatusBlocked {
				return ErrAccountNotBlocked
			}
			return nil
		},
		onVerified: func(ctx context.Context, tx Repository, locked *User, now time.Time) error {
			if err := locked.unblock(); err != nil {
				return err
			}
			locked.UpdatedAt = now
			u = locked
			return tx.UpdateUser(ctx, locked)
		},
	})
	if err != nil {
		return err
	}

	s.logger.Info("account unblocked", "user_id", u.ID)
	notifyEmail(ctx, s, templates.AccountUnblocked, u, templates.AccountStatusData{
		Username:     u.Username,
		SupportEmail: s.links.SupportEmail,
	})
	return nil
}
