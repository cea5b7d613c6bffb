package user

import (
	"context"
	"errors"
	"time"

	"github.com/delordemm1/account-guard/internal/notification/templates"
)

// VerifyAccount confirms one registration channel and activates the account once both
// email and mobile are confirmed.
func (s *service) VerifyAccount(ctx context.Context, username string, otpType OtpType, code string) error {
	if err := validOtp(otpType, ReasonRegistration); err != nil {
		return err
	}
	found, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}

	var activated bool
	err = s.withOtp(ctx, otpCheck{
		userID:  found.ID,
		otpType: otpType,
		reason:  ReasonRegistration,
		code:    code,
		precondition: func(u *User) error {
			if channelVerified(u, otpType) {
				return ErrAlreadyVerified.WithDetail(string(otpType) + " already verified")
			}
			return nil
		},
		onVerified: func(ctx context.Context, tx Repository, u *User, now time.Time) error {
			if otpType == OtpTypeEmail {
				u.EmailVerified = true
			} else {
				u.MobileVerified = true
			}
			var err error
			if activated, err = u.activateIfVerified(); err != nil {
				return err
			}
			u.UpdatedAt = now
			return tx.UpdateUser(ctx, u)
		},
	})
	if err != nil {
		return err
	}

	if activated {
		s.logger.Info("account activated", "user_id", found.ID)
	}
	return nil
}

func channelVerified(u *User, otpType OtpType) bool {
	if otpType == OtpTypeEmail {
		return u.EmailVerified
	}
	return u.MobileVerified
}

// ForgotUsername emails the username registered for an address. Unknown addresses succeed
// silently.
func (s *service) ForgotUsername(ctx context.Context, email string) error {
	u, err := s.repo.FindUserByEmail(ctx, normalize(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("username reminder requested for unknown email")
			return nil
		}
		return err
	}
	if err := requireActive(u, s.clock.Now()); err != nil {
		return err
	}

	notifyEmail(ctx, s, templates.UsernameReminder, u, templates.UsernameReminderData{
		Username:     u.Username,
		SupportEmail: s.links.SupportEmail,
	})
	return nil
}
