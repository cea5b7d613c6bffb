package user

import (
	"context"
	"errors"
	"strings"
)

// Register creates a pending account and sends both registration codes. Registering again
// with the email of an account that is still pending reuses that account.
func (s *service) Register(ctx context.Context, in RegisterInput) (string, error) {
	email := normalize(in.Email)
	if strings.TrimSpace(in.Password) == "" {
		return "", ErrInvalidPassword
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.AccountStatus != StatusPendingVerification {
			return "", ErrUserExists
		}
		s.logger.Info("registration reused pending account", "user_id", existing.ID)
		s.sendRegistrationOtps(ctx, existing)
		return existing.ID, nil
	case !errors.Is(err, ErrNotFound):
		return "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", ErrInvalidPassword.WithCause(err)
	}
	id, err := newID()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	u := &User{
		ID:            id,
		Username:      normalize(in.Username),
		Email:         email,
		Mobile:        strings.TrimSpace(in.Mobile),
		PasswordHash:  hash,
		Role:          RoleUser,
		AccountStatus: StatusPendingVerification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return "", err
	}

	s.logger.Info("user registered successfully", "user_id", u.ID)
	s.sendRegistrationOtps(ctx, u)
	return u.ID, nil
}

func (s *service) sendRegistrationOtps(ctx context.Context, u *User) {
	if !u.EmailVerified {
		s.dispatchAsync(ctx, u.ID, OtpTypeEmail, ReasonRegistration)
	}
	if !u.MobileVerified && u.Mobile != "" {
		s.dispatchAsync(ctx, u.ID, OtpTypeMobile, ReasonRegistration)
	}
}

// Login checks the password and issues a credential. Unknown users and wrong passwords look
// the same to the caller; the failed-attempt counter locks the account at the limit.
func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	found, err := s.findByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Use a generic error to avoid telling attackers that the username exists.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var (
		u         *User
		rejection error
	)
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		var err error
		u, err = tx.LockUserByID(ctx, found.ID)
		if err != nil {
			return err
		}
		now := s.clock.Now()

		switch u.AccountStatus {
		case StatusPendingVerification:
			rejection = ErrAccountUnverified
			return nil
		case StatusBlocked:
			rejection = ErrAccountBlocked
			return nil
		case StatusLocked:
			if u.lockActive(now) {
				rejection = ErrAccountLocked.WithContext(map[string]any{"lockUntil": u.LockUntil})
				return nil
			}
		}
		unlocked := u.autoUnlock(now)

		if !s.hasher.Verify(password, u.PasswordHash) {
			u.FailedLoginAttempts++
			if u.FailedLoginAttempts >= s.policy.MaxFailedAttempts {
				if err := u.lock(now.Add(s.policy.LockDuration)); err != nil {
					return err
				}
				s.logger.Warn("account locked after failed logins", "user_id", u.ID, "lock_until", u.LockUntil)
			}
			u.UpdatedAt = now
			rejection = ErrInvalidCredentials
			return tx.UpdateUser(ctx, u)
		}

		if unlocked || u.FailedLoginAttempts != 0 || u.LockUntil != nil {
			u.clearLock()
			u.UpdatedAt = now
			return tx.UpdateUser(ctx, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}

	token, err := s.issuer.Issue(ctx, u.ID, u.Username, string(u.Role))
	if err != nil {
		s.logger.Error("failed to issue credential", "user_id", u.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("user logged in successfully", "user_id", u.ID)
	return &LoginResult{Token: token, Username: u.Username}, nil
}

// GetAccount returns the security state of the given account.
func (s *service) GetAccount(ctx context.Context, userID string) (*Account, error) {
	u, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return accountOf(u), nil
}
