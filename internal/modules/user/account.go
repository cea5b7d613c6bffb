package user

import (
	"fmt"
	"time"
)

// transitions lists the allowed account status changes. BLOCKED is only left through the
// unblock flow, never by timeout.
var transitions = map[AccountStatus][]AccountStatus{
	StatusPendingVerification: {StatusActive},
	StatusActive:              {StatusLocked, StatusBlocked},
	StatusLocked:              {StatusActive, StatusBlocked},
	StatusBlocked:             {StatusActive},
}

func canTransition(from, to AccountStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (u *User) transition(to AccountStatus) error {
	if u.AccountStatus == to {
		return nil
	}
	if !canTransition(u.AccountStatus, to) {
		return ErrInternal.WithCause(fmt.Errorf("account %s: %s -> %s not allowed", u.ID, u.AccountStatus, to))
	}
	u.AccountStatus = to
	return nil
}

func (u *User) clearLock() {
	u.FailedLoginAttempts = 0
	u.LockUntil = nil
}

// activateIfVerified moves a pending account to ACTIVE once both channels are verified.
func (u *User) activateIfVerified() (bool, error) {
	if u.AccountStatus != StatusPendingVerification || !u.EmailVerified || !u.MobileVerified {
		return false, nil
	}
	if err := u.transition(StatusActive); err != nil {
		return false, err
	}
	u.clearLock()
	return true, nil
}

func (u *User) lock(until time.Time) error {
	if err := u.transition(StatusLocked); err != nil {
		return err
	}
	u.LockUntil = &until
	return nil
}

// lockActive reports whether a LOCKED account is still inside its lock. A LOCKED account
// without lockUntil counts as locked.
func (u *User) lockActive(now time.Time) bool {
	if u.AccountStatus != StatusLocked {
		return false
	}
	return u.LockUntil == nil || u.LockUntil.After(now)
}

// autoUnlock restores ACTIVE once the lock has run out.
func (u *User) autoUnlock(now time.Time) bool {
	if u.AccountStatus != StatusLocked || u.lockActive(now) {
		return false
	}
	if err := u.transition(StatusActive); err != nil {
		return false
	}
	u.clearLock()
	return true
}

func (u *User) block() error {
	return u.transition(StatusBlocked)
}

func (u *User) unblock() error {
	if u.AccountStatus != StatusBlocked {
		return ErrAccountNotBlocked
	}
	if err := u.transition(StatusActive); err != nil {
		return err
	}
	u.clearLock()
	return nil
}

// requireActive maps a non-active status to its domain error. An expired lock counts as
// active; the caller persists the unlock if it writes the user anyway.
func requireActive(u *User, now time.Time) error {
	switch u.AccountStatus {
	case StatusActive:
		return nil
	case StatusPendingVerification:
		return ErrAccountUnverified
	case StatusBlocked:
		return ErrAccountBlocked
	case StatusLocked:
		if u.lockActive(now) {
			return ErrAccountLocked
		}
		return nil
	default:
		return ErrInternal.WithCause(fmt.Errorf("unknown account status %q", u.AccountStatus))
	}
}
