package user

import (
	"errors"
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to AccountStatus
		ok       bool
	}{
		{StatusPendingVerification, StatusActive, true},
		{StatusPendingVerification, StatusLocked, false},
		{StatusPendingVerification, StatusBlocked, false},
		{StatusActive, StatusLocked, true},
		{StatusActive, StatusBlocked, true},
		{StatusActive, StatusPendingVerification, false},
		{StatusLocked, StatusActive, true},
		{StatusLocked, StatusBlocked, true},
		{StatusBlocked, StatusActive, true},
		{StatusBlocked, StatusLocked, false},
	}
	for _, tc := range cases {
		u := &User{ID: "u1", AccountStatus: tc.from}
		err := u.transition(tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrInternal) {
			t.Errorf("%s -> %s: got %v, want ErrInternal", tc.from, tc.to, err)
		}
		if !tc.ok && u.AccountStatus != tc.from {
			t.Errorf("%s -> %s: status changed to %s", tc.from, tc.to, u.AccountStatus)
		}
	}
}

func TestActivateIfVerifiedNeedsBothChannels(t *testing.T) {
	u := &User{AccountStatus: StatusPendingVerification, EmailVerified: true}
	if ok, err := u.activateIfVerified(); ok || err != nil {
		t.Fatalf("activated with one channel: %v, %v", ok, err)
	}
	u.MobileVerified = true
	if ok, err := u.activateIfVerified(); !ok || err != nil {
		t.Fatalf("not activated with both channels: %v, %v", ok, err)
	}
	if u.AccountStatus != StatusActive {
		t.Fatalf("status: got %s", u.AccountStatus)
	}
}

func TestLockAndAutoUnlock(t *testing.T) {
	now := testStart
	u := &User{AccountStatus: StatusActive, FailedLoginAttempts: 3}
	if err := u.lock(now.Add(24 * time.Hour)); err != nil {
		t.Fatalf("lock: %v", err)
	}

	if !u.lockActive(now.Add(time.Hour)) {
		t.Fatal("lock should be active inside the window")
	}
	if u.autoUnlock(now.Add(time.Hour)) {
		t.Fatal("autoUnlock must not fire inside the window")
	}
	if !u.autoUnlock(now.Add(24*time.Hour + time.Second)) {
		t.Fatal("autoUnlock should fire after the window")
	}
	if u.AccountStatus != StatusActive || u.FailedLoginAttempts != 0 || u.LockUntil != nil {
		t.Fatalf("unexpected state after unlock: %+v", u)
	}
}

func TestLockWithoutDeadlineStaysLocked(t *testing.T) {
	u := &User{AccountStatus: StatusLocked}
	if !u.lockActive(testStart.Add(365 * 24 * time.Hour)) {
		t.Fatal("LOCKED without lockUntil should count as locked")
	}
	if u.autoUnlock(testStart) {
		t.Fatal("autoUnlock fired without lockUntil")
	}
}

func TestUnblock(t *testing.T) {
	u := &User{AccountStatus: StatusActive}
	if err := u.unblock(); !errors.Is(err, ErrAccountNotBlocked) {
		t.Fatalf("got %v, want ErrAccountNotBlocked", err)
	}

	until := testStart
	u = &User{AccountStatus: StatusBlocked, FailedLoginAttempts: 2, LockUntil: &until}
	if err := u.unblock(); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if u.AccountStatus != StatusActive || u.FailedLoginAttempts != 0 || u.LockUntil != nil {
		t.Fatalf("unexpected state: %+v", u)
	}
}

func TestRequireActive(t *testing.T) {
	past := testStart.Add(-time.Minute)
	future := testStart.Add(time.Minute)

	cases := []struct {
		name string
		user User
		want error
	}{
		{"active", User{AccountStatus: StatusActive}, nil},
		{"pending", User{AccountStatus: StatusPendingVerification}, ErrAccountUnverified},
		{"blocked", User{AccountStatus: StatusBlocked}, ErrAccountBlocked},
		{"locked", User{AccountStatus: StatusLocked, LockUntil: &future}, ErrAccountLocked},
		{"lock expired", User{AccountStatus: StatusLocked, LockUntil: &past}, nil},
		{"unknown", User{AccountStatus: "GONE"}, ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := requireActive(&tc.user, testStart)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}
