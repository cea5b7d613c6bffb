package user

import (
	"time"

	"github.com/delordemm1/account-guard/internal/config"
)

// Policy holds the throttling and validity windows of the security flows.
type Policy struct {
	OtpDigits         int
	OtpTTL            time.Duration
	OtpCooldown       time.Duration
	OtpMaxPerWindow   int
	OtpWindow         time.Duration
	OtpMaxRetries     int
	ResetGrantTTL     time.Duration
	DispatchTimeout   time.Duration
	MaxFailedAttempts int
	LockDuration      time.Duration
	ResetTokenTTL     time.Duration
	ResetCooldown     time.Duration
	ResetMaxRequests  int
	ResetWindow       time.Duration
	ActionTokenTTL    time.Duration
	CleanupInterval   time.Duration
}

// DefaultPolicy returns the stock windows and limits.
func DefaultPolicy() Policy {
	return Policy{
		OtpDigits:         6,
		OtpTTL:            10 * time.Minute,
		OtpCooldown:       30 * time.Second,
		OtpMaxPerWindow:   5,
		OtpWindow:         time.Hour,
		OtpMaxRetries:     3,
		ResetGrantTTL:     10 * time.Minute,
		DispatchTimeout:   30 * time.Second,
		MaxFailedAttempts: 3,
		LockDuration:      24 * time.Hour,
		ResetTokenTTL:     30 * time.Minute,
		ResetCooldown:     30 * time.Second,
		ResetMaxRequests:  5,
		ResetWindow:       time.Hour,
		ActionTokenTTL:    time.Hour,
		CleanupInterval:   10 * time.Minute,
	}
}

// PolicyFromConfig converts the security config; zero values keep the defaults.
func PolicyFromConfig(c config.SecurityConfig) Policy {
	p := DefaultPolicy()
	setInt(&p.OtpDigits, c.OTP.Digits)
	setDur(&p.OtpTTL, c.OTP.TTL)
	setDur(&p.OtpCooldown, c.OTP.Cooldown)
	setInt(&p.OtpMaxPerWindow, c.OTP.MaxPerWindow)
	setDur(&p.OtpWindow, c.OTP.Window)
	setInt(&p.OtpMaxRetries, c.OTP.MaxRetries)
	setDur(&p.ResetGrantTTL, c.OTP.ResetGrantTTL)
	setDur(&p.DispatchTimeout, c.OTP.DispatchTimeout)
	setInt(&p.MaxFailedAttempts, c.Login.MaxFailedAttempts)
	setDur(&p.LockDuration, c.Login.LockDuration)
	setDur(&p.ResetTokenTTL, c.Reset.TokenTTL)
	setDur(&p.ResetCooldown, c.Reset.Cooldown)
	setInt(&p.ResetMaxRequests, c.Reset.MaxRequests)
	setDur(&p.ResetWindow, c.Reset.Window)
	setDur(&p.ActionTokenTTL, c.Reset.ActionTokenTTL)
	setDur(&p.CleanupInterval, c.CleanupInterval)
	return p
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDur(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
