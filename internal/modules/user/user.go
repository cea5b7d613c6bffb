package user

import (
	"time"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusActive              AccountStatus = "ACTIVE"
	StatusLocked              AccountStatus = "LOCKED"
	StatusBlocked             AccountStatus = "BLOCKED"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a user in the system.
// This is the core entity for the user module, used across the repository, service, and handler layers.
type User struct {
	ID                     string        `db:"id"`
	Username               string        `db:"username"`
	Email                  string        `db:"email"`
	Mobile                 string        `db:"mobile"`
	PasswordHash           string        `db:"password_hash"`
	Role                   Role          `db:"role"`
	EmailVerified          bool          `db:"email_verified"`
	MobileVerified         bool          `db:"mobile_verified"`
	AccountStatus          AccountStatus `db:"account_status"`
	LockUntil              *time.Time    `db:"lock_until"`
	FailedLoginAttempts    int           `db:"failed_login_attempts"`
	PasswordResetAllowed   bool          `db:"password_reset_allowed"`
	PasswordResetExpiresAt *time.Time    `db:"password_reset_expires_at"`
	CreatedAt              time.Time     `db:"created_at"`
	UpdatedAt              time.Time     `db:"updated_at"`
}

// --- One-time passwords ---

// OtpType is the channel a code is delivered over.
type OtpType string

const (
	OtpTypeEmail  OtpType = "EMAIL"
	OtpTypeMobile OtpType = "MOBILE"
)

// OtpReason is the flow a code was issued for.
type OtpReason string

const (
	ReasonRegistration   OtpReason = "REGISTRATION"
	ReasonPasswordReset  OtpReason = "PASSWORD_RESET"
	ReasonAccountUnblock OtpReason = "ACCOUNT_UNBLOCK"
	ReasonLogin          OtpReason = "LOGIN"
)

// OtpStatus: GENERATED moves to exactly one of VERIFIED, EXPIRED or BLOCKED.
type OtpStatus string

const (
	OtpGenerated OtpStatus = "GENERATED"
	OtpVerified  OtpStatus = "VERIFIED"
	OtpExpired   OtpStatus = "EXPIRED"
	OtpBlocked   OtpStatus = "BLOCKED"
)

// Otp is a single issued code. Only the bcrypt hash of the code is stored.
type Otp struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	OtpHash    string    `db:"otp_hash"`
	Type       OtpType   `db:"type"`
	Reason     OtpReason `db:"reason"`
	Status     OtpStatus `db:"status"`
	ExpiresAt  time.Time `db:"expires_at"`
	RetryCount int       `db:"retry_count"`
	LastSentAt time.Time `db:"last_sent_at"`
	CreatedAt  time.Time `db:"created_at"`
}

// DispatchResult is the outcome of a single OTP dispatch attempt.
type DispatchResult string

const (
	DispatchSent        DispatchResult = "SENT"
	DispatchCooldown    DispatchResult = "COOLDOWN"
	DispatchRateLimited DispatchResult = "RATE_LIMITED"
)

// --- Reset & security-action tokens ---

// ActionType separates recovery tokens (NONE) from single-use security-action tokens.
type ActionType string

const (
	ActionNone         ActionType = "NONE"
	ActionAccountBlock ActionType = "ACCOUNT_BLOCK"
)

// PasswordResetToken is either the user's one tracked recovery token or a security-action
// token. Only the SHA-256 of the raw token is stored.
type PasswordResetToken struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	TokenHash      string     `db:"token_hash"`
	ExpiresAt      time.Time  `db:"expires_at"`
	Used           bool       `db:"used"`
	RequestCount   int        `db:"request_count"`
	FirstRequestAt time.Time  `db:"first_request_at"`
	LastRequestAt  time.Time  `db:"last_request_at"`
	ActionType     ActionType `db:"action_type"`
	ActionUsed     bool       `db:"action_used"`
	CreatedAt      time.Time  `db:"created_at"`
}

// --- Service inputs & outputs ---

type RegisterInput struct {
	Username string
	Email    string
	Mobile   string
	Password string
}

type LoginResult struct {
	Token    string
	Username string
}

// Account is the caller-visible view of a user's security state.
type Account struct {
	ID                  string
	Username            string
	Email               string
	Mobile              string
	Role                Role
	Status              AccountStatus
	EmailVerified       bool
	MobileVerified      bool
	LockUntil           *time.Time
	FailedLoginAttempts int
}

func accountOf(u *User) *Account {
	return &Account{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		Mobile:              u.Mobile,
		Role:                u.Role,
		Status:              u.AccountStatus,
		EmailVerified:       u.EmailVerified,
		MobileVerified:      u.MobileVerified,
		LockUntil:           u.LockUntil,
		FailedLoginAttempts: u.FailedLoginAttempts,
	}
}
