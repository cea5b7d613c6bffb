package templates

// OTPCodeData holds variables for the user.otp_code scenario.
type OTPCodeData struct {
	Username     string
	Code         string
	Purpose      string
	ValidMinutes int
	SupportEmail string
}

// OTPCode is the typed handle for the user.otp_code template (email and SMS).
var OTPCode = Expect[OTPCodeData]("user.otp_code")

// PasswordResetLinkData holds variables for the password reset link email.
type PasswordResetLinkData struct {
	Username     string
	ResetURL     string
	ValidMinutes int
	SupportEmail string
}

var PasswordResetLink = Expect[PasswordResetLinkData]("user.password_reset_link")

// PasswordChangedData holds variables for the "your password was changed" alert, which
// carries the one-time link that blocks the account.
type PasswordChangedData struct {
	Username     string
	BlockURL     string
	ValidMinutes int
	SupportEmail string
}

var PasswordChanged = Expect[PasswordChangedData]("user.password_changed")

// AccountStatusData is shared by the account blocked and unblocked notices.
type AccountStatusData struct {
	Username     string
	SupportEmail string
}

var AccountBlocked = Expect[AccountStatusData]("user.account_blocked")

var AccountUnblocked = Expect[AccountStatusData]("user.account_unblocked")

// UsernameReminderData holds variables for the forgot-username email.
type UsernameReminderData struct {
	Username     string
	SupportEmail string
}

var UsernameReminder = Expect[UsernameReminderData]("user.username_reminder")
