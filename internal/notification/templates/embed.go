package templates

import "embed"

// EmbeddedFS holds the templates compiled into the binary.
//
//go:embed files/*.tmpl
var EmbeddedFS embed.FS

// All lists every scenario shipped in EmbeddedFS.
var All = []IHandle{
	OTPCode,
	PasswordResetLink,
	PasswordChanged,
	AccountBlocked,
	AccountUnblocked,
	UsernameReminder,
}
