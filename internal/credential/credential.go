// Package credential issues and verifies the bearer credential returned by a successful login.
package credential

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalid = errors.New("credential is invalid")
	ErrExpired = errors.New("credential has expired")
)

// Claims identifies the account a credential was issued to.
type Claims struct {
	UserID    string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// Issuer creates bearer credentials and resolves them back to Claims.
type Issuer interface {
	Issue(ctx context.Context, userID, username, role string) (string, error)
	Verify(ctx context.Context, token string) (*Claims, error)
}
