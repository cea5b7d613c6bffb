package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, now *time.Time) *JWTIssuer {
	t.Helper()
	iss, err := NewJWTIssuer("secret", "account-guard", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	iss.now = func() time.Time { return *now }
	return iss
}

func TestJWTIssueVerify(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, &now)
	ctx := context.Background()

	token, err := iss.Issue(ctx, "user-1", "vaibhav", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := iss.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "vaibhav" || claims.Role != "USER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	now = now.Add(time.Hour + time.Second)
	if _, err := iss.Verify(ctx, token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired token: got %v want ErrExpired", err)
	}
}

func TestJWTVerifyRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, &now)
	ctx := context.Background()

	other, _ := NewJWTIssuer("another-secret", "account-guard", time.Hour)
	foreign, err := other.Issue(ctx, "user-1", "vaibhav", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := iss.Verify(ctx, foreign); !errors.Is(err, ErrInvalid) {
		t.Fatalf("wrong secret: got %v want ErrInvalid", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":    "vaibhav",
		"userId": "user-1",
		"iss":    "account-guard",
		"exp":    now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := iss.Verify(ctx, unsigned); !errors.Is(err, ErrInvalid) {
		t.Fatalf("alg none: got %v want ErrInvalid", err)
	}

	if _, err := iss.Verify(ctx, "not-a-token"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("garbage: got %v want ErrInvalid", err)
	}
}
