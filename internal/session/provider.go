package session

import (
	"context"
	"time"

	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/database"
)

// Config controls session TTLs.
type Config struct {
	// SlidingTTL is the idle timeout. Each valid access extends last_active_at by this duration.
	// Default: 7 days.
	SlidingTTL time.Duration

	// AbsoluteTTL is the maximum lifetime from creation. Default: 30 days.
	AbsoluteTTL time.Duration
}

// Provider issues opaque, server-side sessions as login credentials.
//
// Session IDs are random and prefixed with their type ("auth:"); only their SHA-256 digest
// is stored.
type Provider interface {
	credential.Issuer

	// Revoke deletes a session by its ID. It is idempotent.
	Revoke(ctx context.Context, sessionID string) error
}

// NewPostgresProvider returns a Postgres-backed Provider.
func NewPostgresProvider(db database.DBTX, cfg Config) Provider {
	return newPostgresProvider(db, cfg)
}
