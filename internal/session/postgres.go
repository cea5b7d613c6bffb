package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/database"
	"github.com/delordemm1/account-guard/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionPrefix = "auth:"

type postgresProvider struct {
	db     database.DBTX
	cfg    Config
	tokens security.Generator
	clock  security.Clock
}

func newPostgresProvider(db database.DBTX, cfg Config) *postgresProvider {
	if cfg.SlidingTTL == 0 {
		cfg.SlidingTTL = 7 * 24 * time.Hour
	}
	if cfg.AbsoluteTTL == 0 {
		cfg.AbsoluteTTL = 30 * 24 * time.Hour
	}
	return &postgresProvider{
		db:     db,
		cfg:    cfg,
		tokens: security.RandomToken{Bytes: 32},
		clock:  security.SystemClock{},
	}
}

func (p *postgresProvider) Issue(ctx context.Context, userID, username, role string) (string, error) {
	raw, err := p.tokens.Generate()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	sessionID := sessionPrefix + raw

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate session row id: %w", err)
	}

	now := p.clock.Now()
	sql := `
		INSERT INTO user_sessions
			(id, user_id, username, role, token_hash, last_active_at, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := p.db.Exec(ctx, sql, id.String(), userID, username, role, security.HashToken(sessionID), now, now); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return sessionID, nil
}

func (p *postgresProvider) Verify(ctx context.Context, sessionID string) (*credential.Claims, error) {
	if !strings.HasPrefix(sessionID, sessionPrefix) {
		return nil, credential.ErrInvalid
	}
	tokenHash := security.HashToken(sessionID)

	var (
		claims       credential.Claims
		createdAt    time.Time
		lastActiveAt time.Time
	)
	query := `
		SELECT user_id, username, role, created_at, last_active_at
		FROM user_sessions
		WHERE token_hash = $1
		LIMIT 1
	`
	err := p.db.QueryRow(ctx, query, tokenHash).Scan(&claims.UserID, &claims.Username, &claims.Role, &createdAt, &lastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrInvalid
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := p.clock.Now()
	if now.Sub(createdAt) > p.cfg.AbsoluteTTL || now.Sub(lastActiveAt) > p.cfg.SlidingTTL {
		// Best effort cleanup
		_, _ = p.db.Exec(ctx, `DELETE FROM user_sessions WHERE token_hash = $1`, tokenHash)
		return nil, credential.ErrExpired
	}

	// Extend sliding TTL
	_, _ = p.db.Exec(ctx, `UPDATE user_sessions SET last_active_at = $1 WHERE token_hash = $2`, now, tokenHash)

	claims.ExpiresAt = minTime(now.Add(p.cfg.SlidingTTL), createdAt.Add(p.cfg.AbsoluteTTL))
	return &claims, nil
}

func (p *postgresProvider) Revoke(ctx context.Context, sessionID string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM user_sessions WHERE token_hash = $1`, security.HashToken(sessionID))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
