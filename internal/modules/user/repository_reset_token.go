package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var resetTokenColumns = []string{
	"id", "user_id", "token_hash", "expires_at", "used", "request_count",
	"first_request_at", "last_request_at", "action_type", "action_used", "created_at",
}

func (r *repository) CreateResetToken(ctx context.Context, t *PasswordResetToken) error {
	query, args, err := r.psql.Insert("password_reset_tokens").
		Columns(resetTokenColumns...).
		Values(t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.Used, t.RequestCount,
			t.FirstRequestAt, t.LastRequestAt, t.ActionType, t.ActionUsed, t.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// FindRecoveryTokenByUserID returns the user's tracked recovery token, used or not.
func (r *repository) FindRecoveryTokenByUserID(ctx context.Context, userID string) (*PasswordResetToken, error) {
	return r.findResetToken(ctx, squirrel.Eq{"user_id": userID, "action_type": ActionNone})
}

// FindRecoveryTokenByHash returns an unused recovery token. Security-action tokens never match.
func (r *repository) FindRecoveryTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	return r.findResetToken(ctx, squirrel.Eq{"token_hash": tokenHash, "action_type": ActionNone, "used": false})
}

// FindActionTokenByHash returns the security-action token of the given type, used or not.
func (r *repository) FindActionTokenByHash(ctx context.Context, tokenHash string, action ActionType) (*PasswordResetToken, error) {
	return r.findResetToken(ctx, squirrel.Eq{"token_hash": tokenHash, "action_type": action})
}

func (r *repository) UpdateResetToken(ctx context.Context, t *PasswordResetToken) error {
	query, args, err := r.psql.Update("password_reset_tokens").
		Set("used", t.Used).
		Set("action_used", t.ActionUsed).
		Set("request_count", t.RequestCount).
		Set("last_request_at", t.LastRequestAt).
		Where(squirrel.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteResetToken(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("password_reset_tokens").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// DeleteExpiredResetTokens removes tokens that expired before the given instant.
func (r *repository) DeleteExpiredResetTokens(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := r.psql.Delete("password_reset_tokens").
		Where(squirrel.Lt{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, err
	}
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *repository) findResetToken(ctx context.Context, cond squirrel.Sqlizer) (*PasswordResetToken, error) {
	query, args, err := r.psql.Select(resetTokenColumns...).
		From("password_reset_tokens").
		Where(cond).
		OrderBy("created_at DESC").
		Limit(1).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}

	var t PasswordResetToken
	if err := pgxscan.Get(ctx, r.db, &t, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &t, nil
}
