package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var otpColumns = []string{
	"id", "user_id", "otp_hash", "type", "reason", "status",
	"expires_at", "retry_count", "last_sent_at", "created_at",
}

func (r *repository) CreateOtp(ctx context.Context, otp *Otp) error {
	query, args, err := r.psql.Insert("otps").
		Columns(otpColumns...).
		Values(otp.ID, otp.UserID, otp.OtpHash, otp.Type, otp.Reason, otp.Status,
			otp.ExpiresAt, otp.RetryCount, otp.LastSentAt, otp.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// LatestOtp returns the most recently created code for (user, type, reason), or ErrNotFound.
func (r *repository) LatestOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (*Otp, error) {
	return r.latestOtp(ctx, userID, otpType, reason, false)
}

// LockLatestOtp is LatestOtp with the row held FOR UPDATE.
func (r *repository) LockLatestOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (*Otp, error) {
	return r.latestOtp(ctx, userID, otpType, reason, true)
}

func (r *repository) latestOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason, forUpdate bool) (*Otp, error) {
	q := r.psql.Select(otpColumns...).
		From("otps").
		Where(squirrel.Eq{"user_id": userID, "type": otpType, "reason": reason}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var otp Otp
	if err := pgxscan.Get(ctx, r.db, &otp, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &otp, nil
}

// CountOtpsSince counts codes of one type issued to the user since the given instant,
// across all reasons.
func (r *repository) CountOtpsSince(ctx context.Context, userID string, otpType OtpType, since time.Time) (int, error) {
	query, args, err := r.psql.Select("COUNT(*)").
		From("otps").
		Where(squirrel.Eq{"user_id": userID, "type": otpType}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateOtp persists the verification state of a code.
func (r *repository) UpdateOtp(ctx context.Context, otp *Otp) error {
	query, args, err := r.psql.Update("otps").
		Set("status", otp.Status).
		Set("retry_count", otp.RetryCount).
		Where(squirrel.Eq{"id": otp.ID}).
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

// DeleteExpiredOtps removes codes that expired before the given instant.
func (r *repository) DeleteExpiredOtps(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := r.psql.Delete("otps").
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
