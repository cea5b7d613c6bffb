package user

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var userColumns = []string{
	"id", "username", "email", "mobile", "password_hash", "role",
	"email_verified", "mobile_verified", "account_status", "lock_until", "failed_login_attempts",
	"password_reset_allowed", "password_reset_expires_at", "created_at", "updated_at",
}

// CreateUser inserts a new user record into the database.
func (r *repository) CreateUser(ctx context.Context, user *User) error {
	query, args, err := r.psql.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID, user.Username, user.Email, user.Mobile, user.PasswordHash, user.Role,
			user.EmailVerified, user.MobileVerified, user.AccountStatus, user.LockUntil, user.FailedLoginAttempts,
			user.PasswordResetAllowed, user.PasswordResetExpiresAt, user.CreatedAt, user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// FindUserByID retrieves a user by their unique ID.
// It returns ErrNotFound if no user is found.
func (r *repository) FindUserByID(ctx context.Context, id string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"id": id}, false)
}

// FindUserByUsername matches the stored lower-case username.
func (r *repository) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"username": username}, false)
}

// FindUserByEmail matches the stored lower-case email.
func (r *repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"email": email}, false)
}

// LockUserByID reads the user row FOR UPDATE; only meaningful inside WithTx.
func (r *repository) LockUserByID(ctx context.Context, id string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"id": id}, true)
}

// UpdateUser persists every mutable column of user.
func (r *repository) UpdateUser(ctx context.Context, user *User) error {
	query, args, err := r.psql.Update("users").
		Set("username", user.Username).
		Set("email", user.Email).
		Set("mobile", user.Mobile).
		Set("password_hash", user.PasswordHash).
		Set("role", user.Role).
		Set("email_verified", user.EmailVerified).
		Set("mobile_verified", user.MobileVerified).
		Set("account_status", user.AccountStatus).
		Set("lock_until", user.LockUntil).
		Set("failed_login_attempts", user.FailedLoginAttempts).
		Set("password_reset_allowed", user.PasswordResetAllowed).
		Set("password_reset_expires_at", user.PasswordResetExpiresAt).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// findUser is a helper method to find a single user by a given condition.
func (r *repository) findUser(ctx context.Context, cond squirrel.Sqlizer, forUpdate bool) (*User, error) {
	q := r.psql.Select(userColumns...).From("users").Where(cond).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &user, nil
}
