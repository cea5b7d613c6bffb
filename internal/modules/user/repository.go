package user

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/account-guard/internal/database"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository defines the interface for database operations for the user module.
// This abstraction allows the service layer to be independent of the database implementation.
type Repository interface {
	// WithTx runs fn against a repository bound to one transaction. fn's error rolls it back.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	// Users
	CreateUser(ctx context.Context, user *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	LockUserByID(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	// One-time passwords
	CreateOtp(ctx context.Context, otp *Otp) error
	LatestOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (*Otp, error)
	LockLatestOtp(ctx context.Context, userID string, otpType OtpType, reason OtpReason) (*Otp, error)
	CountOtpsSince(ctx context.Context, userID string, otpType OtpType, since time.Time) (int, error)
	UpdateOtp(ctx context.Context, otp *Otp) error
	DeleteExpiredOtps(ctx context.Context, before time.Time) (int64, error)

	// Reset and security-action tokens
	CreateResetToken(ctx context.Context, token *PasswordResetToken) error
	FindRecoveryTokenByUserID(ctx context.Context, userID string) (*PasswordResetToken, error)
	FindRecoveryTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	FindActionTokenByHash(ctx context.Context, tokenHash string, action ActionType) (*PasswordResetToken, error)
	UpdateResetToken(ctx context.Context, token *PasswordResetToken) error
	DeleteResetToken(ctx context.Context, id string) error
	DeleteExpiredResetTokens(ctx context.Context, before time.Time) (int64, error)
}

// repository implements the Repository interface using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new user repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	return database.InTx(ctx, r.db, func(tx database.DBTX) error {
		return fn(&repository{db: tx, psql: r.psql})
	})
}

// uniqueViolations maps unique constraint names to the conflict they represent.
var uniqueViolations = map[string]*DomainError{
	"uq_users_username":                 ErrUsernameExists,
	"uq_users_email":                    ErrEmailExists,
	"uq_users_mobile":                   ErrMobileExists,
	"uq_password_reset_tokens_recovery": ErrCooldown,
}

// mapWriteError turns a Postgres unique violation into its domain conflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if derr, ok := uniqueViolations[pgErr.ConstraintName]; ok {
			return derr.WithCause(err)
		}
	}
	return err
}
