package user

import (
	"context"

	"github.com/delordemm1/account-guard/internal/validation"
)

// --- DTOs ---

// ForgotPasswordRequest defines the structure for initiating a password reset.
type ForgotPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// ResetPasswordRequest defines the structure for finalizing a password reset.
type ResetPasswordRequest struct {
	Body struct {
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// ResetPasswordWithOtpRequest sets a new password after a PASSWORD_RESET code was verified.
type ResetPasswordWithOtpRequest struct {
	Body struct {
		Username        string `json:"username" validate:"required"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// ForgotUsernameRequest asks for a username reminder.
type ForgotUsernameRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// BlockAccountRequest carries the security-action token from the password change alert.
type BlockAccountRequest struct {
	Token string `query:"token" validate:"required"`
}

// --- Handlers ---

// ForgotPasswordHandler handles the request to initiate a password reset. The response does
// not reveal whether the email is registered.
func (h *Handler) ForgotPasswordHandler(ctx context.Context, input *ForgotPasswordRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid forgot password request", err)
	}
	if err := h.service.InitiatePasswordReset(ctx, input.Body.Email); err != nil {
		return nil, h.fail(ctx, "failed to initiate password reset", err)
	}
	return message("If the email is registered, a password reset link has been sent"), nil
}

// ResetPasswordHandler handles the request to set a new password using a reset token.
func (h *Handler) ResetPasswordHandler(ctx context.Context, input *ResetPasswordRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid reset password request", err)
	}
	if err := h.service.ResetPassword(ctx, input.Body.Token, input.Body.Password); err != nil {
		return nil, h.fail(ctx, "failed to reset password", err)
	}
	return message("Password reset successfully"), nil
}

func (h *Handler) ResetPasswordWithOtpHandler(ctx context.Context, input *ResetPasswordWithOtpRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid reset password request", err)
	}
	if err := h.service.ResetPasswordWithOtp(ctx, input.Body.Username, input.Body.Password); err != nil {
		return nil, h.fail(ctx, "failed to reset password with otp", err)
	}
	return message("Password reset successfully"), nil
}

func (h *Handler) ForgotUsernameHandler(ctx context.Context, input *ForgotUsernameRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid forgot username request", err)
	}
	if err := h.service.ForgotUsername(ctx, input.Body.Email); err != nil {
		return nil, h.fail(ctx, "failed to send username reminder", err)
	}
	return message("If the email is registered, the username has been sent to it"), nil
}

func (h *Handler) BlockAccountHandler(ctx context.Context, input *BlockAccountRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input); err != nil {
		return nil, h.fail(ctx, "invalid block account request", err)
	}
	if err := h.service.BlockAccount(ctx, input.Token); err != nil {
		return nil, h.fail(ctx, "failed to block account", err)
	}
	return message("Account blocked. Request an unblock code to restore access."), nil
}
