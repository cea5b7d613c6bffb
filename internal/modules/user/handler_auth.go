package user

import (
	"context"
	"time"

	"github.com/delordemm1/account-guard/internal/contextx"
	"github.com/delordemm1/account-guard/internal/validation"
)

// --- DTOs (Data Transfer Objects) ---

// RegisterRequest defines the structure for the user registration request body.
type RegisterRequest struct {
	Body struct {
		Username        string `json:"username" validate:"required,alphanum,min=3,max=50"`
		Email           string `json:"email" validate:"required,email"`
		Mobile          string `json:"mobile" validate:"required,min=7,max=20"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// RegisterResponse defines the structure for a successful registration response.
type RegisterResponse struct {
	Body struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
}

// LoginRequest defines the structure for the user login request body.
type LoginRequest struct {
	Body struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
}

// LoginResponse defines the structure for a successful login response.
type LoginResponse struct {
	Body struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
}

// AccountResponse describes the caller's account.
type AccountResponse struct {
	Body struct {
		ID                  string        `json:"id"`
		Username            string        `json:"username"`
		Email               string        `json:"email"`
		Mobile              string        `json:"mobile"`
		Role                Role          `json:"role"`
		Status              AccountStatus `json:"status"`
		EmailVerified       bool          `json:"emailVerified"`
		MobileVerified      bool          `json:"mobileVerified"`
		LockUntil           *time.Time    `json:"lockUntil,omitempty"`
		FailedLoginAttempts int           `json:"failedLoginAttempts"`
	}
}

// --- Mapper ---

func toAccountResponse(a *Account) *AccountResponse {
	out := &AccountResponse{}
	out.Body.ID = a.ID
	out.Body.Username = a.Username
	out.Body.Email = a.Email
	out.Body.Mobile = a.Mobile
	out.Body.Role = a.Role
	out.Body.Status = a.Status
	out.Body.EmailVerified = a.EmailVerified
	out.Body.MobileVerified = a.MobileVerified
	out.Body.LockUntil = a.LockUntil
	out.Body.FailedLoginAttempts = a.FailedLoginAttempts
	return out
}

// --- Handlers ---

// RegisterHandler handles the user registration endpoint.
func (h *Handler) RegisterHandler(ctx context.Context, input *RegisterRequest) (*RegisterResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid registration request", err)
	}

	id, err := h.service.Register(ctx, RegisterInput{
		Username: input.Body.Username,
		Email:    input.Body.Email,
		Mobile:   input.Body.Mobile,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, h.fail(ctx, "registration failed", err)
	}

	out := &RegisterResponse{}
	out.Body.ID = id
	out.Body.Message = "Registration received. Verify your email and mobile number to activate the account."
	return out, nil
}

// LoginHandler handles the user login endpoint.
func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*LoginResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid login request", err)
	}

	res, err := h.service.Login(ctx, input.Body.Username, input.Body.Password)
	if err != nil {
		return nil, h.fail(ctx, "login attempt failed", err)
	}

	out := &LoginResponse{}
	out.Body.Token = res.Token
	out.Body.Username = res.Username
	return out, nil
}

// MeHandler returns the authenticated caller's account.
func (h *Handler) MeHandler(ctx context.Context, _ *struct{}) (*AccountResponse, error) {
	p, ok := contextx.PrincipalFrom(ctx)
	if !ok {
		return nil, h.fail(ctx, "missing principal", ErrUnauthorized)
	}

	acc, err := h.service.GetAccount(ctx, p.UserID)
	if err != nil {
		return nil, h.fail(ctx, "failed to load account", err)
	}
	return toAccountResponse(acc), nil
}
