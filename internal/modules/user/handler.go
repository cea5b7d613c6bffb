package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/httpx"
	"github.com/delordemm1/account-guard/internal/middleware"
)

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service Service
	issuer  credential.Issuer
	logger  *slog.Logger
}

// NewHandler creates a new handler for the user module.
func NewHandler(service Service, issuer credential.Issuer, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		issuer:  issuer,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routing for the user module.
// It defines all the API endpoints and connects them to their respective handler functions.
func (h *Handler) RegisterRoutes(api huma.API) {
	// --- Registration & login ---
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new account",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, h.RegisterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with username and password",
		Tags:        []string{"Auth"},
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-account",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get the caller's account state",
		Tags:        []string{"Auth"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: huma.Middlewares{middleware.Authenticate(h.issuer, h.logger)},
	}, h.MeHandler)

	// --- One-time passwords ---
	huma.Register(api, huma.Operation{
		OperationID:   "send-otp",
		Method:        http.MethodPost,
		Path:          "/auth/otp/send",
		Summary:       "Send a one-time password",
		Tags:          []string{"OTP"},
		DefaultStatus: http.StatusAccepted,
	}, h.SendOtpHandler)

	huma.Register(api, huma.Operation{
		OperationID: "verify-otp",
		Method:      http.MethodPost,
		Path:        "/auth/otp/verify",
		Summary:     "Verify a one-time password",
		Tags:        []string{"OTP"},
	}, h.VerifyOtpHandler)

	huma.Register(api, huma.Operation{
		OperationID: "verify-account",
		Method:      http.MethodPost,
		Path:        "/auth/verify-account",
		Summary:     "Verify the email or mobile of a pending account",
		Tags:        []string{"OTP"},
	}, h.VerifyAccountHandler)

	// --- Recovery ---
	huma.Register(api, huma.Operation{
		OperationID: "forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/password/forgot",
		Summary:     "Email a password reset link",
		Tags:        []string{"Recovery"},
	}, h.ForgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/password/reset",
		Summary:     "Reset the password with a reset token",
		Tags:        []string{"Recovery"},
	}, h.ResetPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID: "reset-password-with-otp",
		Method:      http.MethodPost,
		Path:        "/auth/password/reset-with-otp",
		Summary:     "Reset the password after verifying a PASSWORD_RESET code",
		Tags:        []string{"Recovery"},
	}, h.ResetPasswordWithOtpHandler)

	huma.Register(api, huma.Operation{
		OperationID: "forgot-username",
		Method:      http.MethodPost,
		Path:        "/auth/username/forgot",
		Summary:     "Email the username registered for an address",
		Tags:        []string{"Recovery"},
	}, h.ForgotUsernameHandler)

	// --- Blocking ---
	huma.Register(api, huma.Operation{
		OperationID: "block-account",
		Method:      http.MethodPost,
		Path:        "/auth/block-account",
		Summary:     "Block the account with the link from a password change alert",
		Tags:        []string{"Blocking"},
	}, h.BlockAccountHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "send-unblock-otp",
		Method:        http.MethodPost,
		Path:          "/auth/unblock-account/send-otp",
		Summary:       "Send an unblock code to a blocked account",
		Tags:          []string{"Blocking"},
		DefaultStatus: http.StatusAccepted,
	}, h.SendUnblockOtpHandler)

	huma.Register(api, huma.Operation{
		OperationID: "verify-unblock-otp",
		Method:      http.MethodPost,
		Path:        "/auth/unblock-account/verify-otp",
		Summary:     "Unblock the account with an unblock code",
		Tags:        []string{"Blocking"},
	}, h.VerifyUnblockOtpHandler)
}

// MessageResponse is the body of operations that only acknowledge.
type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func message(msg string) *MessageResponse {
	out := &MessageResponse{}
	out.Body.Message = msg
	return out
}

// fail logs err at a level matching its status and converts it to a problem response.
func (h *Handler) fail(ctx context.Context, msg string, err error) error {
	var dp httpx.DomainProblem
	if errors.As(err, &dp) && dp.ProblemStatus() < http.StatusInternalServerError {
		h.logger.Warn(msg, "code", dp.ProblemCode(), "detail", dp.ProblemDetail())
	} else {
		h.logger.Error(msg, "error", err)
	}
	return httpx.ToProblem(ctx, err)
}
