package user

import (
	"context"

	"github.com/delordemm1/account-guard/internal/validation"
)

// --- DTOs ---

// SendOtpRequest asks for a code to be delivered over one channel.
type SendOtpRequest struct {
	Body struct {
		Username string    `json:"username" validate:"required"`
		Type     OtpType   `json:"type" enum:"EMAIL,MOBILE" validate:"required,oneof=EMAIL MOBILE"`
		Reason   OtpReason `json:"reason" enum:"REGISTRATION,PASSWORD_RESET,ACCOUNT_UNBLOCK,LOGIN" validate:"required,oneof=REGISTRATION PASSWORD_RESET ACCOUNT_UNBLOCK LOGIN"`
	}
}

// VerifyOtpRequest submits a code for checking.
type VerifyOtpRequest struct {
	Body struct {
		Username string    `json:"username" validate:"required"`
		Type     OtpType   `json:"type" enum:"EMAIL,MOBILE" validate:"required,oneof=EMAIL MOBILE"`
		Reason   OtpReason `json:"reason" enum:"REGISTRATION,PASSWORD_RESET,ACCOUNT_UNBLOCK,LOGIN" validate:"required,oneof=REGISTRATION PASSWORD_RESET ACCOUNT_UNBLOCK LOGIN"`
		Code     string    `json:"code" validate:"required,numeric,min=4,max=10"`
	}
}

// VerifyAccountRequest confirms one registration channel.
type VerifyAccountRequest struct {
	Body struct {
		Username string  `json:"username" validate:"required"`
		Type     OtpType `json:"type" enum:"EMAIL,MOBILE" validate:"required,oneof=EMAIL MOBILE"`
		Code     string  `json:"code" validate:"required,numeric,min=4,max=10"`
	}
}

// --- Handlers ---

// SendOtpHandler schedules delivery and answers before the code is sent.
func (h *Handler) SendOtpHandler(ctx context.Context, input *SendOtpRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid send otp request", err)
	}
	if err := h.service.SendOtp(ctx, input.Body.Username, input.Body.Type, input.Body.Reason); err != nil {
		return nil, h.fail(ctx, "send otp failed", err)
	}
	return message("OTP will be sent shortly"), nil
}

func (h *Handler) VerifyOtpHandler(ctx context.Context, input *VerifyOtpRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid verify otp request", err)
	}
	err := h.service.VerifyOtp(ctx, input.Body.Username, input.Body.Type, input.Body.Reason, input.Body.Code)
	if err != nil {
		return nil, h.fail(ctx, "verify otp failed", err)
	}
	return message("OTP verified successfully"), nil
}

func (h *Handler) VerifyAccountHandler(ctx context.Context, input *VerifyAccountRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid verify account request", err)
	}
	if err := h.service.VerifyAccount(ctx, input.Body.Username, input.Body.Type, input.Body.Code); err != nil {
		return nil, h.fail(ctx, "account verification failed", err)
	}
	return message(string(input.Body.Type) + " verified successfully"), nil
}
