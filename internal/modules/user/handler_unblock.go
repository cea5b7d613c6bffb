package user

import (
	"context"

	"github.com/delordemm1/account-guard/internal/validation"
)

type SendUnblockOtpRequest struct {
	Body struct {
		Username string  `json:"username" validate:"required"`
		Type     OtpType `json:"type" enum:"EMAIL,MOBILE" validate:"required,oneof=EMAIL MOBILE"`
	}
}

type VerifyUnblockOtpRequest struct {
	Body struct {
		Username string    `json:"username" validate:"required"`
		Type     OtpType   `json:"type" enum:"EMAIL,MOBILE" validate:"required,oneof=EMAIL MOBILE"`
		Reason   OtpReason `json:"reason" validate:"required"`
		Code     string    `json:"code" validate:"required,numeric,min=4,max=10"`
	}
}

func (h *Handler) SendUnblockOtpHandler(ctx context.Context, input *SendUnblockOtpRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid send unblock otp request", err)
	}
	if err := h.service.SendUnblockOtp(ctx, input.Body.Username, input.Body.Type); err != nil {
		return nil, h.fail(ctx, "send unblock otp failed", err)
	}
	return message("Unblock OTP will be sent shortly"), nil
}

func (h *Handler) VerifyUnblockOtpHandler(ctx context.Context, input *VerifyUnblockOtpRequest) (*MessageResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, h.fail(ctx, "invalid verify unblock otp request", err)
	}
	err := h.service.VerifyUnblockOtp(ctx, input.Body.Username, input.Body.Type, input.Body.Reason, input.Body.Code)
	if err != nil {
		return nil, h.fail(ctx, "unblock failed", err)
	}
	return message("Account unblocked successfully"), nil
}
