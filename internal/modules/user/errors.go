package user

import (
	"fmt"
	"net/http"
)

// DomainError is a structured, self-describing domain error used across the user module.
// It carries HTTP/RFC7807-friendly metadata so a shared formatter can convert any domain
// error into a Problem response without enumerating error types.
type DomainError struct {
	// Code is a stable, machine-readable business code (e.g., "ErrInvalidOTP").
	Code string

	// HTTPStatus is the HTTP status suggested for this error (e.g., 400, 401, 404, 409, 500).
	HTTPStatus int

	// Title is a short human summary; if empty the formatter will default to StatusText(HTTPStatus).
	Title string

	// Message is a human-readable message primarily for logs. When Detail is empty,
	// this is used as the public detail.
	Message string

	// Detail is a user-friendly, safe explanation for clients. If empty, Message is used.
	Detail string

	// TypeURI is an RFC7807 type URI for documentation, e.g., "urn:problem:user/err-invalid-otp".
	TypeURI string

	// Context is an optional extension payload for clients.
	Context any

	cause error
}

func (e *DomainError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is compares by Code so copies created via WithCause/WithDetail still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error wrapping the provided cause.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// WithDetail sets a public-friendly detail message for clients.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithContext attaches an extension payload for clients.
func (e *DomainError) WithContext(ctx any) *DomainError {
	cp := *e
	cp.Context = ctx
	return &cp
}

// --- RFC7807 mapping accessors (satisfy httpx.DomainProblem) ---

func (e *DomainError) ProblemCode() string { return e.Code }
func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}
func (e *DomainError) ProblemTitle() string   { return e.Title }
func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return e.Context }
func (e *DomainError) ProblemDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

// --- Pre-defined Domain Errors ---

var (
	// Resource & identity
	ErrNotFound = &DomainError{
		Code:       "ErrNotFound",
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "user not found",
		TypeURI:    "urn:problem:user/err-not-found",
	}

	ErrUnauthorized = &DomainError{
		Code:       "ErrUnauthorized",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "user is not authorized to perform this action",
		TypeURI:    "urn:problem:user/err-unauthorized",
	}

	// Auth & credentials
	ErrInvalidCredentials = &DomainError{
		Code:       "ErrInvalidCredentials",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "invalid credentials",
		TypeURI:    "urn:problem:user/err-invalid-credentials",
	}

	// Account status gating
	ErrAccountUnverified = &DomainError{
		Code:       "ErrAccountUnverified",
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "account not verified, please verify your email and mobile number",
		TypeURI:    "urn:problem:user/err-account-unverified",
	}

	ErrAccountLocked = &DomainError{
		Code:       "ErrAccountLocked",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "account is locked",
		TypeURI:    "urn:problem:user/err-account-locked",
	}

	ErrAccountBlocked = &DomainError{
		Code:       "ErrAccountBlocked",
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "account is blocked",
		TypeURI:    "urn:problem:user/err-account-blocked",
	}

	ErrAccountNotBlocked = &DomainError{
		Code:       "ErrAccountNotBlocked",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "account is not blocked",
		TypeURI:    "urn:problem:user/err-account-not-blocked",
	}

	ErrAlreadyVerified = &DomainError{
		Code:       "ErrAlreadyVerified",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "already verified",
		TypeURI:    "urn:problem:user/err-already-verified",
	}

	// One-time passwords
	ErrInvalidOTP = &DomainError{
		Code:       "ErrInvalidOTP",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "invalid one-time password",
		TypeURI:    "urn:problem:user/err-invalid-otp",
	}

	ErrOTPExpired = &DomainError{
		Code:       "ErrOTPExpired",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "one-time password has expired",
		TypeURI:    "urn:problem:user/err-otp-expired",
	}

	// Abuse controls
	ErrCooldown = &DomainError{
		Code:       "ErrCooldown",
		HTTPStatus: http.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    "please wait before requesting again",
		TypeURI:    "urn:problem:user/err-cooldown",
	}

	ErrLimitExceeded = &DomainError{
		Code:       "ErrLimitExceeded",
		HTTPStatus: http.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    "request limit exceeded, try again later",
		TypeURI:    "urn:problem:user/err-limit-exceeded",
	}

	// Reset and security-action tokens
	ErrInvalidToken = &DomainError{
		Code:       "ErrInvalidToken",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "invalid token",
		TypeURI:    "urn:problem:user/err-invalid-token",
	}

	ErrTokenExpired = &DomainError{
		Code:       "ErrTokenExpired",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "token has expired or was already used",
		TypeURI:    "urn:problem:user/err-token-expired",
	}

	ErrInvalidPassword = &DomainError{
		Code:       "ErrInvalidPassword",
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "password is not acceptable",
		TypeURI:    "urn:problem:user/err-invalid-password",
	}

	// Registration
	ErrUserExists = &DomainError{
		Code:       "ErrUserExists",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "user already exists",
		TypeURI:    "urn:problem:user/err-user-exists",
	}

	ErrEmailExists = &DomainError{
		Code:       "ErrEmailExists",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "a user with this email already exists",
		TypeURI:    "urn:problem:user/err-email-exists",
	}

	ErrUsernameExists = &DomainError{
		Code:       "ErrUsernameExists",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "username is already taken",
		TypeURI:    "urn:problem:user/err-username-exists",
	}

	ErrMobileExists = &DomainError{
		Code:       "ErrMobileExists",
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "a user with this mobile number already exists",
		TypeURI:    "urn:problem:user/err-mobile-exists",
	}

	// Generic internal
	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Message:    "internal server error",
		TypeURI:    "urn:problem:user/err-internal",
	}
)
