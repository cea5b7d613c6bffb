package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type stubDomainError struct{ code string }

func (e stubDomainError) Error() string          { return e.code }
func (e stubDomainError) ProblemCode() string    { return e.code }
func (e stubDomainError) ProblemStatus() int     { return http.StatusConflict }
func (e stubDomainError) ProblemTitle() string   { return "" }
func (e stubDomainError) ProblemDetail() string  { return "account is not blocked" }
func (e stubDomainError) ProblemTypeURI() string { return "" }
func (e stubDomainError) ProblemContext() any    { return nil }

func TestToProblemDomainError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", stubDomainError{code: "ErrAccountNotBlocked"})

	p, ok := ToProblem(context.Background(), err).(*Problem)
	if !ok {
		t.Fatalf("expected *Problem")
	}
	if p.Status != http.StatusConflict || p.Code != "ErrAccountNotBlocked" {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if p.Type != "urn:problem:err-account-not-blocked" {
		t.Fatalf("type: got %q", p.Type)
	}
	if p.Title != "Conflict" {
		t.Fatalf("title should default to status text, got %q", p.Title)
	}
	if p.ContentType("application/json") != "application/problem+json" {
		t.Fatalf("content type not rewritten")
	}
}

func TestToProblemFallbacks(t *testing.T) {
	ctx := context.Background()

	if ToProblem(ctx, nil) != nil {
		t.Fatalf("nil error must stay nil")
	}

	p := ToProblem(ctx, errors.New("boom")).(*Problem)
	if p.Status != http.StatusInternalServerError || p.Code != "ErrInternal" {
		t.Fatalf("unexpected internal problem: %+v", p)
	}
	if p.Detail == "boom" {
		t.Fatalf("internal error text must not leak to clients")
	}

	p = ToProblem(ctx, fmt.Errorf("query: %w", context.DeadlineExceeded)).(*Problem)
	if p.Status != http.StatusServiceUnavailable {
		t.Fatalf("deadline: got %d", p.Status)
	}

	orig := &Problem{Status: http.StatusTeapot}
	if ToProblem(ctx, orig) != error(orig) {
		t.Fatalf("status errors must pass through unchanged")
	}
}

func TestToKebab(t *testing.T) {
	cases := map[string]string{
		"ErrInvalidOTP":        "err-invalid-otp",
		"ErrAccountNotBlocked": "err-account-not-blocked",
		"USER_NOT_FOUND":       "user-not-found",
		"already-kebab":        "already-kebab",
	}
	for in, want := range cases {
		if got := toKebab(in); got != want {
			t.Fatalf("toKebab(%q) = %q want %q", in, got, want)
		}
	}
}

func TestNewErrorCollectsDetails(t *testing.T) {
	se := NewError(http.StatusUnprocessableEntity, "validation failed", errors.New("body.email: expected string"))

	p, ok := se.(*Problem)
	if !ok {
		t.Fatalf("expected *Problem, got %T", se)
	}
	if p.GetStatus() != http.StatusUnprocessableEntity || p.Code != "ErrUnprocessableEntity" {
		t.Fatalf("unexpected status/code: %d %q", p.GetStatus(), p.Code)
	}
	if p.Type != "urn:problem:unprocessable-entity" {
		t.Fatalf("type: got %q", p.Type)
	}
	if len(p.Errors) != 1 || p.Errors[0].Message != "body.email: expected string" {
		t.Fatalf("errors: %+v", p.Errors)
	}
}
