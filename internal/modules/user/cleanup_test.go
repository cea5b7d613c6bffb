package user

import (
	"context"
	"testing"
	"time"
)

func TestCleanupKeepsRecordsInsideRateWindow(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "vaibhav", StatusActive)
	ctx := context.Background()

	if _, err := f.svc.DispatchOtp(ctx, u.ID, OtpTypeEmail, ReasonLogin); err != nil {
		t.Fatalf("DispatchOtp: %v", err)
	}
	if err := f.svc.InitiatePasswordReset(ctx, u.Email); err != nil {
		t.Fatalf("InitiatePasswordReset: %v", err)
	}

	job := NewCleanupJob(f.repo, quietLogger(), f.clock, DefaultPolicy())

	// expired but still counted by the hourly limits
	f.clock.Advance(45 * time.Minute)
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n := len(f.repo.otpsFor(u.ID)); n != 1 {
		t.Fatalf("otp removed too early")
	}
	if n := len(f.repo.tokensFor(u.ID)); n != 1 {
		t.Fatalf("token removed too early")
	}

	f.clock.Advance(time.Hour)
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n := len(f.repo.otpsFor(u.ID)); n != 0 {
		t.Fatalf("expected expired otp to be deleted, %d left", n)
	}
	if n := len(f.repo.tokensFor(u.ID)); n != 0 {
		t.Fatalf("expected expired token to be deleted, %d left", n)
	}
}

func TestCleanupRunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	policy := DefaultPolicy()
	policy.CleanupInterval = time.Millisecond
	job := NewCleanupJob(f.repo, quietLogger(), f.clock, policy)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
