package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/delordemm1/account-guard/internal/security"
)

// CleanupJob periodically deletes expired OTPs and reset tokens. Records are kept until they
// can no longer count towards a rate-limit window.
type CleanupJob struct {
	repo     Repository
	logger   *slog.Logger
	clock    security.Clock
	interval time.Duration
	otpKeep  time.Duration
	tokKeep  time.Duration
}

func NewCleanupJob(repo Repository, logger *slog.Logger, clock security.Clock, policy Policy) *CleanupJob {
	if clock == nil {
		clock = security.SystemClock{}
	}
	return &CleanupJob{
		repo:     repo,
		logger:   logger,
		clock:    clock,
		interval: policy.CleanupInterval,
		otpKeep:  policy.OtpWindow,
		tokKeep:  policy.ResetWindow,
	}
}

// Run ticks until ctx is cancelled. A failed run is logged and the next tick still runs.
func (j *CleanupJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cleanup job started", "interval", j.interval)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup job stopped")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("cleanup run failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single cleanup pass.
func (j *CleanupJob) RunOnce(ctx context.Context) error {
	now := j.clock.Now()

	otps, err := j.repo.DeleteExpiredOtps(ctx, now.Add(-j.otpKeep))
	if err != nil {
		return err
	}
	tokens, err := j.repo.DeleteExpiredResetTokens(ctx, now.Add(-j.tokKeep))
	if err != nil {
		return err
	}

	if otps > 0 || tokens > 0 {
		j.logger.Info("expired security records deleted", "otps", otps, "reset_tokens", tokens)
	}
	return nil
}
