package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/loomworks-erp/loomworks-erp/internal/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/verify"
)

// LedgerIntegrityJob runs the verification checks from the queue. Runs are
// serialised per company through a redis lock so the cron schedule and
// on-demand triggers never overlap.
type LedgerIntegrityJob struct {
	service *verify.Service
	redis   *redis.Client
	logger  *slog.Logger
}

// NewLedgerIntegrityJob constructs the job.
func NewLedgerIntegrityJob(service *verify.Service, redisClient *redis.Client, logger *slog.Logger) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{service: service, redis: redisClient, logger: logger}
}

// Handle processes TaskVerifyLedger tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload VerifyLedgerPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CompanyID <= 0 {
		return asynq.SkipRetry
	}

	if j.redis != nil {
		lock := shared.NewLock(j.redis, shared.VerifyLockKey(payload.CompanyID), 10*time.Minute)
		if err := lock.Acquire(ctx); err != nil {
			if errors.Is(err, shared.ErrLockHeld) {
				j.logger.Info("integrity scan already running", slog.Int64("company_id", payload.CompanyID))
				return nil
			}
			return err
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	checks := make([]verify.CheckName, 0, len(payload.Checks))
	for _, c := range payload.Checks {
		checks = append(checks, verify.CheckName(c))
	}
	report, err := j.service.Run(ctx, payload.CompanyID, checks)
	if err != nil {
		return err
	}
	if !report.Clean() {
		j.logger.Warn("integrity scan found problems",
			slog.Int64("company_id", payload.CompanyID),
			slog.Int("findings", report.FindingCount()))
	}
	return nil
}
