package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/loomworks-erp/loomworks-erp/internal/inventory"
	"github.com/loomworks-erp/loomworks-erp/internal/shared"
)

// StockBackfillJob runs the stock movement backfill from the queue.
type StockBackfillJob struct {
	service *inventory.Service
	logger  *slog.Logger
}

// NewStockBackfillJob constructs the job.
func NewStockBackfillJob(service *inventory.Service, logger *slog.Logger) *StockBackfillJob {
	return &StockBackfillJob{service: service, logger: logger}
}

// Handle processes TaskInventoryBackfill tasks.
func (j *StockBackfillJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload InventoryBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CompanyID <= 0 {
		return asynq.SkipRetry
	}
	report, err := j.service.Backfill(ctx, payload.CompanyID)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			j.logger.Info("backfill already running", slog.Int64("company_id", payload.CompanyID))
			return nil
		}
		return err
	}
	j.logger.Info("backfill task complete",
		slog.Int64("company_id", payload.CompanyID),
		slog.Int("inserted", report.Inserted),
		slog.Int("skipped", report.Skipped))
	return nil
}
