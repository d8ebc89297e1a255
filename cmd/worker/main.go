package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/accounts"
	"github.com/loomworks-erp/loomworks-erp/internal/app"
	"github.com/loomworks-erp/loomworks-erp/internal/inventory"
	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/companies"
	mdshared "github.com/loomworks-erp/loomworks-erp/internal/masterdata/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/platform/cache"
	"github.com/loomworks-erp/loomworks-erp/internal/platform/db"
	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
	"github.com/loomworks-erp/loomworks-erp/internal/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/verify"
	"github.com/loomworks-erp/loomworks-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	accountsService := accounts.NewService(accounts.NewRepository(pool))
	receivable := func(ctx context.Context, companyID int64) (int64, error) {
		return accountsService.RequireRole(ctx, companyID, accounts.RoleReceivable)
	}
	verifyService := verify.NewService(verify.NewRepository(pool), receivable, nil, logger)
	integrityJob := jobs.NewLedgerIntegrityJob(verifyService, redisClient, logger)

	sequencesService := sequences.NewService(pool)
	lockFactory := func(companyID int64) inventory.Locker {
		return shared.NewLock(redisClient, shared.BackfillLockKey(companyID), 10*time.Minute)
	}
	inventoryService := inventory.NewService(inventory.NewRepository(pool), sequencesService, lockFactory, logger)
	backfillJob := jobs.NewStockBackfillJob(inventoryService, logger)

	// Every active company gets its own nightly integrity scan entry.
	// Companies created after startup are picked up on the next restart.
	companiesService := companies.NewService(companies.NewRepository(pool))
	active := true
	companyRows, _, err := companiesService.List(ctx, mdshared.ListFilters{Limit: 1000, IsActive: &active})
	if err != nil {
		logger.Error("list companies", slog.Any("error", err))
		os.Exit(1)
	}

	cron := make([]jobs.CronRegistration, 0, len(companyRows))
	for _, company := range companyRows {
		task, err := jobs.NewVerifyLedgerTask(jobs.VerifyLedgerPayload{CompanyID: company.ID})
		if err != nil {
			logger.Error("build verify task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.VerifyCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskVerifyLedger, Handler: integrityJob.Handle},
			{Type: jobs.TaskInventoryBackfill, Handler: backfillJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
