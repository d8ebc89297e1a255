package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/loomworks-erp/loomworks-erp/cmd/loomworks/cli"
	"github.com/loomworks-erp/loomworks-erp/internal/accounting/accounts"
	"github.com/loomworks-erp/loomworks-erp/internal/accounting/journals"
	"github.com/loomworks-erp/loomworks-erp/internal/app"
	"github.com/loomworks-erp/loomworks-erp/internal/inventory"
	"github.com/loomworks-erp/loomworks-erp/internal/ledger"
	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/branches"
	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/companies"
	"github.com/loomworks-erp/loomworks-erp/internal/observability"
	"github.com/loomworks-erp/loomworks-erp/internal/platform/db"
	"github.com/loomworks-erp/loomworks-erp/internal/returns"
	"github.com/loomworks-erp/loomworks-erp/internal/sequences"
	"github.com/loomworks-erp/loomworks-erp/internal/studio"
	"github.com/loomworks-erp/loomworks-erp/internal/users"
	"github.com/loomworks-erp/loomworks-erp/internal/verify"
	"github.com/loomworks-erp/loomworks-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "verify":
			os.Exit(runVerify(ctx, cfg, logger, os.Args[2:]))
		case "backfill":
			os.Exit(runBackfill(ctx, cfg, logger, os.Args[2:]))
		case "serve":
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, verify or backfill)\n", os.Args[1])
			os.Exit(1)
		}
	}

	runServe(ctx, stop, cfg, logger)
}

func runServe(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	metrics := observability.NewMetrics()

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	receivable := func(ctx context.Context, companyID int64) (int64, error) {
		return accountsService.RequireRole(ctx, companyID, accounts.RoleReceivable)
	}

	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo, receivable, metrics, logger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	returnsRepo := returns.NewRepository(dbpool)
	returnsService := returns.NewService(returnsRepo, accountsService, logger)
	returnsHandler := returns.NewHandler(logger, returnsService)

	verifyRepo := verify.NewRepository(dbpool)
	verifyService := verify.NewService(verifyRepo, receivable, metrics, logger)
	verifyHandler := verify.NewHandler(logger, verifyService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, logger)
	usersHandler := users.NewHandler(logger, usersService)

	companiesRepo := companies.NewRepository(dbpool)
	companiesService := companies.NewService(companiesRepo)
	companiesHandler := companies.NewHandler(logger, companiesService)

	branchesRepo := branches.NewRepository(dbpool)
	branchesService := branches.NewService(branchesRepo)
	branchesHandler := branches.NewHandler(logger, branchesService)

	studioRepo := studio.NewRepository(dbpool)
	studioService := studio.NewService(studioRepo, logger)
	studioHandler := studio.NewHandler(logger, studioService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		JournalsHandler:  journalsHandler,
		AccountsHandler:  accountsHandler,
		LedgerHandler:    ledgerHandler,
		ReturnsHandler:   returnsHandler,
		VerifyHandler:    verifyHandler,
		UsersHandler:     usersHandler,
		CompaniesHandler: companiesHandler,
		BranchesHandler:  branchesHandler,
		StudioHandler:    studioHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runVerify(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	companyID := fs.Int64("company", 0, "company id to verify")
	checks := fs.String("checks", "", "comma-separated check names, empty runs all")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	accountsService := accounts.NewService(accounts.NewRepository(dbpool))
	receivable := func(ctx context.Context, companyID int64) (int64, error) {
		return accountsService.RequireRole(ctx, companyID, accounts.RoleReceivable)
	}
	verifyService := verify.NewService(verify.NewRepository(dbpool), receivable, nil, logger)

	return cli.NewVerifyCLI(verifyService).Command(ctx, cli.VerifyOptions{
		CompanyID:  *companyID,
		Checks:     *checks,
		JSONOutput: *jsonOut,
	})
}

func runBackfill(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	companyID := fs.Int64("company", 0, "company id to backfill")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	sequencesService := sequences.NewService(dbpool)
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), sequencesService, nil, logger)

	return cli.NewBackfillCLI(inventoryService).Command(ctx, cli.BackfillOptions{
		CompanyID:  *companyID,
		JSONOutput: *jsonOut,
	})
}
