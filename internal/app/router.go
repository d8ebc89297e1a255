package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/accounts"
	"github.com/loomworks-erp/loomworks-erp/internal/accounting/journals"
	"github.com/loomworks-erp/loomworks-erp/internal/ledger"
	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/branches"
	"github.com/loomworks-erp/loomworks-erp/internal/masterdata/companies"
	"github.com/loomworks-erp/loomworks-erp/internal/observability"
	"github.com/loomworks-erp/loomworks-erp/internal/returns"
	"github.com/loomworks-erp/loomworks-erp/internal/studio"
	"github.com/loomworks-erp/loomworks-erp/internal/users"
	"github.com/loomworks-erp/loomworks-erp/internal/verify"
	"github.com/loomworks-erp/loomworks-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	JournalsHandler  *journals.Handler
	AccountsHandler  *accounts.Handler
	LedgerHandler    *ledger.Handler
	ReturnsHandler   *returns.Handler
	VerifyHandler    *verify.Handler
	UsersHandler     *users.Handler
	CompaniesHandler *companies.Handler
	BranchesHandler  *branches.Handler
	StudioHandler    *studio.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Loomworks defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/accounting", func(r chi.Router) {
		if params.JournalsHandler != nil {
			r.Route("/journals", params.JournalsHandler.MountRoutes)
		}
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
	})

	if params.LedgerHandler != nil {
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
	}
	if params.ReturnsHandler != nil {
		r.Route("/returns", params.ReturnsHandler.MountRoutes)
	}
	if params.StudioHandler != nil {
		r.Route("/studio", params.StudioHandler.MountRoutes)
	}
	if params.CompaniesHandler != nil {
		r.Route("/masterdata/companies", params.CompaniesHandler.MountRoutes)
	}
	if params.BranchesHandler != nil {
		r.Route("/masterdata/branches", params.BranchesHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	// Operator surface: provisioning and integrity checks sit behind the
	// shared admin secret.
	adminSecret := ""
	if params.Config != nil {
		adminSecret = params.Config.AdminAPISecret
	}
	r.Group(func(r chi.Router) {
		r.Use(RequireAdminSecret(adminSecret, params.Logger))
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.VerifyHandler != nil {
			r.Route("/verify", params.VerifyHandler.MountRoutes)
		}
	})

	return r
}
