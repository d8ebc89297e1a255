package verify

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler exposes verification runs to operators. Mounted behind the admin
// guard; checks are read-only but the report leaks account structure.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches verify routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Run)
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return
	}
	var checks []CheckName
	if v := r.URL.Query().Get("checks"); v != "" {
		for _, name := range strings.Split(v, ",") {
			checks = append(checks, CheckName(strings.TrimSpace(name)))
		}
	}
	report, err := h.service.Run(r.Context(), companyID, checks)
	if err != nil {
		if errors.Is(err, ErrUnknownCheck) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("verification run failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
