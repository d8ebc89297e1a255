package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler serves the ledger HTTP API.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{entityType}/{entityID}/statement", h.Statement)
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id is required")
		return
	}
	entityID, err := uuid.Parse(chi.URLParam(r, "entityID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entity id must be a UUID")
		return
	}
	q := StatementQuery{
		CompanyID:  companyID,
		EntityType: EntityType(chi.URLParam(r, "entityType")),
		EntityID:   entityID,
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		q.FromDate = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		q.ToDate = &t
	}
	statement, err := h.service.Statement(r.Context(), q)
	if err != nil {
		if errors.Is(err, ErrUnknownEntity) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("statement failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}
