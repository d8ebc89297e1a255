package studio

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler serves the studio HTTP API.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches studio routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/productions/{id}", h.GetProduction)
	r.Post("/stages/{id}/complete", h.CompleteStage)
	r.Post("/workers/{workerID}/pay", h.PayWorker)
}

func (h *Handler) GetProduction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	production, stages, err := h.service.GetProduction(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"production": production, "stages": stages})
}

func (h *Handler) CompleteStage(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	accrual, err := h.service.CompleteStage(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accrual)
}

func (h *Handler) PayWorker(w http.ResponseWriter, r *http.Request) {
	workerID, err := uuid.Parse(chi.URLParam(r, "workerID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "worker id must be a UUID")
		return
	}
	var req struct {
		CompanyID        int64  `json:"company_id"`
		PaymentReference string `json:"payment_reference"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	result, err := h.service.PayWorker(r.Context(), PaymentInput{
		CompanyID:        req.CompanyID,
		WorkerID:         workerID,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductionNotFound), errors.Is(err, ErrStageNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrStageCompleted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrStageUnassigned), errors.Is(err, ErrNothingToPay):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("studio request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
