package returns

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler serves the returns HTTP API.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches return routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/credit-notes", h.CreateCreditNote)
	r.Post("/refunds", h.CreateRefund)
}

type creditNoteRequest struct {
	CompanyID  int64   `json:"company_id" validate:"required,gt=0"`
	BranchID   *int64  `json:"branch_id"`
	SaleID     string  `json:"sale_id" validate:"required,uuid"`
	CustomerID string  `json:"customer_id" validate:"required,uuid"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Reason     string  `json:"reason"`
}

func (h *Handler) CreateCreditNote(w http.ResponseWriter, r *http.Request) {
	var req creditNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	saleID, _ := uuid.Parse(req.SaleID)
	customerID, _ := uuid.Parse(req.CustomerID)
	note, err := h.service.CreateCreditNote(r.Context(), CreditNoteInput{
		CompanyID:  req.CompanyID,
		BranchID:   req.BranchID,
		SaleID:     saleID,
		CustomerID: customerID,
		Amount:     req.Amount,
		Reason:     req.Reason,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

type refundRequest struct {
	CompanyID  int64   `json:"company_id" validate:"required,gt=0"`
	BranchID   *int64  `json:"branch_id"`
	SaleID     string  `json:"sale_id" validate:"required,uuid"`
	CustomerID string  `json:"customer_id" validate:"required,uuid"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Method     string  `json:"method" validate:"required"`
}

func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	saleID, _ := uuid.Parse(req.SaleID)
	customerID, _ := uuid.Parse(req.CustomerID)
	refund, err := h.service.CreateRefund(r.Context(), RefundInput{
		CompanyID:  req.CompanyID,
		BranchID:   req.BranchID,
		SaleID:     saleID,
		CustomerID: customerID,
		Amount:     req.Amount,
		Method:     req.Method,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, refund)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSaleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCreditNoteExists), errors.Is(err, ErrRefundExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrSaleNotCancelled),
		errors.Is(err, ErrCreditNoteMissing),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, shared.ErrAccountNotConfigured):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("return request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
