package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/accounting/shared"
	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler serves the journal HTTP API.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Post)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/reverse", h.Reverse)
}

type postLineRequest struct {
	AccountID   int64   `json:"account_id" validate:"required,gt=0"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`
	Description string  `json:"description"`
}

type postRequest struct {
	CompanyID   int64             `json:"company_id" validate:"required,gt=0"`
	BranchID    *int64            `json:"branch_id"`
	EntryDate   string            `json:"entry_date" validate:"required"`
	Description string            `json:"description"`
	Kind        string            `json:"kind" validate:"required"`
	ReferenceID string            `json:"reference_id" validate:"required,uuid"`
	PaymentID   *string           `json:"payment_id"`
	Lines       []postLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry_date must be YYYY-MM-DD")
		return
	}
	refID, err := uuid.Parse(req.ReferenceID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference_id must be a UUID")
		return
	}
	input := PostingInput{
		CompanyID:   req.CompanyID,
		BranchID:    req.BranchID,
		EntryDate:   entryDate,
		Description: req.Description,
		Kind:        EntryKind(req.Kind),
		ReferenceID: refID,
		Lines:       make([]PostingLineInput, 0, len(req.Lines)),
	}
	if req.PaymentID != nil {
		paymentID, err := uuid.Parse(*req.PaymentID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_id must be a UUID")
			return
		}
		input.PaymentID = &paymentID
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	entry, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, _ := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	filter := ListFilter{CompanyID: companyID, Limit: 200}
	if v := r.URL.Query().Get("branch_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.BranchID = &id
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.FromDate = &t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.ToDate = &t
		}
	}
	if v := r.URL.Query().Get("kind"); v != "" {
		filter.Kind = EntryKind(v)
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be numeric")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be numeric")
		return
	}
	var req struct {
		Memo string `json:"memo"`
	}
	_ = httpx.DecodeJSON(r, &req)
	entry, err := h.service.Reverse(r.Context(), ReverseInput{EntryID: id, Memo: req.Memo})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrJournalNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrSourceAlreadyLinked):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrBothSides),
		errors.Is(err, shared.ErrReceivableRule),
		errors.Is(err, shared.ErrAccountNotConfigured):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("journal request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
