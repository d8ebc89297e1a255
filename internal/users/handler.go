package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler serves user provisioning. Mounted behind the admin guard.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/provision", h.Provision)
}

type provisionRequest struct {
	CompanyID  int64   `json:"company_id" validate:"required,gt=0"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8"`
	FullName   string  `json:"full_name" validate:"required"`
	Role       string  `json:"role" validate:"required,oneof=admin manager staff"`
	BranchIDs  []int64 `json:"branch_ids"`
	AccountIDs []int64 `json:"account_ids"`
}

func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Provision(r.Context(), ProvisionInput{
		CompanyID:  req.CompanyID,
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Role:       req.Role,
		BranchIDs:  req.BranchIDs,
		AccountIDs: req.AccountIDs,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "a user with this email already exists")
			return
		}
		h.logger.Error("provisioning failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}
