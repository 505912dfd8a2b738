// Package handler serves the branch endpoints. Mutating routes are mounted
// behind the Admin role guard by the router.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roster/internal/branch/models"
	"roster/internal/platform/middleware"
	jsonResponse "roster/internal/transport/http/json"
	httpError "roster/internal/transport/http/shared"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Service defines the branch operations the handler needs.
type Service interface {
	Create(ctx context.Context, req *models.CreateBranchRequest) (*models.BranchView, error)
	Get(ctx context.Context, branchID id.BranchID) (*models.BranchView, error)
	Update(ctx context.Context, branchID id.BranchID, req *models.UpdateBranchRequest) (*models.BranchView, error)
	Delete(ctx context.Context, branchID id.BranchID) error
	List(ctx context.Context) ([]models.BranchView, error)
}

type Handler struct {
	branches Service
	logger   *slog.Logger
}

func New(branches Service, logger *slog.Logger) *Handler {
	return &Handler{branches: branches, logger: logger}
}

// Register wires the read-only branch routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/branches", h.HandleList)
	r.Get("/branches/{branch_id}", h.HandleGet)
}

// RegisterAdmin wires the mutating branch routes; the caller applies the
// role guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/branches", h.HandleCreate)
	r.Patch("/branches/{branch_id}", h.HandleUpdate)
	r.Delete("/branches/{branch_id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.branches.List(ctx)
	if err != nil {
		h.logError(ctx, "failed to list branches", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Branches retrieved successfully", views)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	branchID, err := id.ParseBranchID(chi.URLParam(r, "branch_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	view, err := h.branches.Get(ctx, branchID)
	if err != nil {
		h.logError(ctx, "failed to fetch branch", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Branch retrieved successfully", view)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	view, err := h.branches.Create(ctx, &req)
	if err != nil {
		h.logError(ctx, "failed to create branch", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, "Branch created successfully", view)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	branchID, err := id.ParseBranchID(chi.URLParam(r, "branch_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	var req models.UpdateBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	view, err := h.branches.Update(ctx, branchID, &req)
	if err != nil {
		h.logError(ctx, "failed to update branch", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Branch updated successfully", view)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	branchID, err := id.ParseBranchID(chi.URLParam(r, "branch_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	if err := h.branches.Delete(ctx, branchID); err != nil {
		h.logError(ctx, "failed to delete branch", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Branch deleted successfully", nil)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
}
