// Package handler serves the role endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roster/internal/platform/middleware"
	"roster/internal/role/models"
	httpError "roster/internal/transport/http/shared"
	jsonResponse "roster/internal/transport/http/json"
)

// Service defines the role operations the handler needs.
type Service interface {
	List(ctx context.Context) ([]models.RoleView, error)
}

type Handler struct {
	roles  Service
	logger *slog.Logger
}

func New(roles Service, logger *slog.Logger) *Handler {
	return &Handler{roles: roles, logger: logger}
}

// Register wires the role routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/roles", h.HandleList)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.roles.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list roles",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Roles retrieved successfully", views)
}
