// Package handler serves the user and authentication endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"roster/internal/identity/device"
	"roster/internal/identity/models"
	"roster/internal/identity/query"
	"roster/internal/platform/middleware"
	jsonResponse "roster/internal/transport/http/json"
	httpError "roster/internal/transport/http/shared"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Service defines the identity operations the handler needs.
type Service interface {
	Create(ctx context.Context, req *models.CreateUserRequest, allowRoles bool, deviceName string) (*models.CreatedUserData, error)
	List(ctx context.Context, q *query.ListQuery) (*models.ListUsersData, error)
	Get(ctx context.Context, userID id.UserID) (*models.UserView, error)
	Update(ctx context.Context, userID id.UserID, req *models.UpdateUserRequest) (*models.UserView, error)
	Delete(ctx context.Context, userID id.UserID, mode models.DeleteMode) error
	ProfileOverview(ctx context.Context, profileID id.ProfileID) (*models.ProfileOverview, error)
	Limits() query.Limits

	Login(ctx context.Context, req *models.LoginRequest, deviceName string) (*models.TokenData, error)
	Refresh(ctx context.Context, req *models.RefreshRequest, deviceName string) (*models.TokenData, error)
	Logout(ctx context.Context, accessToken string, req *models.LogoutRequest) error
}

type Handler struct {
	identity Service
	logger   *slog.Logger
}

func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, logger: logger}
}

// Register wires the user routes onto an authenticated router group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users", h.HandleCreate)
	r.Get("/users", h.HandleList)
	r.Get("/users/profile/{profile_id}", h.HandleProfileOverview)
	r.Get("/users/{user_id}", h.HandleGet)
	r.Patch("/users/{user_id}", h.HandleUpdate)
	r.Delete("/users/{user_id}", h.HandleDelete)
}

// RegisterAuth wires the public authentication routes.
func (h *Handler) RegisterAuth(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/refresh", h.HandleRefresh)
	r.Post("/auth/logout", h.HandleLogout)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	allowRoles := r.URL.Query().Get("allowRoles") == "true"

	data, err := h.identity.Create(ctx, &req, allowRoles, device.DisplayName(r.UserAgent()))
	if err != nil {
		h.logError(ctx, "failed to create user", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, "User created successfully", data)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := query.Parse(r.URL.Query(), h.identity.Limits())
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	data, err := h.identity.List(ctx, q)
	if err != nil {
		h.logError(ctx, "failed to list users", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Users retrieved successfully", data)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	view, err := h.identity.Get(ctx, userID)
	if err != nil {
		h.logError(ctx, "failed to fetch user", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "User retrieved successfully", view)
}

func (h *Handler) HandleProfileOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profile_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	overview, err := h.identity.ProfileOverview(ctx, profileID)
	if err != nil {
		h.logError(ctx, "failed to fetch profile overview", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Profile retrieved successfully", overview)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	view, err := h.identity.Update(ctx, userID, &req)
	if err != nil {
		h.logError(ctx, "failed to update user", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "User updated successfully", view)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	mode, ok := models.ParseDeleteMode(r.URL.Query().Get("mode"))
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid delete mode, expected soft or hard"))
		return
	}
	if err := h.identity.Delete(ctx, userID, mode); err != nil {
		h.logError(ctx, "failed to delete user", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	data, err := h.identity.Login(ctx, &req, device.DisplayName(r.UserAgent()))
	if err != nil {
		h.logError(ctx, "login failed", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Login successful", data)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	data, err := h.identity.Refresh(ctx, &req, device.DisplayName(r.UserAgent()))
	if err != nil {
		h.logError(ctx, "token refresh failed", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Token refreshed successfully", data)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accessToken := bearerToken(r)
	if accessToken == "" {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authorization header with Bearer token required"))
		return
	}
	var req models.LogoutRequest
	if r.Body != nil {
		// The refresh token is optional; an empty or malformed body only
		// skips its consumption.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.identity.Logout(ctx, accessToken, &req); err != nil {
		h.logError(ctx, "logout failed", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Logged out successfully", nil)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
}
