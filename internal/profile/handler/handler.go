// Package handler serves the profile endpoints, including the self-service
// /me routes for the authenticated account.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"roster/internal/platform/middleware"
	"roster/internal/profile/models"
	"roster/internal/profile/service"
	jsonResponse "roster/internal/transport/http/json"
	httpError "roster/internal/transport/http/shared"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Service defines the profile operations the handler needs.
type Service interface {
	Create(ctx context.Context, payload *models.ProfilePayload) (*models.ProfileView, error)
	Get(ctx context.Context, profileID id.ProfileID) (*models.ProfileView, error)
	Update(ctx context.Context, profileID id.ProfileID, payload *models.UpdateProfilePayload) (*models.ProfileView, error)
	List(ctx context.Context, lq service.ListQuery) (*service.ListProfilesData, error)
	ParseListQuery(values url.Values) (service.ListQuery, error)
	UploadPhoto(ctx context.Context, profileID id.ProfileID, name, contentType string, size int64, body io.Reader) (*models.ProfileView, error)
	OpenPhoto(ctx context.Context, profileID id.ProfileID) (*service.Photo, error)
}

// Locator resolves the profile attached to an authenticated account.
type Locator interface {
	ProfileIDForUser(ctx context.Context, userID string) (id.ProfileID, error)
}

type Handler struct {
	profiles      Service
	locator       Locator
	logger        *slog.Logger
	maxPhotoBytes int64
}

func New(profiles Service, locator Locator, logger *slog.Logger, maxPhotoBytes int64) *Handler {
	return &Handler{
		profiles:      profiles,
		locator:       locator,
		logger:        logger,
		maxPhotoBytes: maxPhotoBytes,
	}
}

// Register wires the profile routes onto an authenticated router group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/profiles", h.HandleCreate)
	r.Get("/profiles", h.HandleList)
	r.Get("/profiles/{profile_id}", h.HandleGet)
	r.Patch("/profiles/{profile_id}", h.HandleUpdate)

	r.Patch("/me/profile", h.HandleUpdateMine)
	r.Put("/me/photo", h.HandleUploadMyPhoto)
	r.Get("/me/photo", h.HandleFetchMyPhoto)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload models.ProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	view, err := h.profiles.Create(ctx, &payload)
	if err != nil {
		h.logError(ctx, "failed to create profile", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, "Profile created successfully", view)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lq, err := h.profiles.ParseListQuery(r.URL.Query())
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	data, err := h.profiles.List(ctx, lq)
	if err != nil {
		h.logError(ctx, "failed to list profiles", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Profiles retrieved successfully", data)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profile_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	view, err := h.profiles.Get(ctx, profileID)
	if err != nil {
		h.logError(ctx, "failed to fetch profile", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Profile retrieved successfully", view)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profile_id"))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	h.update(w, r, profileID)
}

func (h *Handler) HandleUpdateMine(w http.ResponseWriter, r *http.Request) {
	profileID, ok := h.myProfileID(w, r)
	if !ok {
		return
	}
	h.update(w, r, profileID)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, profileID id.ProfileID) {
	ctx := r.Context()
	var payload models.UpdateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	view, err := h.profiles.Update(ctx, profileID, &payload)
	if err != nil {
		h.logError(ctx, "failed to update profile", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Profile updated successfully", view)
}

func (h *Handler) HandleUploadMyPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.myProfileID(w, r)
	if !ok {
		return
	}

	// Hard cap on the whole request body; the form overhead rides on top of
	// the photo limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPhotoBytes+64*1024)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httpError.WriteError(w, dErrors.New(dErrors.CodePayloadTooLarge,
				fmt.Sprintf("Photo exceeds the maximum allowed size of %d bytes", h.maxPhotoBytes)))
			return
		}
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Multipart form field 'file' is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	view, err := h.profiles.UploadPhoto(ctx, profileID, header.Filename,
		header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		h.logError(ctx, "failed to upload photo", err)
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, "Photo uploaded successfully", view)
}

func (h *Handler) HandleFetchMyPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.myProfileID(w, r)
	if !ok {
		return
	}
	photo, err := h.profiles.OpenPhoto(ctx, profileID)
	if err != nil {
		h.logError(ctx, "failed to fetch photo", err)
		httpError.WriteError(w, err)
		return
	}
	defer photo.Body.Close() //nolint:errcheck

	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", photo.Name))
	w.Header().Set("Cache-Control", "no-store")
	if photo.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", photo.Size))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, photo.Body); err != nil {
		h.logError(ctx, "failed to stream photo", err)
	}
}

func (h *Handler) myProfileID(w http.ResponseWriter, r *http.Request) (id.ProfileID, bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
		return id.ProfileID{}, false
	}
	profileID, err := h.locator.ProfileIDForUser(ctx, userID)
	if err != nil {
		h.logError(ctx, "failed to resolve own profile", err)
		httpError.WriteError(w, err)
		return id.ProfileID{}, false
	}
	return profileID, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
}
