// Package service implements standalone profile management and the photo
// object lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"roster/internal/audit"
	"roster/internal/platform/metrics"
	"roster/internal/platform/middleware"
	"roster/internal/platform/objectstore"
	"roster/internal/profile/models"
	"roster/internal/profile/store"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	s "roster/pkg/string"
	"roster/pkg/validation"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	List(ctx context.Context, params store.ListParams) ([]*models.Profile, error)
	Count(ctx context.Context) (int, error)
}

// Config bounds list pagination and photo uploads.
type Config struct {
	PhotoBucket     string
	MaxPhotoBytes   int64
	DefaultPageSize int
	MaxPageSize     int
}

type Service struct {
	store   Store
	objects objectstore.Store
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
}

func New(st Store, objects objectstore.Store, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		store:   st,
		objects: objects,
		audit:   auditor,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

func (svc *Service) Create(ctx context.Context, payload *models.ProfilePayload) (*models.ProfileView, error) {
	trimPayload(payload)
	if err := validation.Validate(payload); err != nil {
		return nil, err
	}

	p, err := models.FromPayload(payload, time.Now())
	if err != nil {
		return nil, err
	}
	if err := svc.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Profile email is already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}

	if svc.metrics != nil {
		svc.metrics.IncrementProfilesCreated()
	}
	svc.emit(ctx, audit.ActionProfileCreated, p.ID, nil)
	view := p.View()
	return &view, nil
}

func (svc *Service) Get(ctx context.Context, profileID id.ProfileID) (*models.ProfileView, error) {
	p, err := svc.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	view := p.View()
	return &view, nil
}

func (svc *Service) Update(ctx context.Context, profileID id.ProfileID, payload *models.UpdateProfilePayload) (*models.ProfileView, error) {
	if err := validation.Validate(payload); err != nil {
		return nil, err
	}
	if payload.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "update contains no fields")
	}

	p, err := svc.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := p.ApplyUpdate(payload, time.Now()); err != nil {
		return nil, err
	}
	if err := svc.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Profile email is already in use")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	svc.emit(ctx, audit.ActionProfileUpdated, p.ID, nil)
	view := p.View()
	return &view, nil
}

// ListProfilesData is the paginated list payload.
type ListProfilesData struct {
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	Profiles []models.ProfileView `json:"profiles"`
}

func (svc *Service) List(ctx context.Context, lq ListQuery) (*ListProfilesData, error) {
	var (
		profiles []*models.Profile
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = svc.store.List(gctx, lq.Params)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = svc.store.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}

	views := make([]models.ProfileView, 0, len(profiles))
	for _, p := range profiles {
		view := p.View()
		applySelect(&view, lq.Select)
		views = append(views, view)
	}
	return &ListProfilesData{
		Total:    total,
		Page:     lq.Params.Page,
		PageSize: len(views),
		Profiles: views,
	}, nil
}

// Photo carries an uploaded or streamed photo.
type Photo struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// UploadPhoto stores the new object first, then swaps the reference, then
// removes the superseded object best-effort. A failed removal only leaks an
// orphan object, never a broken reference.
func (svc *Service) UploadPhoto(ctx context.Context, profileID id.ProfileID, name, contentType string, size int64, body io.Reader) (*models.ProfileView, error) {
	if size > svc.cfg.MaxPhotoBytes {
		return nil, dErrors.New(dErrors.CodePayloadTooLarge,
			fmt.Sprintf("Photo exceeds the maximum allowed size of %d bytes", svc.cfg.MaxPhotoBytes))
	}
	name = sanitizeFileName(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "photo file name is required")
	}

	p, err := svc.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	oldKey := p.PhotoKey

	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name)
	if err := svc.objects.Put(ctx, svc.cfg.PhotoBucket, key, contentType, body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store photo")
	}

	p.PhotoBucket = svc.cfg.PhotoBucket
	p.PhotoKey = key
	p.PhotoName = name
	p.PhotoContentType = contentType
	p.UpdatedAt = time.Now()
	if err := svc.store.Update(ctx, p); err != nil {
		// Roll back the orphaned object; the reference never changed.
		if removeErr := svc.objects.Remove(ctx, svc.cfg.PhotoBucket, key); removeErr != nil {
			svc.logger.WarnContext(ctx, "failed to remove orphaned photo object",
				"error", removeErr, "bucket", svc.cfg.PhotoBucket, "key", key)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile photo reference")
	}

	if oldKey != "" && oldKey != key {
		if err := svc.objects.Remove(ctx, svc.cfg.PhotoBucket, oldKey); err != nil {
			svc.logger.WarnContext(ctx, "failed to remove superseded photo object",
				"error", err, "bucket", svc.cfg.PhotoBucket, "key", oldKey)
		}
	}

	if svc.metrics != nil {
		svc.metrics.IncrementPhotoUploads()
	}
	svc.emit(ctx, audit.ActionPhotoUploaded, p.ID, map[string]string{"fileName": name})
	view := p.View()
	return &view, nil
}

// OpenPhoto returns the stored photo for streaming. The caller owns Body.
func (svc *Service) OpenPhoto(ctx context.Context, profileID id.ProfileID) (*Photo, error) {
	p, err := svc.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !p.HasPhoto() {
		return nil, dErrors.New(dErrors.CodeNotFound, "Profile has no photo")
	}
	obj, err := svc.objects.Get(ctx, p.PhotoBucket, p.PhotoKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Photo object not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch photo")
	}
	contentType := p.PhotoContentType
	if contentType == "" {
		contentType = obj.ContentType
	}
	return &Photo{
		Name:        p.PhotoName,
		ContentType: contentType,
		Size:        obj.Size,
		Body:        obj.Body,
	}, nil
}

func (svc *Service) findProfile(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	p, err := svc.store.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}
	return p, nil
}

func (svc *Service) emit(ctx context.Context, action audit.Action, profileID id.ProfileID, detail map[string]string) {
	if svc.audit == nil {
		return
	}
	if err := svc.audit.Emit(ctx, audit.Event{
		ActorID:  middleware.GetUserID(ctx),
		Action:   action,
		Entity:   "profile",
		EntityID: profileID.String(),
		Detail:   detail,
	}); err != nil {
		svc.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}

// ListQuery is the parsed form of the profile list parameters.
type ListQuery struct {
	Params store.ListParams
	Select map[string]bool
}

var selectableFields = map[string]bool{
	"firstName":       true,
	"lastName":        true,
	"gender":          true,
	"dateOfBirth":     true,
	"maritalStatus":   true,
	"occupation":      true,
	"address":         true,
	"phoneNumber":     true,
	"email":           true,
	"identifications": true,
	"photoName":       true,
	"createdAt":       true,
	"updatedAt":       true,
}

// ParseListQuery validates the list parameters. Unknown sort or select
// fields are rejected; junk paging values fall back to the defaults.
func (svc *Service) ParseListQuery(values url.Values) (ListQuery, error) {
	lq := ListQuery{
		Params: store.ListParams{
			Page:  positiveInt(values.Get("page"), 1),
			Limit: positiveInt(values.Get("limit"), svc.cfg.DefaultPageSize),
			Sort:  store.SortCreatedAt,
			Desc:  true,
		},
	}
	if lq.Params.Limit > svc.cfg.MaxPageSize {
		lq.Params.Limit = svc.cfg.MaxPageSize
	}

	if raw := values.Get("sort"); raw != "" {
		field, direction, _ := strings.Cut(raw, ":")
		key, ok := store.ParseSortKey(strings.TrimSpace(field))
		if !ok {
			return ListQuery{}, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("unsupported sort field: %s", strings.TrimSpace(field)))
		}
		lq.Params.Sort = key
		lq.Params.Desc = !strings.EqualFold(strings.TrimSpace(direction), "asc")
	}

	if raw := values.Get("select"); raw != "" {
		lq.Select = make(map[string]bool)
		for _, field := range s.SplitCSV(raw) {
			if !selectableFields[field] {
				return ListQuery{}, dErrors.New(dErrors.CodeValidation,
					fmt.Sprintf("unsupported select field: %s", field))
			}
			lq.Select[field] = true
		}
	}
	return lq, nil
}

// applySelect zeroes the fields outside the mask. The ID and the photo flag
// always remain.
func applySelect(view *models.ProfileView, selected map[string]bool) {
	if len(selected) == 0 {
		return
	}
	if !selected["firstName"] {
		view.FirstName = ""
	}
	if !selected["lastName"] {
		view.LastName = ""
	}
	if !selected["gender"] {
		view.Gender = ""
	}
	if !selected["dateOfBirth"] {
		view.DateOfBirth = nil
	}
	if !selected["maritalStatus"] {
		view.MaritalStatus = ""
	}
	if !selected["occupation"] {
		view.Occupation = ""
	}
	if !selected["address"] {
		view.Address = ""
	}
	if !selected["phoneNumber"] {
		view.PhoneNumber = ""
	}
	if !selected["email"] {
		view.Email = ""
	}
	if !selected["identifications"] {
		view.Identifications = nil
	}
	if !selected["photoName"] {
		view.PhotoName = ""
	}
	if !selected["createdAt"] {
		view.CreatedAt = nil
	}
	if !selected["updatedAt"] {
		view.UpdatedAt = nil
	}
}

func trimPayload(payload *models.ProfilePayload) {
	s.TrimStrings(&payload.FirstName, &payload.LastName, &payload.Occupation,
		&payload.Address, &payload.PhoneNumber, &payload.Email)
	for i := range payload.Identifications {
		s.TrimStrings(&payload.Identifications[i].CardType, &payload.Identifications[i].CardCode)
	}
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// sanitizeFileName strips any path components from a client-supplied name.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}
