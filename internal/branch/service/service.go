// Package service implements branch management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"roster/internal/audit"
	"roster/internal/branch/models"
	"roster/internal/platform/middleware"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	s "roster/pkg/string"
	"roster/pkg/validation"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, b *models.Branch) error
	FindByID(ctx context.Context, branchID id.BranchID) (*models.Branch, error)
	Update(ctx context.Context, b *models.Branch) error
	Delete(ctx context.Context, branchID id.BranchID) error
	List(ctx context.Context) ([]*models.Branch, error)
}

type Service struct {
	store  Store
	audit  *audit.Publisher
	logger *slog.Logger
}

func New(store Store, auditor *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditor, logger: logger}
}

func (svc *Service) Create(ctx context.Context, req *models.CreateBranchRequest) (*models.BranchView, error) {
	s.TrimStrings(&req.Name, &req.Code, &req.Address, &req.Phone)
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	b := &models.Branch{
		ID:        id.BranchID(uuid.New()),
		Name:      req.Name,
		Code:      req.Code,
		Address:   req.Address,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.store.Create(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Branch name is already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create branch")
	}

	svc.emit(ctx, audit.ActionBranchCreated, b.ID)
	view := b.View()
	return &view, nil
}

func (svc *Service) Get(ctx context.Context, branchID id.BranchID) (*models.BranchView, error) {
	b, err := svc.store.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Branch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch branch")
	}
	view := b.View()
	return &view, nil
}

func (svc *Service) Update(ctx context.Context, branchID id.BranchID, req *models.UpdateBranchRequest) (*models.BranchView, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "update contains no fields")
	}

	b, err := svc.store.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Branch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch branch")
	}

	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Code != nil {
		b.Code = *req.Code
	}
	if req.Address != nil {
		b.Address = *req.Address
	}
	if req.Phone != nil {
		b.Phone = *req.Phone
	}
	b.UpdatedAt = time.Now()

	if err := svc.store.Update(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Branch name is already in use")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Branch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update branch")
	}

	svc.emit(ctx, audit.ActionBranchUpdated, b.ID)
	view := b.View()
	return &view, nil
}

func (svc *Service) Delete(ctx context.Context, branchID id.BranchID) error {
	if err := svc.store.Delete(ctx, branchID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Branch not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete branch")
	}
	svc.emit(ctx, audit.ActionBranchDeleted, branchID)
	return nil
}

func (svc *Service) List(ctx context.Context) ([]models.BranchView, error) {
	branches, err := svc.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list branches")
	}
	views := make([]models.BranchView, 0, len(branches))
	for _, b := range branches {
		views = append(views, b.View())
	}
	return views, nil
}

func (svc *Service) emit(ctx context.Context, action audit.Action, branchID id.BranchID) {
	if svc.audit == nil {
		return
	}
	if err := svc.audit.Emit(ctx, audit.Event{
		ActorID:  middleware.GetUserID(ctx),
		Action:   action,
		Entity:   "branch",
		EntityID: branchID.String(),
	}); err != nil {
		svc.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}
