// Package service exposes role lookups.
package service

import (
	"context"
	"errors"
	"log/slog"

	"roster/internal/role/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error)
	FindByIDs(ctx context.Context, ids []id.RoleID) ([]*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
}

// Service answers role queries for handlers and the identity service.
type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]models.RoleView, error) {
	roles, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roles")
	}
	views := make([]models.RoleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, role.View())
	}
	return views, nil
}

// Default resolves the default role by its well-known name. A missing
// default role is a deployment error, not a client one.
func (s *Service) Default(ctx context.Context) (*models.Role, error) {
	role, err := s.store.FindByName(ctx, models.DefaultRoleName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInternal, "default user role not configured")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve default role")
	}
	return role, nil
}

// Resolve validates that every referenced role exists.
func (s *Service) Resolve(ctx context.Context, ids []id.RoleID) ([]*models.Role, error) {
	roles, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown role_id reference")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve roles")
	}
	return roles, nil
}
