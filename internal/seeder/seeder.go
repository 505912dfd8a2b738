// Package seeder bootstraps the records the service cannot run without:
// the well-known roles and, optionally, an initial admin account.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	identitymodels "roster/internal/identity/models"
	profilemodels "roster/internal/profile/models"
	rolemodels "roster/internal/role/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	"roster/pkg/secrets"
)

// AdminRoleName is created alongside the default role so the branch admin
// routes are grantable out of the box.
const AdminRoleName = "Admin"

type RoleStore interface {
	Create(ctx context.Context, role *rolemodels.Role) error
	FindByName(ctx context.Context, name string) (*rolemodels.Role, error)
}

type UserStore interface {
	Create(ctx context.Context, u *identitymodels.User) error
	FindByUsername(ctx context.Context, username string) (*identitymodels.User, error)
}

type ProfileStore interface {
	Create(ctx context.Context, p *profilemodels.Profile) error
}

// Admin describes the bootstrap account. An empty username disables it.
type Admin struct {
	Username string
	Password string
}

type Seeder struct {
	roles    RoleStore
	users    UserStore
	profiles ProfileStore
	logger   *slog.Logger
}

func New(roles RoleStore, users UserStore, profiles ProfileStore, logger *slog.Logger) *Seeder {
	return &Seeder{roles: roles, users: users, profiles: profiles, logger: logger}
}

// Seed ensures the well-known roles exist and creates the bootstrap admin
// when configured and absent. It is idempotent across restarts.
func (s *Seeder) Seed(ctx context.Context, admin Admin) error {
	defaultRole, err := s.ensureRole(ctx, rolemodels.DefaultRoleName, "Default role for new accounts")
	if err != nil {
		return err
	}
	adminRole, err := s.ensureRole(ctx, AdminRoleName, "Full administrative access")
	if err != nil {
		return err
	}

	if admin.Username == "" {
		return nil
	}
	if admin.Password == "" {
		return fmt.Errorf("bootstrap admin %q configured without a password", admin.Username)
	}
	return s.ensureAdmin(ctx, admin, []id.RoleID{defaultRole.ID, adminRole.ID})
}

func (s *Seeder) ensureRole(ctx context.Context, name, description string) (*rolemodels.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("look up role %q: %w", name, err)
	}

	role = &rolemodels.Role{
		ID:          id.RoleID(uuid.New()),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.roles.Create(ctx, role); err != nil {
		// Another replica may have won the race.
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return s.roles.FindByName(ctx, name)
		}
		return nil, fmt.Errorf("create role %q: %w", name, err)
	}
	s.logger.Info("seeded role", "name", name)
	return role, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, admin Admin, roleIDs []id.RoleID) error {
	if _, err := s.users.FindByUsername(ctx, admin.Username); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("look up admin account: %w", err)
	}

	hash, err := secrets.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now()
	profile := &profilemodels.Profile{
		ID:        id.ProfileID(uuid.New()),
		FirstName: "Administrator",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return fmt.Errorf("create admin profile: %w", err)
	}

	if err := s.users.Create(ctx, &identitymodels.User{
		ID:           id.UserID(uuid.New()),
		Username:     admin.Username,
		PasswordHash: hash,
		FullName:     "Administrator",
		ProfileID:    profile.ID,
		RoleIDs:      roleIDs,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil
		}
		return fmt.Errorf("create admin account: %w", err)
	}
	s.logger.Info("seeded bootstrap admin account", "username", admin.Username)
	return nil
}
