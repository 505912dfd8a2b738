// Package store persists roles.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"roster/internal/role/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// InMemoryStore keeps roles in memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	roles map[id.RoleID]*models.Role
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{roles: make(map[id.RoleID]*models.Role)}
}

// Create inserts a role if the name is free (case-insensitive).
func (s *InMemoryStore) Create(_ context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return fmt.Errorf("role name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
	}
	clone := *role
	s.roles[role.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, roleID id.RoleID) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
	}
	clone := *role
	return &clone, nil
}

// FindByIDs resolves the given IDs; any absent ID is an error so callers
// can reject unknown role references outright.
func (s *InMemoryStore) FindByIDs(_ context.Context, ids []id.RoleID) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]*models.Role, 0, len(ids))
	for _, roleID := range ids {
		role, ok := s.roles[roleID]
		if !ok {
			return nil, fmt.Errorf("role %s not found: %w", roleID, sentinel.ErrNotFound)
		}
		clone := *role
		roles = append(roles, &clone)
	}
	return roles, nil
}

// FindByName resolves a role by name, case-insensitive. Used for the
// default role lookup.
func (s *InMemoryStore) FindByName(_ context.Context, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range s.roles {
		if strings.EqualFold(role.Name, name) {
			clone := *role
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]*models.Role, 0, len(s.roles))
	for _, role := range s.roles {
		clone := *role
		roles = append(roles, &clone)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}
