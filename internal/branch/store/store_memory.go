// Package store persists branches.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"roster/internal/branch/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// InMemoryStore keeps branches in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	branches map[id.BranchID]*models.Branch
	nameIdx  map[string]id.BranchID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		branches: make(map[id.BranchID]*models.Branch),
		nameIdx:  make(map[string]id.BranchID),
	}
}

// Create inserts the branch if the name is not taken (case-insensitive).
func (s *InMemoryStore) Create(_ context.Context, b *models.Branch) error {
	if b == nil {
		return fmt.Errorf("branch is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(b.Name)
	if _, taken := s.nameIdx[lower]; taken {
		return fmt.Errorf("branch name must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	clone := *b
	s.branches[b.ID] = &clone
	s.nameIdx[lower] = b.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, branchID id.BranchID) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[branchID]
	if !ok {
		return nil, fmt.Errorf("branch not found: %w", sentinel.ErrNotFound)
	}
	clone := *b
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, b *models.Branch) error {
	if b == nil {
		return fmt.Errorf("branch is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.branches[b.ID]
	if !ok {
		return fmt.Errorf("branch not found: %w", sentinel.ErrNotFound)
	}
	oldLower := strings.ToLower(existing.Name)
	newLower := strings.ToLower(b.Name)
	if oldLower != newLower {
		if _, taken := s.nameIdx[newLower]; taken {
			return fmt.Errorf("branch name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		delete(s.nameIdx, oldLower)
		s.nameIdx[newLower] = b.ID
	}
	clone := *b
	s.branches[b.ID] = &clone
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, branchID id.BranchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[branchID]
	if !ok {
		return fmt.Errorf("branch not found: %w", sentinel.ErrNotFound)
	}
	delete(s.nameIdx, strings.ToLower(b.Name))
	delete(s.branches, branchID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]*models.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		clone := *b
		branches = append(branches, &clone)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}
