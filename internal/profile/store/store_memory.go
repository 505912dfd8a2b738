// Package store persists profile records. Email uniqueness (when present)
// is a store-level guarantee; service prechecks are advisory only.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// SortKey enumerates the sortable profile list fields.
type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortFirstName SortKey = "firstName"
	SortLastName  SortKey = "lastName"
	SortEmail     SortKey = "email"
)

// ParseSortKey validates a caller-supplied sort field against the
// allow-list.
func ParseSortKey(raw string) (SortKey, bool) {
	switch SortKey(raw) {
	case SortCreatedAt, SortFirstName, SortLastName, SortEmail:
		return SortKey(raw), true
	}
	return "", false
}

// ListParams pages and orders the profile list.
type ListParams struct {
	Page  int
	Limit int
	Sort  SortKey
	Desc  bool
}

// InMemoryStore keeps profiles in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]*models.Profile
	emailIdx map[string]id.ProfileID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[id.ProfileID]*models.Profile),
		emailIdx: make(map[string]id.ProfileID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Email != "" {
		if _, taken := s.emailIdx[strings.ToLower(p.Email)]; taken {
			return fmt.Errorf("profile email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
	}
	clone := cloneProfile(p)
	s.profiles[p.ID] = clone
	if p.Email != "" {
		s.emailIdx[strings.ToLower(p.Email)] = p.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return cloneProfile(p), nil
}

func (s *InMemoryStore) Update(_ context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[p.ID]
	if !ok {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	oldEmail := strings.ToLower(existing.Email)
	newEmail := strings.ToLower(p.Email)
	if newEmail != "" && newEmail != oldEmail {
		if _, taken := s.emailIdx[newEmail]; taken {
			return fmt.Errorf("profile email must be unique: %w", sentinel.ErrAlreadyUsed)
		}
	}
	if oldEmail != "" {
		delete(s.emailIdx, oldEmail)
	}
	s.profiles[p.ID] = cloneProfile(p)
	if newEmail != "" {
		s.emailIdx[newEmail] = p.ID
	}
	return nil
}

func (s *InMemoryStore) List(_ context.Context, params ListParams) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sortProfiles(profiles, params.Sort, params.Desc)

	start := (params.Page - 1) * params.Limit
	if start >= len(profiles) {
		return []*models.Profile{}, nil
	}
	end := start + params.Limit
	if end > len(profiles) {
		end = len(profiles)
	}

	page := make([]*models.Profile, 0, end-start)
	for _, p := range profiles[start:end] {
		page = append(page, cloneProfile(p))
	}
	return page, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

func sortProfiles(profiles []*models.Profile, key SortKey, desc bool) {
	less := func(a, b *models.Profile) int {
		switch key {
		case SortFirstName:
			return strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName))
		case SortLastName:
			return strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName))
		case SortEmail:
			return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		cmp := less(profiles[i], profiles[j])
		if cmp == 0 {
			return profiles[i].ID.String() < profiles[j].ID.String()
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func cloneProfile(p *models.Profile) *models.Profile {
	clone := *p
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		clone.DateOfBirth = &dob
	}
	clone.Identifications = append([]models.Identification(nil), p.Identifications...)
	return &clone
}
