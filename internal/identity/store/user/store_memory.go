package user

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
	profilemodels "roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

// RoleResolver returns expanded role references for the given IDs.
type RoleResolver func(ids []id.RoleID) []models.RoleRef

// BranchResolver returns the expanded branch reference, or nil.
type BranchResolver func(branchID id.BranchID) *models.BranchRef

// ProfileResolver returns the linked profile record, or nil.
type ProfileResolver func(profileID id.ProfileID) *profilemodels.Profile

// InMemoryStore keeps identity records in memory. Relation expansion is
// served by injected resolvers so the store composes with the role, branch,
// and profile memory stores without owning their data.
type InMemoryStore struct {
	mu          sync.RWMutex
	users       map[id.UserID]*models.User
	usernameIdx map[string]id.UserID // lower(username) → id, non-deleted only

	roles    RoleResolver
	branches BranchResolver
	profiles ProfileResolver
}

// NewInMemory creates an in-memory identity store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[id.UserID]*models.User),
		usernameIdx: make(map[string]id.UserID),
	}
}

// SetResolvers wires the relation lookups. Nil resolvers leave the matching
// relation unexpanded.
func (s *InMemoryStore) SetResolvers(roles RoleResolver, branches BranchResolver, profiles ProfileResolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = roles
	s.branches = branches
	s.profiles = profiles
}

// Create inserts the user if the username is free among non-deleted records
// (case-insensitive). Mirrors the partial unique index the Postgres store
// relies on.
func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(u.Username)
	if _, taken := s.usernameIdx[lower]; taken {
		return fmt.Errorf("username already taken: %w", sentinel.ErrAlreadyUsed)
	}
	clone := *u
	s.users[u.ID] = &clone
	s.usernameIdx[lower] = u.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

// FindByUsername resolves a non-deleted user by username, case-insensitive.
func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.usernameIdx[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	clone := *s.users[userID]
	return &clone, nil
}

// FindByProfileID resolves the identity linked to a profile, if any.
func (s *InMemoryStore) FindByProfileID(_ context.Context, profileID id.ProfileID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ProfileID == profileID && !u.Deleted {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// Update replaces the stored record. Username uniqueness is re-checked when
// it changes.
func (s *InMemoryStore) Update(_ context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	oldLower := strings.ToLower(existing.Username)
	newLower := strings.ToLower(u.Username)
	if oldLower != newLower {
		if _, taken := s.usernameIdx[newLower]; taken {
			return fmt.Errorf("username already taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	if !existing.Deleted {
		delete(s.usernameIdx, oldLower)
	}
	clone := *u
	s.users[u.ID] = &clone
	if !u.Deleted {
		s.usernameIdx[newLower] = u.ID
	}
	return nil
}

// Delete applies the consolidated deletion policy: hard removes the record,
// soft sets the tombstone and frees the username.
func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID, hard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if hard {
		if !u.Deleted {
			delete(s.usernameIdx, strings.ToLower(u.Username))
		}
		delete(s.users, userID)
		return nil
	}
	if u.Deleted {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	u.Deleted = true
	delete(s.usernameIdx, strings.ToLower(u.Username))
	return nil
}

// Count returns the number of users matching the top-level filter only; the
// profile-scoped predicates never participate.
func (s *InMemoryStore) Count(_ context.Context, f query.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, u := range s.users {
		if matchesTopLevel(u, f) {
			count++
		}
	}
	return count, nil
}

// List pages through users matching the top-level filter and resolves the
// requested relations. When the profile relation is expanded, the
// profile-scoped predicates act as a match condition on the expansion: a
// failing profile is attached as nil and left for the projector to drop.
// Pagination happens before that nulling, exactly like the original API.
func (s *InMemoryStore) List(_ context.Context, q *query.ListQuery) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if matchesTopLevel(u, q.Filter) {
			matched = append(matched, u)
		}
	}
	sortUsers(matched, q.Sort)

	start := (q.Page - 1) * q.Limit
	if start >= len(matched) {
		return []*models.Record{}, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	records := make([]*models.Record, 0, end-start)
	for _, u := range matched[start:end] {
		rec := &models.Record{User: *u}
		if q.Populate.Role && s.roles != nil {
			rec.Roles = s.roles(u.RoleIDs)
		}
		if q.Populate.Branch && s.branches != nil && !u.BranchID.IsNil() {
			rec.Branch = s.branches(u.BranchID)
		}
		if q.Populate.Profile && s.profiles != nil && !u.ProfileID.IsNil() {
			profile := s.profiles(u.ProfileID)
			if profile != nil && !q.Filter.Profile.Empty() && !q.Filter.Profile.Matches(profile) {
				profile = nil
			}
			rec.Profile = profile
		}
		records = append(records, rec)
	}
	return records, nil
}

func matchesTopLevel(u *models.User, f query.Filter) bool {
	if !f.IncludeDeleted && u.Deleted {
		return false
	}
	if f.BranchID != nil && u.BranchID != *f.BranchID {
		return false
	}
	if f.CreatedFrom != nil && u.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && u.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func sortUsers(users []*models.User, fields []query.SortField) {
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		for _, f := range fields {
			cmp := compareUsers(a, b, f.Key)
			if cmp == 0 {
				continue
			}
			if f.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		// Stable tiebreak so pagination is deterministic.
		return a.ID.String() < b.ID.String()
	})
}

func compareUsers(a, b *models.User, key query.SortKey) int {
	switch key {
	case query.SortUsername:
		return strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	case query.SortFullName:
		return strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	case query.SortIsActive:
		switch {
		case a.IsActive == b.IsActive:
			return 0
		case a.IsActive:
			return 1
		default:
			return -1
		}
	case query.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}
