// Package refreshtoken persists opaque refresh tokens. Tokens rotate on
// use: consuming a token marks it used, and a used token can never be
// consumed again.
package refreshtoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roster/internal/identity/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

var (
	ErrTokenUsed    = dErrors.New(dErrors.CodeUnauthorized, "refresh token already used")
	ErrTokenExpired = dErrors.New(dErrors.CodeUnauthorized, "refresh token expired")
)

// InMemoryStore keeps refresh tokens in memory.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]*models.RefreshToken)}
}

func (s *InMemoryStore) Create(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *token
	s.tokens[token.Token] = &clone
	return nil
}

// Consume atomically marks the token used and returns it. Replay of a used
// token and use of an expired token are rejected.
func (s *InMemoryStore) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}
	if rec.Used {
		return nil, ErrTokenUsed
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	rec.Used = true
	clone := *rec
	return &clone, nil
}

// RevokeForUser marks all of a user's outstanding tokens used.
func (s *InMemoryStore) RevokeForUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens {
		if rec.UserID == userID {
			rec.Used = true
		}
	}
	return nil
}

// DeleteExpired drops tokens past their expiry. Returns the number removed.
func (s *InMemoryStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for key, rec := range s.tokens {
		if now.After(rec.ExpiresAt) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}
