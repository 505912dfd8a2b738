// Package revocation tracks revoked access tokens by JTI until their
// natural expiry.
package revocation

import (
	"context"
	"sync"
	"time"
)

// List manages revoked access tokens by JTI. Deployments with more than one
// instance should use the Redis implementation so revocations are shared.
type List interface {
	// Revoke adds a token JTI to the revocation list with a TTL matching
	// the token's remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked checks if a token JTI is in the revocation list.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InMemoryList is an in-memory revocation list for tests and single-node
// runs without Redis.
type InMemoryList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> expiry timestamp
}

// NewInMemory creates an in-memory revocation list with a background sweep
// of expired entries.
func NewInMemory() *InMemoryList {
	l := &InMemoryList{revoked: make(map[string]time.Time)}
	go l.cleanup()
	return l
}

func (l *InMemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (l *InMemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiry, exists := l.revoked[jti]
	if !exists {
		return false, nil
	}
	// Past the expiry the token is invalid anyway.
	return time.Now().Before(expiry), nil
}

func (l *InMemoryList) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for jti, expiry := range l.revoked {
			if now.After(expiry) {
				delete(l.revoked, jti)
			}
		}
		l.mu.Unlock()
	}
}

// Verify interface compliance.
var _ List = (*InMemoryList)(nil)
