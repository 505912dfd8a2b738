package refreshtoken

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/identity/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

func record(token string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    id.UserID(uuid.New()),
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

func TestConsume_MarksUsed(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, record("tok-1", time.Now().Add(time.Hour))))

	rec, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, rec.Used)

	_, err = store.Consume(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrTokenUsed, "replay of a consumed token is rejected")
}

func TestConsume_Expired(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, record("tok-old", time.Now().Add(-time.Minute))))

	_, err := store.Consume(ctx, "tok-old")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestConsume_Unknown(t *testing.T) {
	store := NewInMemory()
	_, err := store.Consume(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRevokeForUser(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	rec := record("tok-user", time.Now().Add(time.Hour))
	other := record("tok-other", time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, rec))
	require.NoError(t, store.Create(ctx, other))

	require.NoError(t, store.RevokeForUser(ctx, rec.UserID))

	_, err := store.Consume(ctx, "tok-user")
	assert.ErrorIs(t, err, ErrTokenUsed)

	_, err = store.Consume(ctx, "tok-other")
	assert.NoError(t, err, "other users' tokens are unaffected")
}

func TestDeleteExpired(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, record("live", time.Now().Add(time.Hour))))
	require.NoError(t, store.Create(ctx, record("dead", time.Now().Add(-time.Hour))))

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
