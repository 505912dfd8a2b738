package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/branch/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

func branch(name string) *models.Branch {
	now := time.Now()
	return &models.Branch{
		ID:        id.BranchID(uuid.New()),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, branch("Head Office")))

	err := store.Create(ctx, branch("head office"))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestUpdate_RenameConflict(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	a := branch("North")
	b := branch("South")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	b.Name = "north"
	err := store.Update(ctx, b)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	b.Name = "East"
	require.NoError(t, store.Update(ctx, b))

	// The old name is released after a successful rename.
	c := branch("South")
	require.NoError(t, store.Create(ctx, c))
}

func TestDelete_FreesName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	a := branch("West")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Delete(ctx, a.ID))

	_, err := store.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, store.Create(ctx, branch("West")))
}

func TestList_SortedByName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, branch("Zurich")))
	require.NoError(t, store.Create(ctx, branch("Austin")))

	branches, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "Austin", branches[0].Name)
}
