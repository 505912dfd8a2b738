package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/role/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

func role(name string) *models.Role {
	return &models.Role{
		ID:        id.RoleID(uuid.New()),
		Name:      name,
		CreatedAt: time.Now(),
	}
}

func TestCreate_DuplicateNameCaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, role("Admin")))

	err := store.Create(ctx, role("ADMIN"))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindByName_CaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	created := role("User")
	require.NoError(t, store.Create(ctx, created))

	found, err := store.FindByName(ctx, "uSeR")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.FindByName(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindByIDs_RejectsUnknown(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	a := role("A")
	require.NoError(t, store.Create(ctx, a))

	roles, err := store.FindByIDs(ctx, []id.RoleID{a.ID})
	require.NoError(t, err)
	require.Len(t, roles, 1)

	_, err = store.FindByIDs(ctx, []id.RoleID{a.ID, id.RoleID(uuid.New())})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestList_SortedByName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, role("zeta")))
	require.NoError(t, store.Create(ctx, role("alpha")))

	roles, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "alpha", roles[0].Name)
	assert.Equal(t, "zeta", roles[1].Name)
}
