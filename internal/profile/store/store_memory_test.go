package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

func profile(firstName, email string) *models.Profile {
	now := time.Now()
	return &models.Profile{
		ID:        id.ProfileID(uuid.New()),
		FirstName: firstName,
		LastName:  "Doe",
		Gender:    models.GenderFemale,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, profile("Ada", "ada@example.com")))

	err := store.Create(ctx, profile("Grace", "ADA@example.com"))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestCreate_EmptyEmailsDoNotCollide(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, profile("Ada", "")))
	require.NoError(t, store.Create(ctx, profile("Grace", "")))
}

func TestUpdate_EmailConflictAndRelease(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	a := profile("Ada", "ada@example.com")
	b := profile("Grace", "grace@example.com")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	b.Email = "ada@example.com"
	assert.ErrorIs(t, store.Update(ctx, b), sentinel.ErrAlreadyUsed)

	b.Email = "grace.h@example.com"
	require.NoError(t, store.Update(ctx, b))

	// The old address is free again after a successful change.
	c := profile("Hedy", "grace@example.com")
	require.NoError(t, store.Create(ctx, c))
}

func TestFindByID_NotFound(t *testing.T) {
	store := NewInMemory()

	_, err := store.FindByID(context.Background(), id.ProfileID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestList_PaginatesAndSorts(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	base := time.Now()
	for i, name := range []string{"Ada", "Grace", "Hedy"} {
		p := profile(name, "")
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Create(ctx, p))
	}

	page, err := store.List(ctx, ListParams{Page: 1, Limit: 2, Sort: SortCreatedAt, Desc: true})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Hedy", page[0].FirstName)
	assert.Equal(t, "Grace", page[1].FirstName)

	page, err = store.List(ctx, ListParams{Page: 2, Limit: 2, Sort: SortCreatedAt, Desc: true})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Ada", page[0].FirstName)

	page, err = store.List(ctx, ListParams{Page: 3, Limit: 2, Sort: SortCreatedAt})
	require.NoError(t, err)
	assert.Empty(t, page)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestList_SortByName(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, profile("zoe", "")))
	require.NoError(t, store.Create(ctx, profile("Ada", "")))

	page, err := store.List(ctx, ListParams{Page: 1, Limit: 10, Sort: SortFirstName})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Ada", page[0].FirstName)
}

func TestParseSortKey(t *testing.T) {
	_, ok := ParseSortKey("firstName")
	assert.True(t, ok)

	_, ok = ParseSortKey("photoKey")
	assert.False(t, ok)
}
