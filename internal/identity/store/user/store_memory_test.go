package user

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
	profilemodels "roster/internal/profile/models"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
)

func newUser(username string, createdAt time.Time) *models.User {
	return &models.User{
		ID:        id.UserID(uuid.New()),
		Username:  username,
		IsActive:  true,
		RoleIDs:   []id.RoleID{id.RoleID(uuid.New())},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func mustParse(t *testing.T, rawQuery string) *query.ListQuery {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	q, err := query.Parse(values, query.Limits{DefaultPageSize: 20, MaxPageSize: 200})
	require.NoError(t, err)
	return q
}

func TestCreate_DuplicateUsername(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser("jdoe", time.Now())))

	err := store.Create(ctx, newUser("JDOE", time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestCreate_SoftDeletedUsernameIsFree(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first := newUser("jdoe", time.Now())
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Delete(ctx, first.ID, false))

	// The tombstone frees the username, mirroring the partial unique index.
	require.NoError(t, store.Create(ctx, newUser("jdoe", time.Now())))
}

func TestFindByUsername_CaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	u := newUser("Jane.Doe", time.Now())
	require.NoError(t, store.Create(ctx, u))

	found, err := store.FindByUsername(ctx, "jane.doe")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestDelete_Modes(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	soft := newUser("soft", time.Now())
	hard := newUser("hard", time.Now())
	require.NoError(t, store.Create(ctx, soft))
	require.NoError(t, store.Create(ctx, hard))

	require.NoError(t, store.Delete(ctx, soft.ID, false))
	found, err := store.FindByID(ctx, soft.ID)
	require.NoError(t, err, "soft-deleted record remains retrievable by id")
	assert.True(t, found.Deleted)

	require.NoError(t, store.Delete(ctx, hard.ID, true))
	_, err = store.FindByID(ctx, hard.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	err = store.Delete(ctx, soft.ID, false)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "double soft delete reports absence")
}

func TestList_ExcludesDeletedAndSortsByCreationDescending(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	oldest := newUser("oldest", base)
	middle := newUser("middle", base.Add(time.Hour))
	newest := newUser("newest", base.Add(2*time.Hour))
	tombstoned := newUser("ghost", base.Add(3*time.Hour))
	for _, u := range []*models.User{oldest, middle, newest, tombstoned} {
		require.NoError(t, store.Create(ctx, u))
	}
	require.NoError(t, store.Delete(ctx, tombstoned.ID, false))

	records, err := store.List(ctx, mustParse(t, ""))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "newest", records[0].User.Username)
	assert.Equal(t, "middle", records[1].User.Username)
	assert.Equal(t, "oldest", records[2].User.Username)

	total, err := store.Count(ctx, mustParse(t, "").Filter)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestList_BranchAndDateFilters(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	branchID := id.BranchID(uuid.New())
	inBranch := newUser("inbranch", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	inBranch.BranchID = branchID
	outBranch := newUser("outbranch", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	late := newUser("late", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	late.BranchID = branchID
	for _, u := range []*models.User{inBranch, outBranch, late} {
		require.NoError(t, store.Create(ctx, u))
	}

	q := mustParse(t, "branchId="+branchID.String()+"&startDate=2024-01-01&endDate=2024-01-31")
	records, err := store.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "inbranch", records[0].User.Username)
}

func TestList_InclusiveDateBounds(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	edge := newUser("edge", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Create(ctx, edge))

	records, err := store.List(ctx, mustParse(t, "startDate=2024-01-31&endDate=2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, records, 1, "both bounds are inclusive")
}

func TestList_Pagination(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"a", "b", "c", "d", "e"}
	for i, name := range names {
		require.NoError(t, store.Create(ctx, newUser(name, base.Add(time.Duration(i)*time.Hour))))
	}

	q := mustParse(t, "limit=2&page=2&sort=username:asc")
	records, err := store.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].User.Username)
	assert.Equal(t, "d", records[1].User.Username)

	q = mustParse(t, "limit=2&page=9")
	records, err = store.List(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestList_ProfileExpansionGatesMatch(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	profiles := map[id.ProfileID]*profilemodels.Profile{}
	addProfile := func(gender string) id.ProfileID {
		pid := id.ProfileID(uuid.New())
		profiles[pid] = &profilemodels.Profile{ID: pid, FirstName: "X", Gender: gender}
		return pid
	}
	store.SetResolvers(nil, nil, func(pid id.ProfileID) *profilemodels.Profile {
		return profiles[pid]
	})

	female := newUser("female", time.Now())
	female.ProfileID = addProfile("F")
	male := newUser("male", time.Now())
	male.ProfileID = addProfile("M")
	require.NoError(t, store.Create(ctx, female))
	require.NoError(t, store.Create(ctx, male))

	// With profile expanded, a failing match nulls the profile; the row
	// itself still comes back (the projector is responsible for dropping).
	records, err := store.List(ctx, mustParse(t, "gender=F&populate=userInfoId"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	byName := map[string]*models.Record{}
	for _, rec := range records {
		byName[rec.User.Username] = rec
	}
	assert.NotNil(t, byName["female"].Profile)
	assert.Nil(t, byName["male"].Profile)

	// Without profile expansion the same predicate is inert.
	records, err = store.List(ctx, mustParse(t, "gender=F&populate=roleId,branchId"))
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.Nil(t, rec.Profile)
	}
}

func TestUpdate_UsernameConflict(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	a := newUser("alpha", time.Now())
	b := newUser("beta", time.Now())
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	b.Username = "Alpha"
	err := store.Update(ctx, b)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindByProfileID(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	pid := id.ProfileID(uuid.New())
	u := newUser("linked", time.Now())
	u.ProfileID = pid
	require.NoError(t, store.Create(ctx, u))

	found, err := store.FindByProfileID(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = store.FindByProfileID(ctx, id.ProfileID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
