//go:build integration

package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
	"roster/internal/sentinel"
	id "roster/pkg/domain"
	"roster/pkg/testutil"
	"roster/pkg/testutil/containers"
)

func setupPostgres(t *testing.T) (*containers.PostgresContainer, *PostgresStore) {
	t.Helper()
	pc := containers.GetManager().GetPostgres(t)
	require.NoError(t, pc.TruncateModuleTables(context.Background()))
	return pc, NewPostgres(pc.DB)
}

func newStoredUser(username string, roleIDs ...id.RoleID) *models.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.User{
		ID:           id.UserID(uuid.New()),
		Username:     username,
		PasswordHash: "$2a$10$test.hash.not.a.real.one",
		FullName:     "Integration User",
		RoleIDs:      roleIDs,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgresStore_CreateAndFind(t *testing.T) {
	pc, store := setupPostgres(t)
	ctx := context.Background()

	roleID := pc.CreateTestRole(ctx, t, "user")
	u := newStoredUser("ada", roleID)
	require.NoError(t, store.Create(ctx, u))

	// Username lookup is case-insensitive among live records.
	found, err := store.FindByUsername(ctx, "ADA")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, []id.RoleID{roleID}, found.RoleIDs)

	byID, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", byID.Username)

	_, err = store.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_SoftDeleteFreesUsername(t *testing.T) {
	pc, store := setupPostgres(t)
	ctx := context.Background()

	roleID := pc.CreateTestRole(ctx, t, "user")
	first := newStoredUser("grace", roleID)
	require.NoError(t, store.Create(ctx, first))

	// A live duplicate is rejected by the partial unique index.
	dup := newStoredUser("Grace", roleID)
	err := store.Create(ctx, dup)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	require.NoError(t, store.Delete(ctx, first.ID, false))

	// The tombstoned row no longer holds the name.
	_, err = store.FindByUsername(ctx, "grace")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, store.Create(ctx, newStoredUser("grace", roleID)))

	// Soft deleting the same record twice reports not found.
	assert.ErrorIs(t, store.Delete(ctx, first.ID, false), sentinel.ErrNotFound)
}

func TestPostgresStore_HardDeleteRemovesRow(t *testing.T) {
	pc, store := setupPostgres(t)
	ctx := context.Background()

	roleID := pc.CreateTestRole(ctx, t, "user")
	u := newStoredUser("turing", roleID)
	require.NoError(t, store.Create(ctx, u))

	require.NoError(t, store.Delete(ctx, u.ID, true))

	_, err := store.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	var count int
	require.NoError(t, pc.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE user_id = $1`, uuid.UUID(u.ID)).Scan(&count))
	assert.Zero(t, count, "role references should cascade on hard delete")
}

func TestPostgresStore_ConcurrentDuplicateUsername(t *testing.T) {
	pc, store := setupPostgres(t)
	ctx := context.Background()

	roleID := pc.CreateTestRole(ctx, t, "user")

	result := testutil.RunConcurrent(8, func(idx int) error {
		return store.Create(ctx, newStoredUser("raceuser", roleID))
	})

	assert.Equal(t, int32(1), result.Successes, "exactly one create should win")
	assert.Equal(t, int32(7), result.Conflicts)
	assert.Zero(t, result.Errors)
}

func TestPostgresStore_ListExpandsProfileWithJoinGate(t *testing.T) {
	pc, store := setupPostgres(t)
	ctx := context.Background()

	roleID := pc.CreateTestRole(ctx, t, "user")
	matching := pc.CreateTestProfile(ctx, t, "match@example.com")
	other := pc.CreateTestProfile(ctx, t, "other@example.com")
	_, err := pc.Exec(ctx, `UPDATE profiles SET gender = 'F' WHERE id = $1`, uuid.UUID(matching))
	require.NoError(t, err)
	_, err = pc.Exec(ctx, `UPDATE profiles SET gender = 'M' WHERE id = $1`, uuid.UUID(other))
	require.NoError(t, err)

	u1 := newStoredUser("match", roleID)
	u1.ProfileID = matching
	require.NoError(t, store.Create(ctx, u1))
	u2 := newStoredUser("other", roleID)
	u2.ProfileID = other
	require.NoError(t, store.Create(ctx, u2))

	q := &query.ListQuery{
		Filter:   query.Filter{Profile: query.ProfileFilter{Gender: "F"}},
		Populate: query.Populate{Role: true, Profile: true},
		Page:     1,
		Limit:    20,
	}
	records, err := store.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, records, 2, "profile predicates live in the join, not the page")

	byUsername := map[string]*models.Record{}
	for _, rec := range records {
		byUsername[rec.User.Username] = rec
	}
	require.NotNil(t, byUsername["match"].Profile)
	assert.Equal(t, "F", byUsername["match"].Profile.Gender)
	assert.Nil(t, byUsername["other"].Profile, "non-matching profile nulls out in the join")

	// Count evaluates the top-level filter only.
	total, err := store.Count(ctx, q.Filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestPostgresStore_ListPaginatesAndSorts(t *testing.T) {
	pc, store := setupPostgres(t)
	ctx := context.Background()

	roleID := pc.CreateTestRole(ctx, t, "user")
	for i := 0; i < 5; i++ {
		u := newStoredUser(fmt.Sprintf("user-%02d", i), roleID)
		u.CreatedAt = u.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Create(ctx, u))
	}

	q := &query.ListQuery{
		Populate: query.Populate{Role: true},
		Sort:     []query.SortField{{Key: query.SortUsername}},
		Page:     2,
		Limit:    2,
	}
	records, err := store.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Default direction is descending.
	assert.Equal(t, "user-02", records[0].User.Username)
	assert.Equal(t, "user-01", records[1].User.Username)
}
