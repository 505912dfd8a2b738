package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	branchstore "roster/internal/branch/store"
	"roster/internal/identity/models"
	"roster/internal/identity/query"
	"roster/internal/identity/store/refreshtoken"
	"roster/internal/identity/store/revocation"
	userstore "roster/internal/identity/store/user"
	profilemodels "roster/internal/profile/models"
	profilestore "roster/internal/profile/store"
	rolemodels "roster/internal/role/models"
	roleservice "roster/internal/role/service"
	rolestore "roster/internal/role/store"
	"roster/internal/token"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

type testEnv struct {
	svc      *Service
	users    *userstore.InMemoryStore
	profiles *profilestore.InMemoryStore
	roles    *rolestore.InMemoryStore
	branches *branchstore.InMemoryStore
	refresh  *refreshtoken.InMemoryStore
	revoked  *revocation.InMemoryList
	tokens   *token.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	env := &testEnv{
		users:    userstore.NewInMemory(),
		profiles: profilestore.NewInMemory(),
		roles:    rolestore.NewInMemory(),
		branches: branchstore.NewInMemory(),
		refresh:  refreshtoken.NewInMemory(),
		revoked:  revocation.NewInMemory(),
		tokens:   token.NewJWTService("test-signing-key", "roster-test", time.Minute),
	}
	require.NoError(t, env.roles.Create(ctx, &rolemodels.Role{
		ID: id.RoleID(uuid.New()), Name: rolemodels.DefaultRoleName, CreatedAt: time.Now(),
	}))

	env.users.SetResolvers(
		func(ids []id.RoleID) []models.RoleRef {
			roles, err := env.roles.FindByIDs(context.Background(), ids)
			if err != nil {
				return nil
			}
			refs := make([]models.RoleRef, 0, len(roles))
			for _, role := range roles {
				refs = append(refs, models.RoleRef{ID: role.ID, Name: role.Name})
			}
			return refs
		},
		func(branchID id.BranchID) *models.BranchRef {
			branch, err := env.branches.FindByID(context.Background(), branchID)
			if err != nil {
				return nil
			}
			return &models.BranchRef{ID: branch.ID, Name: branch.Name, Code: branch.Code}
		},
		func(profileID id.ProfileID) *profilemodels.Profile {
			profile, err := env.profiles.FindByID(context.Background(), profileID)
			if err != nil {
				return nil
			}
			return profile
		},
	)

	env.svc = New(env.users, env.profiles, roleservice.New(env.roles, logger),
		env.branches, env.refresh, env.revoked, env.tokens, nil, nil, nil, logger,
		Config{
			Limits:     query.Limits{DefaultPageSize: 20, MaxPageSize: 200},
			RefreshTTL: time.Hour,
		})
	return env
}

func createUser(t *testing.T, env *testEnv, username, gender string) *models.CreatedUserData {
	t.Helper()
	data, err := env.svc.Create(context.Background(), &models.CreateUserRequest{
		Username: username,
		Password: "password123",
		FullName: "Test User",
		Profile: &models.ProfilePayload{
			FirstName: "Ada",
			Gender:    gender,
		},
	}, false, "test device")
	require.NoError(t, err)
	return data
}

func TestCreate_AttachesDefaultRoleAndIssuesTokens(t *testing.T) {
	env := newTestEnv(t)

	data := createUser(t, env, "ada", "F")

	assert.NotEmpty(t, data.AccessToken)
	assert.NotEmpty(t, data.RefreshToken)
	require.Len(t, data.User.Roles, 1)
	assert.Equal(t, rolemodels.DefaultRoleName, data.User.Roles[0].Name)
	require.NotNil(t, data.User.Profile)
	assert.Equal(t, "Ada", data.User.Profile.FirstName)
	require.NotNil(t, data.User.IsActive)
	assert.True(t, *data.User.IsActive)

	// The credential hash never leaks into the serialized response.
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "Hash")
}

func TestCreate_ExplicitRolesRequireAllowFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := &rolemodels.Role{ID: id.RoleID(uuid.New()), Name: "Admin", CreatedAt: time.Now()}
	require.NoError(t, env.roles.Create(ctx, admin))

	req := func(username string) *models.CreateUserRequest {
		return &models.CreateUserRequest{
			Username: username,
			Password: "password123",
			RoleIDs:  []string{admin.ID.String()},
			Profile:  &models.ProfilePayload{FirstName: "Ada"},
		}
	}

	// Without the flag the explicit role is ignored.
	data, err := env.svc.Create(ctx, req("plain"), false, "")
	require.NoError(t, err)
	require.Len(t, data.User.Roles, 1)
	assert.Equal(t, rolemodels.DefaultRoleName, data.User.Roles[0].Name)

	data, err = env.svc.Create(ctx, req("admin"), true, "")
	require.NoError(t, err)
	require.Len(t, data.User.Roles, 1)
	assert.Equal(t, "Admin", data.User.Roles[0].Name)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	createUser(t, env, "ada", "F")

	_, err := env.svc.Create(context.Background(), &models.CreateUserRequest{
		Username: "Ada",
		Password: "password123",
		Profile:  &models.ProfilePayload{FirstName: "Other"},
	}, false, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreate_UnknownBranchRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), &models.CreateUserRequest{
		Username: "ada",
		Password: "password123",
		BranchID: uuid.NewString(),
		Profile:  &models.ProfilePayload{FirstName: "Ada"},
	}, false, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestList_ProfilePredicatesInertWithoutProfileExpansion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createUser(t, env, "ada", "F")
	createUser(t, env, "bob", "M")

	// gender=F with the profile relation not expanded: the predicate has no
	// effect and both records come back, profile omitted.
	q, err := query.Parse(url.Values{
		"populate": {"roleId,branchId"},
		"gender":   {"F"},
	}, env.svc.Limits())
	require.NoError(t, err)

	data, err := env.svc.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Total)
	assert.Equal(t, 2, data.PageSize)
	require.Len(t, data.Users, 2)
	for _, u := range data.Users {
		assert.Nil(t, u.Profile)
	}

	// Same predicate with the profile expanded: the non-matching record is
	// dropped from the page while the total stays top-level.
	q, err = query.Parse(url.Values{"gender": {"F"}}, env.svc.Limits())
	require.NoError(t, err)

	data, err = env.svc.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Total)
	assert.Equal(t, 1, data.PageSize)
	require.Len(t, data.Users, 1)
	assert.Equal(t, "ada", data.Users[0].Username)
	require.NotNil(t, data.Users[0].Profile)
	assert.Equal(t, "F", data.Users[0].Profile.Gender)
}

func TestList_SelectMask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createUser(t, env, "ada", "F")

	q, err := query.Parse(url.Values{"select": {"username,roles"}}, env.svc.Limits())
	require.NoError(t, err)

	data, err := env.svc.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, data.Users, 1)

	got := data.Users[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "ada", got.Username)
	assert.NotEmpty(t, got.Roles)
	assert.Empty(t, got.FullName)
	assert.Nil(t, got.IsActive)
	assert.Nil(t, got.CreatedAt)
	assert.Nil(t, got.Profile)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")

	data, err := env.svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "password123"}, "Chrome on Mac")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", data.TokenType)
	assert.Equal(t, 60, data.ExpiresIn)
	assert.NotEmpty(t, data.AccessToken)
	assert.Equal(t, created.User.ID, data.User.ID)

	_, err = env.svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "wrong-password"}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = env.svc.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "password123"}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLogin_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")
	userID, err := id.ParseUserID(created.User.ID)
	require.NoError(t, err)

	inactive := false
	_, err = env.svc.Update(ctx, userID, &models.UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "password123"}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")

	rotated, err := env.svc.Refresh(ctx, &models.RefreshRequest{RefreshToken: created.RefreshToken}, "")
	require.NoError(t, err)
	assert.NotEqual(t, created.RefreshToken, rotated.RefreshToken)

	// Replay of the consumed token is rejected.
	_, err = env.svc.Refresh(ctx, &models.RefreshRequest{RefreshToken: created.RefreshToken}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = env.svc.Refresh(ctx, &models.RefreshRequest{RefreshToken: "unknown"}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLogout_RevokesAccessTokenJTI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")

	require.NoError(t, env.svc.Logout(ctx, created.AccessToken, &models.LogoutRequest{
		RefreshToken: created.RefreshToken,
	}))

	claims, err := env.tokens.ParseTokenSkipClaimsValidation(created.AccessToken)
	require.NoError(t, err)
	revoked, err := env.revoked.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// The refresh token went with it.
	_, err = env.svc.Refresh(ctx, &models.RefreshRequest{RefreshToken: created.RefreshToken}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestUpdate_EmptyAndConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")
	createUser(t, env, "bob", "M")
	userID, err := id.ParseUserID(created.User.ID)
	require.NoError(t, err)

	_, err = env.svc.Update(ctx, userID, &models.UpdateUserRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	taken := "bob"
	_, err = env.svc.Update(ctx, userID, &models.UpdateUserRequest{Username: &taken})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	fullName := "Ada Lovelace"
	view, err := env.svc.Update(ctx, userID, &models.UpdateUserRequest{FullName: &fullName})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", view.FullName)
}

func TestUpdate_NestedProfileAndLazyAttach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")
	userID, err := id.ParseUserID(created.User.ID)
	require.NoError(t, err)

	occupation := "Engineer"
	view, err := env.svc.Update(ctx, userID, &models.UpdateUserRequest{
		Profile: &profilemodels.UpdateProfilePayload{Occupation: &occupation},
	})
	require.NoError(t, err)
	require.NotNil(t, view.Profile)
	assert.Equal(t, "Engineer", view.Profile.Occupation)

	// A user without a profile gets one created lazily from the payload.
	bare := &models.User{
		ID:        id.UserID(uuid.New()),
		Username:  "bare",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, env.users.Create(ctx, bare))

	firstName := "Grace"
	view, err = env.svc.Update(ctx, bare.ID, &models.UpdateUserRequest{
		Profile: &profilemodels.UpdateProfilePayload{FirstName: &firstName},
	})
	require.NoError(t, err)
	require.NotNil(t, view.Profile)
	assert.Equal(t, "Grace", view.Profile.FirstName)
	assert.NotEmpty(t, view.ProfileID)
}

func TestDelete_SoftFreesUsernameAndKillsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")
	userID, err := id.ParseUserID(created.User.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, userID, models.DeleteSoft))

	_, err = env.svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "password123"}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = env.svc.Refresh(ctx, &models.RefreshRequest{RefreshToken: created.RefreshToken}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// Soft delete frees the username; the profile survives.
	createUser(t, env, "ada", "F")

	profileID, err := id.ParseProfileID(created.User.ProfileID)
	require.NoError(t, err)
	_, err = env.profiles.FindByID(ctx, profileID)
	assert.NoError(t, err)

	// Double soft delete reports not found.
	err = env.svc.Delete(ctx, userID, models.DeleteSoft)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestProfileOverview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")
	profileID, err := id.ParseProfileID(created.User.ProfileID)
	require.NoError(t, err)

	overview, err := env.svc.ProfileOverview(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, "ada", overview.Username)
	assert.Equal(t, "Test User", overview.FullName)
	assert.NotEmpty(t, overview.Roles)

	// A standalone profile has no identity fields, and is not an error.
	standalone := &profilemodels.Profile{
		ID:        id.ProfileID(uuid.New()),
		FirstName: "Loner",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, env.profiles.Create(ctx, standalone))

	overview, err = env.svc.ProfileOverview(ctx, standalone.ID)
	require.NoError(t, err)
	assert.Empty(t, overview.Username)
	assert.Equal(t, "Loner", overview.Profile.FirstName)

	_, err = env.svc.ProfileOverview(ctx, id.ProfileID(uuid.New()))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestProfileIDForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := createUser(t, env, "ada", "F")

	profileID, err := env.svc.ProfileIDForUser(ctx, created.User.ID)
	require.NoError(t, err)
	assert.Equal(t, created.User.ProfileID, profileID.String())

	_, err = env.svc.ProfileIDForUser(ctx, "not-a-uuid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = env.svc.ProfileIDForUser(ctx, uuid.NewString())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
