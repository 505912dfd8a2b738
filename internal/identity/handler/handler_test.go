package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

type stubService struct {
	createFn  func(ctx context.Context, req *models.CreateUserRequest, allowRoles bool, deviceName string) (*models.CreatedUserData, error)
	listFn    func(ctx context.Context, q *query.ListQuery) (*models.ListUsersData, error)
	getFn     func(ctx context.Context, userID id.UserID) (*models.UserView, error)
	deleteFn  func(ctx context.Context, userID id.UserID, mode models.DeleteMode) error
	loginFn   func(ctx context.Context, req *models.LoginRequest, deviceName string) (*models.TokenData, error)
	logoutFn  func(ctx context.Context, accessToken string, req *models.LogoutRequest) error
	refreshFn func(ctx context.Context, req *models.RefreshRequest, deviceName string) (*models.TokenData, error)
}

func (s *stubService) Create(ctx context.Context, req *models.CreateUserRequest, allowRoles bool, deviceName string) (*models.CreatedUserData, error) {
	return s.createFn(ctx, req, allowRoles, deviceName)
}

func (s *stubService) List(ctx context.Context, q *query.ListQuery) (*models.ListUsersData, error) {
	return s.listFn(ctx, q)
}

func (s *stubService) Get(ctx context.Context, userID id.UserID) (*models.UserView, error) {
	return s.getFn(ctx, userID)
}

func (s *stubService) Update(context.Context, id.UserID, *models.UpdateUserRequest) (*models.UserView, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "not implemented")
}

func (s *stubService) Delete(ctx context.Context, userID id.UserID, mode models.DeleteMode) error {
	return s.deleteFn(ctx, userID, mode)
}

func (s *stubService) ProfileOverview(context.Context, id.ProfileID) (*models.ProfileOverview, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "not implemented")
}

func (s *stubService) Limits() query.Limits {
	return query.Limits{DefaultPageSize: 20, MaxPageSize: 200}
}

func (s *stubService) Login(ctx context.Context, req *models.LoginRequest, deviceName string) (*models.TokenData, error) {
	return s.loginFn(ctx, req, deviceName)
}

func (s *stubService) Refresh(ctx context.Context, req *models.RefreshRequest, deviceName string) (*models.TokenData, error) {
	return s.refreshFn(ctx, req, deviceName)
}

func (s *stubService) Logout(ctx context.Context, accessToken string, req *models.LogoutRequest) error {
	return s.logoutFn(ctx, accessToken, req)
}

func newRouter(svc Service) chi.Router {
	h := New(svc, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAuth(r)
	return r
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandleCreate_PassesAllowRolesFlag(t *testing.T) {
	var gotAllowRoles bool
	svc := &stubService{
		createFn: func(_ context.Context, req *models.CreateUserRequest, allowRoles bool, _ string) (*models.CreatedUserData, error) {
			gotAllowRoles = allowRoles
			return &models.CreatedUserData{
				User:        models.UserView{ID: uuid.NewString(), Username: req.Username},
				AccessToken: "token",
			}, nil
		},
	}
	router := newRouter(svc)

	body := `{"username":"ada","password":"password123","profile":{"firstName":"Ada"}}`
	req := httptest.NewRequest(http.MethodPost, "/users?allowRoles=true", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, gotAllowRoles)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "User created successfully", env.Message)
}

func TestHandleCreate_InvalidJSON(t *testing.T) {
	router := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleList_RejectsMalformedBranchID(t *testing.T) {
	router := newRouter(&stubService{
		listFn: func(context.Context, *query.ListQuery) (*models.ListUsersData, error) {
			t.Fatal("service must not be reached")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/users?branchId=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Message, "branch_id")
}

func TestHandleList_EmptyResultIsNotAnError(t *testing.T) {
	router := newRouter(&stubService{
		listFn: func(_ context.Context, q *query.ListQuery) (*models.ListUsersData, error) {
			return &models.ListUsersData{Page: q.Page, Users: []models.UserView{}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"total":0,"page":1,"pageSize":0,"users":[]}`, string(env.Data))
}

func TestHandleGet_NotFound(t *testing.T) {
	router := newRouter(&stubService{
		getFn: func(context.Context, id.UserID) (*models.UserView, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "User not found", env.Message)
}

func TestHandleDelete_ModeValidation(t *testing.T) {
	var gotMode models.DeleteMode
	router := newRouter(&stubService{
		deleteFn: func(_ context.Context, _ id.UserID, mode models.DeleteMode) error {
			gotMode = mode
			return nil
		},
	})

	// Default mode is soft.
	req := httptest.NewRequest(http.MethodDelete, "/users/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DeleteSoft, gotMode)

	req = httptest.NewRequest(http.MethodDelete, "/users/"+uuid.NewString()+"?mode=hard", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DeleteHard, gotMode)

	req = httptest.NewRequest(http.MethodDelete, "/users/"+uuid.NewString()+"?mode=purge", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogin_UnauthorizedMapsTo401(t *testing.T) {
	router := newRouter(&stubService{
		loginFn: func(context.Context, *models.LoginRequest, string) (*models.TokenData, error) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid username or password")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"ada","password":"nope"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogout_RequiresBearerToken(t *testing.T) {
	called := false
	router := newRouter(&stubService{
		logoutFn: func(_ context.Context, accessToken string, _ *models.LogoutRequest) error {
			called = true
			assert.Equal(t, "some-access-token", accessToken)
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer some-access-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
