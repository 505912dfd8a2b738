package service

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/platform/objectstore"
	"roster/internal/profile/models"
	"roster/internal/profile/store"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

func newService(t *testing.T) (*Service, *store.InMemoryStore, *objectstore.MemoryStore) {
	t.Helper()
	st := store.NewInMemory()
	objects := objectstore.NewMemory()
	svc := New(st, objects, nil, nil, slog.New(slog.DiscardHandler), Config{
		PhotoBucket:     "roster-files",
		MaxPhotoBytes:   1 << 20,
		DefaultPageSize: 20,
		MaxPageSize:     200,
	})
	return svc, st, objects
}

func payload(firstName, email string) *models.ProfilePayload {
	return &models.ProfilePayload{
		FirstName: firstName,
		Gender:    models.GenderFemale,
		Email:     email,
	}
}

func TestCreate_TrimsAndValidates(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, &models.ProfilePayload{FirstName: "  Ada  ", Email: " ada@example.com "})
	require.NoError(t, err)
	assert.Equal(t, "Ada", view.FirstName)
	assert.Equal(t, "ada@example.com", view.Email)

	_, err = svc.Create(ctx, &models.ProfilePayload{FirstName: "   "})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, payload("Ada", "ada@example.com"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, payload("Grace", "ada@example.com"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestUpdate_EmptyBodyRejected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, payload("Ada", ""))
	require.NoError(t, err)
	profileID := mustProfileID(t, view.ID)

	_, err = svc.Update(ctx, profileID, &models.UpdateProfilePayload{})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	occupation := "Engineer"
	updated, err := svc.Update(ctx, profileID, &models.UpdateProfilePayload{Occupation: &occupation})
	require.NoError(t, err)
	assert.Equal(t, "Engineer", updated.Occupation)
}

func TestUploadPhoto_SupersedesOldObject(t *testing.T) {
	svc, st, objects := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, payload("Ada", ""))
	require.NoError(t, err)
	profileID := mustProfileID(t, view.ID)

	_, err = svc.UploadPhoto(ctx, profileID, "first.png", "image/png", 4, strings.NewReader("one1"))
	require.NoError(t, err)
	first, err := st.FindByID(ctx, profileID)
	require.NoError(t, err)
	require.True(t, first.HasPhoto())

	time.Sleep(2 * time.Millisecond) // keys are timestamp-prefixed
	updated, err := svc.UploadPhoto(ctx, profileID, "second.jpg", "image/jpeg", 4, strings.NewReader("two2"))
	require.NoError(t, err)
	assert.Equal(t, "second.jpg", updated.PhotoName)

	// The superseded object is gone; exactly one object remains.
	assert.Equal(t, 1, objects.Len())

	second, err := st.FindByID(ctx, profileID)
	require.NoError(t, err)
	assert.NotEqual(t, first.PhotoKey, second.PhotoKey)
	assert.Equal(t, "image/jpeg", second.PhotoContentType)
}

func TestUploadPhoto_TooLarge(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, payload("Ada", ""))
	require.NoError(t, err)

	_, err = svc.UploadPhoto(ctx, mustProfileID(t, view.ID), "big.png", "image/png",
		2<<20, strings.NewReader("oversized"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodePayloadTooLarge))
}

func TestUploadPhoto_StripsPathComponents(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, payload("Ada", ""))
	require.NoError(t, err)
	profileID := mustProfileID(t, view.ID)

	updated, err := svc.UploadPhoto(ctx, profileID, "../../etc/passwd", "text/plain", 3, strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", updated.PhotoName)

	p, err := st.FindByID(ctx, profileID)
	require.NoError(t, err)
	assert.NotContains(t, p.PhotoKey, "..")
}

func TestOpenPhoto(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, payload("Ada", ""))
	require.NoError(t, err)
	profileID := mustProfileID(t, view.ID)

	_, err = svc.OpenPhoto(ctx, profileID)
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = svc.UploadPhoto(ctx, profileID, "pic.png", "image/png", 5, strings.NewReader("bytes"))
	require.NoError(t, err)

	photo, err := svc.OpenPhoto(ctx, profileID)
	require.NoError(t, err)
	defer photo.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(photo.Body)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
	assert.Equal(t, "image/png", photo.ContentType)
	assert.Equal(t, "pic.png", photo.Name)
}

func TestParseListQuery_AllowLists(t *testing.T) {
	svc, _, _ := newService(t)

	lq, err := svc.ParseListQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, store.SortCreatedAt, lq.Params.Sort)
	assert.True(t, lq.Params.Desc)
	assert.Equal(t, 20, lq.Params.Limit)

	lq, err = svc.ParseListQuery(url.Values{"sort": {"firstName:asc"}, "limit": {"500"}})
	require.NoError(t, err)
	assert.Equal(t, store.SortFirstName, lq.Params.Sort)
	assert.False(t, lq.Params.Desc)
	assert.Equal(t, 200, lq.Params.Limit)

	_, err = svc.ParseListQuery(url.Values{"sort": {"photoKey"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.ParseListQuery(url.Values{"select": {"firstName,photoKey"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestList_SelectMask(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, payload("Ada", "ada@example.com"))
	require.NoError(t, err)

	lq, err := svc.ParseListQuery(url.Values{"select": {"firstName"}})
	require.NoError(t, err)

	data, err := svc.List(ctx, lq)
	require.NoError(t, err)
	require.Len(t, data.Profiles, 1)
	assert.Equal(t, 1, data.Total)
	assert.Equal(t, 1, data.PageSize)

	got := data.Profiles[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Empty(t, got.Email)
	assert.Nil(t, got.CreatedAt)
}

func mustProfileID(t *testing.T, raw string) id.ProfileID {
	t.Helper()
	parsed, err := id.ParseProfileID(raw)
	require.NoError(t, err)
	return parsed
}
