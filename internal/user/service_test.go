package user

import (
	"context"
	"testing"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type UserServiceTestSuite struct {
	service *ServiceImplementation
	repo    Repository
}

func setupUserServiceTestSuite(t *testing.T) *UserServiceTestSuite {
	db := testutil.NewDB(t, &User{})
	store, err := storage.NewLocalStore(t.TempDir(), "http://media.test", zap.NewNop())
	require.NoError(t, err)
	repo := NewGORMRepository(db)
	return &UserServiceTestSuite{
		service: NewService(repo, store, &config.Config{MaxUploadSizeMB: 1}, zap.NewNop()),
		repo:    repo,
	}
}

func assertAPIErrorCode(t *testing.T, err error, want *common.APIError) {
	t.Helper()
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, want.Code, apiErr.Code)
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ts := setupUserServiceTestSuite(t)
	ctx := context.Background()

	u, err := ts.service.Register(ctx, RegisterRequest{Email: "  Alice@Example.com ", Password: "correct-horse", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.GetEmail())
	assert.Equal(t, common.RoleUser, u.Role)

	_, err = ts.service.Register(ctx, RegisterRequest{Email: "alice@example.com", Password: "another-one", DisplayName: "Alice 2"})
	assertAPIErrorCode(t, err, common.ErrConflict)

	got, err := ts.service.Authenticate(ctx, "ALICE@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotNil(t, got.LastLoginAt)

	_, err = ts.service.Authenticate(ctx, "alice@example.com", "wrong")
	assertAPIErrorCode(t, err, common.ErrUnauthorized)
}

func TestUserService_BannedUserCannotSignIn(t *testing.T) {
	ts := setupUserServiceTestSuite(t)
	ctx := context.Background()
	admin := uuid.New()

	u, err := ts.service.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "password123", DisplayName: "Bob"})
	require.NoError(t, err)

	_, err = ts.service.SetRole(ctx, admin, u.ID, common.RoleBanned)
	require.NoError(t, err)

	_, err = ts.service.Authenticate(ctx, "bob@example.com", "password123")
	assertAPIErrorCode(t, err, common.ErrForbidden)

	state, err := ts.service.GetAccountState(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, common.RoleBanned, state.Role)
}

func TestUserService_SetRole_RejectsSelf(t *testing.T) {
	ts := setupUserServiceTestSuite(t)
	id := uuid.New()
	_, err := ts.service.SetRole(context.Background(), id, id, common.RoleUser)
	assertAPIErrorCode(t, err, common.ErrForbidden)
}

func TestUserService_FindOrCreateFromIdentity(t *testing.T) {
	ts := setupUserServiceTestSuite(t)
	ctx := context.Background()

	existing, err := ts.service.Register(ctx, RegisterRequest{Email: "carol@example.com", Password: "password123", DisplayName: "Carol"})
	require.NoError(t, err)

	linked, created, err := ts.service.FindOrCreateFromIdentity(ctx, ExternalIdentity{
		UID: "google-uid-1", Provider: "google.com", Email: "carol@example.com", EmailVerified: true,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, linked.ID, "verified email links to the existing account")
	require.NotNil(t, linked.FirebaseUID)

	again, created, err := ts.service.FindOrCreateFromIdentity(ctx, ExternalIdentity{UID: "google-uid-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, again.ID)

	fresh, created, err := ts.service.FindOrCreateFromIdentity(ctx, ExternalIdentity{
		UID: "apple-uid-9", Provider: "apple.com", Email: "dan@example.com", EmailVerified: false,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "dan", fresh.DisplayName)
	assert.Equal(t, "apple.com", fresh.AuthProvider)
}

func TestUserService_DeleteAccountIsSoft(t *testing.T) {
	ts := setupUserServiceTestSuite(t)
	ctx := context.Background()

	u, err := ts.service.Register(ctx, RegisterRequest{Email: "erin@example.com", Password: "password123", DisplayName: "Erin"})
	require.NoError(t, err)
	require.NoError(t, ts.service.DeleteAccount(ctx, u.ID))

	got, err := ts.repo.FindByID(ctx, u.ID)
	require.NoError(t, err, "row is kept")
	assert.Equal(t, StatusDeleted, got.Status)
	assert.Nil(t, got.Email)
	assert.NotNil(t, got.DeletedAt)

	_, err = ts.service.Authenticate(ctx, "erin@example.com", "password123")
	assertAPIErrorCode(t, err, common.ErrUnauthorized)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ts := setupUserServiceTestSuite(t)
	ctx := context.Background()
	u, err := ts.service.Register(ctx, RegisterRequest{Email: "fay@example.com", Password: "password123", DisplayName: "Fay"})
	require.NoError(t, err)

	city := " Lyon "
	updated, err := ts.service.UpdateProfile(ctx, u.ID, UpdateProfileRequest{City: &city})
	require.NoError(t, err)
	require.NotNil(t, updated.City)
	assert.Equal(t, "Lyon", *updated.City)
	assert.Equal(t, "Fay", updated.DisplayName)
}
