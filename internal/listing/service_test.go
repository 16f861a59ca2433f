package listing

import (
	"context"
	"errors"
	"testing"

	"bontroc_backend/internal/category"
	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/testutil"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockSearchIndex is a mock type for listing.SearchIndex
type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) Index(ctx context.Context, l *Listing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockSearchIndex) Remove(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSearchIndex) Search(ctx context.Context, q SearchQuery) ([]uuid.UUID, int64, error) {
	args := m.Called(ctx, q)
	var ids []uuid.UUID
	if args.Get(0) != nil {
		ids = args.Get(0).([]uuid.UUID)
	}
	return ids, args.Get(1).(int64), args.Error(2)
}

func (m *MockSearchIndex) BulkIndex(ctx context.Context, listings []Listing) (int, error) {
	args := m.Called(ctx, listings)
	return args.Int(0), args.Error(1)
}

type listingFixture struct {
	db      *gorm.DB
	service *ServiceImplementation
	owner   uuid.UUID
	other   uuid.UUID
}

func newListingFixture(t *testing.T, index SearchIndex) *listingFixture {
	t.Helper()
	db := testutil.NewDB(t, &user.User{}, &category.Category{}, &Listing{}, &Media{})
	store, err := storage.NewLocalStore(t.TempDir(), "http://media.test", zap.NewNop())
	require.NoError(t, err)

	categories := category.NewService(category.NewGORMRepository(db), zap.NewNop())
	svc := NewService(NewGORMRepository(db), categories, index, store, &config.Config{MaxUploadSizeMB: 1}, zap.NewNop())

	f := &listingFixture{db: db, service: svc}
	for _, name := range []string{"Owner", "Other"} {
		u := &user.User{DisplayName: name, Role: common.RoleUser, Status: user.StatusActive}
		require.NoError(t, db.Create(u).Error)
		if name == "Owner" {
			f.owner = u.ID
		} else {
			f.other = u.ID
		}
	}
	return f
}

func guitarLessons() CreateListingRequest {
	value := decimal.RequireFromString("30")
	return CreateListingRequest{
		Title:          "Guitar lessons",
		Description:    "One hour guitar lesson for beginners",
		Type:           TypeService,
		Mode:           ModeRemote,
		EstimatedValue: &value,
		Tags:           []string{"Music", "guitar", "music "},
	}
}

func TestCreateListing_DraftVisibility(t *testing.T) {
	f := newListingFixture(t, nil)
	ctx := context.Background()

	l, err := f.service.CreateListing(ctx, f.owner, guitarLessons())
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, l.Status)
	assert.Equal(t, common.StringList{"music", "guitar"}, l.Tags)
	require.NotNil(t, l.Owner)
	assert.Equal(t, "Owner", l.Owner.DisplayName)
	assert.True(t, l.EstimatedValue.Decimal.Equal(decimal.NewFromInt(30)))

	_, err = f.service.GetListing(ctx, shared.Session{UserID: f.other, Role: common.RoleUser}, l.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "drafts are hidden from other users")

	_, err = f.service.GetListing(ctx, shared.Session{UserID: f.other, Role: common.RoleModerator}, l.ID)
	assert.NoError(t, err, "staff can see drafts")

	_, err = f.service.GetPublishedListing(ctx, l.ID)
	assert.ErrorIs(t, err, common.ErrUnprocessableEntity)
}

func TestPublishArchiveAndSearchFallback(t *testing.T) {
	f := newListingFixture(t, nil)
	ctx := context.Background()

	l, err := f.service.CreateListing(ctx, f.owner, guitarLessons())
	require.NoError(t, err)

	_, err = f.service.PublishListing(ctx, f.other, l.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	published, err := f.service.PublishListing(ctx, f.owner, l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	_, err = f.service.PublishListing(ctx, f.owner, l.ID)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	results, pagination, err := f.service.SearchListings(ctx, SearchQuery{Text: "GUITAR", Tag: "music", Mode: ModeRemote})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), pagination.TotalItems)

	results, _, err = f.service.SearchListings(ctx, SearchQuery{Type: TypeProduct})
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = f.service.ArchiveListing(ctx, f.owner, l.ID)
	require.NoError(t, err)
	results, _, err = f.service.SearchListings(ctx, SearchQuery{Text: "guitar"})
	require.NoError(t, err)
	assert.Empty(t, results, "archived listings are not searchable")
}

func TestSearchListings_UsesIndexThenFallsBack(t *testing.T) {
	index := new(MockSearchIndex)
	f := newListingFixture(t, index)
	ctx := context.Background()

	index.On("Index", mock.Anything, mock.Anything).Return(nil)
	req := guitarLessons()
	req.Publish = true
	l, err := f.service.CreateListing(ctx, f.owner, req)
	require.NoError(t, err)

	index.On("Search", mock.Anything, mock.MatchedBy(func(q SearchQuery) bool { return q.Text == "indexed" })).
		Return([]uuid.UUID{l.ID, uuid.New()}, int64(2), nil).Once()
	results, pagination, err := f.service.SearchListings(ctx, SearchQuery{Text: "indexed"})
	require.NoError(t, err)
	require.Len(t, results, 1, "hits missing from the database are skipped")
	assert.Equal(t, l.ID, results[0].ID)
	assert.Equal(t, int64(2), pagination.TotalItems)

	index.On("Search", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("cluster down")).Once()
	results, _, err = f.service.SearchListings(ctx, SearchQuery{Text: "guitar"})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	index.AssertExpectations(t)
}

func TestIndexFailureDoesNotFailWrites(t *testing.T) {
	index := new(MockSearchIndex)
	f := newListingFixture(t, index)
	index.On("Index", mock.Anything, mock.Anything).Return(errors.New("cluster down"))

	l, err := f.service.CreateListing(context.Background(), f.owner, guitarLessons())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, l.ID)
}

func TestSuspendAndReinstate(t *testing.T) {
	f := newListingFixture(t, nil)
	ctx := context.Background()

	req := guitarLessons()
	req.Publish = true
	l, err := f.service.CreateListing(ctx, f.owner, req)
	require.NoError(t, err)

	suspended, err := f.service.SuspendListing(ctx, l.ID, "Spam")
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, suspended.Status)
	require.NotNil(t, suspended.SuspendedReason)

	title := "Guitar lessons again"
	_, err = f.service.UpdateListing(ctx, f.owner, l.ID, UpdateListingRequest{Title: &title})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.service.PublishListing(ctx, f.owner, l.ID)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	reinstated, err := f.service.ReinstateListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, reinstated.Status)
	assert.Nil(t, reinstated.SuspendedReason)
}

func TestDeleteListing(t *testing.T) {
	f := newListingFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.db.Exec("CREATE TABLE proposals (id TEXT PRIMARY KEY, listing_id TEXT)").Error)

	negotiated, err := f.service.CreateListing(ctx, f.owner, guitarLessons())
	require.NoError(t, err)
	require.NoError(t, f.db.Exec("INSERT INTO proposals (id, listing_id) VALUES (?, ?)", uuid.NewString(), negotiated.ID.String()).Error)

	err = f.service.DeleteListing(ctx, f.owner, negotiated.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	fresh, err := f.service.CreateListing(ctx, f.owner, guitarLessons())
	require.NoError(t, err)
	assert.ErrorIs(t, f.service.DeleteListing(ctx, f.other, fresh.ID), common.ErrForbidden)
	require.NoError(t, f.service.DeleteListing(ctx, f.owner, fresh.ID))

	_, err = f.service.GetListing(ctx, shared.Session{UserID: f.owner}, fresh.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUploadAndDeleteMedia(t *testing.T) {
	f := newListingFixture(t, nil)
	ctx := context.Background()

	l, err := f.service.CreateListing(ctx, f.owner, guitarLessons())
	require.NoError(t, err)

	first, err := f.service.UploadMedia(ctx, f.owner, l.ID, testutil.FileHeader(t, "file", "a.png", testutil.PNG))
	require.NoError(t, err)
	second, err := f.service.UploadMedia(ctx, f.owner, l.ID, testutil.FileHeader(t, "file", "b.png", testutil.PNG))
	require.NoError(t, err)
	assert.Equal(t, 0, first.SortOrder)
	assert.Equal(t, 1, second.SortOrder)
	assert.Contains(t, first.URL, "http://media.test/listing-media/"+f.owner.String()+"/")

	_, err = f.service.UploadMedia(ctx, f.other, l.ID, testutil.FileHeader(t, "file", "c.png", testutil.PNG))
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.service.UploadMedia(ctx, f.owner, l.ID, testutil.FileHeader(t, "file", "notes.txt", []byte("plain text")))
	assert.ErrorIs(t, err, common.ErrBadRequest)

	require.NoError(t, f.service.DeleteMedia(ctx, f.owner, l.ID, first.ID))
	got, err := f.service.GetListing(ctx, shared.Session{UserID: f.owner}, l.ID)
	require.NoError(t, err)
	require.Len(t, got.Media, 1)
	assert.Equal(t, second.ID, got.Media[0].ID)
}

func TestCreateListing_RejectsUnknownCategory(t *testing.T) {
	f := newListingFixture(t, nil)
	req := guitarLessons()
	missing := uuid.New()
	req.CategoryID = &missing

	_, err := f.service.CreateListing(context.Background(), f.owner, req)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}
