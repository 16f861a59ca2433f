package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock type for notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil && n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, unreadOnly, page, pageSize)
	var notifications []Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]Notification)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return notifications, pagination, args.Error(2)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*Notification, error) {
	args := m.Called(ctx, id, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID, types ...Type) (int64, error) {
	args := m.Called(ctx, userID, types)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) UnreadIDs(ctx context.Context, userID uuid.UUID, types ...Type) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type NotificationServiceTestSuite struct {
	service       Service
	mockNotifRepo *MockNotificationRepository
	broker        *realtime.MemoryBroker
}

func setupNotificationServiceTestSuite(t *testing.T) *NotificationServiceTestSuite {
	ts := &NotificationServiceTestSuite{
		mockNotifRepo: new(MockNotificationRepository),
		broker:        realtime.NewMemoryBroker(zap.NewNop()),
	}
	ts.service = NewService(ts.mockNotifRepo, ts.broker, zap.NewNop())
	return ts
}

func TestNotificationService_Notify_PublishesRow(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	exchangeID := uuid.New()

	events, cancel, err := ts.broker.Subscribe(ctx, userID)
	require.NoError(t, err)
	defer cancel()

	ts.mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Run(func(args mock.Arguments) {
		n := args.Get(1).(*Notification)
		assert.Equal(t, userID, n.UserID)
		assert.Equal(t, TypeExchangeUpdate, n.Type)
		assert.Equal(t, "Exchange update", n.Title, "title defaults from the type")
		assert.Nil(t, n.ReadAt)
	}).Return(nil)

	created, err := ts.service.Notify(ctx, Input{
		UserID:      userID,
		Type:        TypeExchangeUpdate,
		Message:     "The exchange has started.",
		RelatedType: "exchange",
		RelatedID:   &exchangeID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	select {
	case ev := <-events:
		assert.Equal(t, realtime.TableNotifications, ev.Table)
		assert.Equal(t, realtime.ActionInsert, ev.Action)
		assert.Equal(t, created.ID, ev.RowID)
		assert.Contains(t, string(ev.Row), `"type":"exchange_update"`)
	case <-time.After(time.Second):
		t.Fatal("expected a realtime insert event")
	}
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_Notify_Validation(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)

	_, err := ts.service.Notify(context.Background(), Input{Type: TypeExchangeUpdate, Message: "x"})

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrBadRequest.Code, apiErr.Code)
	ts.mockNotifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotificationService_Notify_RepoError(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	ts.mockNotifRepo.On("Create", ctx, mock.Anything).Return(errors.New("repo error"))

	created, err := ts.service.Notify(ctx, Input{UserID: uuid.New(), Type: TypeProposalReceived, Message: "hi"})

	assert.Nil(t, created)
	apiErr, ok := err.(*common.APIError)
	require.True(t, ok)
	assert.Equal(t, common.ErrInternalServer.Code, apiErr.Code)
}

func TestNotificationService_MarkRead_NotFoundPassesThrough(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()
	ts.mockNotifRepo.On("MarkRead", ctx, id, userID, mock.Anything).Return(nil, common.ErrNotFound.WithDetails("Notification not found."))

	_, err := ts.service.MarkRead(ctx, userID, id)

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNotificationService_MarkAllRead_PublishesBulkRead(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	events, cancel, err := ts.broker.Subscribe(ctx, userID)
	require.NoError(t, err)
	defer cancel()

	ts.mockNotifRepo.On("MarkAllRead", ctx, userID, mock.Anything).Return(int64(3), nil)

	count, err := ts.service.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	select {
	case ev := <-events:
		assert.Equal(t, realtime.ActionBulkRead, ev.Action)
		assert.Nil(t, ev.Row)
	case <-time.After(time.Second):
		t.Fatal("expected a bulk_read event")
	}
}
