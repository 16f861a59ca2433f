package badge

import (
	"context"
	"errors"
	"testing"
	"time"

	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProposalCounter is a mock type for ProposalCounter
type MockProposalCounter struct {
	mock.Mock
}

func (m *MockProposalCounter) CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProposalCounter) PendingIncomingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

// MockUnreadCounter is a mock type for UnreadCounter
type MockUnreadCounter struct {
	mock.Mock
}

func (m *MockUnreadCounter) CountUnread(ctx context.Context, userID uuid.UUID, types ...notification.Type) (int64, error) {
	args := m.Called(ctx, userID, types)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUnreadCounter) UnreadIDs(ctx context.Context, userID uuid.UUID, types ...notification.Type) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID, types)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

var (
	allTypes      []notification.Type
	exchangeTypes = []notification.Type{notification.TypeExchangeUpdate}
)

func TestCounts(t *testing.T) {
	user := uuid.New()
	proposals, notifications := new(MockProposalCounter), new(MockUnreadCounter)
	proposals.On("CountPendingIncoming", mock.Anything, user).Return(int64(3), nil).Once()
	notifications.On("CountUnread", mock.Anything, user, allTypes).Return(int64(5), nil).Once()
	notifications.On("CountUnread", mock.Anything, user, exchangeTypes).Return(int64(2), nil).Once()

	svc := NewService(proposals, notifications, nil, zap.NewNop())
	counts, err := svc.Counts(context.Background(), user)

	require.NoError(t, err)
	assert.Equal(t, Counts{PendingProposals: 3, UnreadNotifications: 5, UnreadExchanges: 2}, *counts)
	proposals.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func TestCounts_PropagatesFailure(t *testing.T) {
	user := uuid.New()
	proposals, notifications := new(MockProposalCounter), new(MockUnreadCounter)
	proposals.On("CountPendingIncoming", mock.Anything, user).Return(int64(0), errors.New("boom"))

	_, err := NewService(proposals, notifications, nil, zap.NewNop()).Counts(context.Background(), user)
	assert.Error(t, err)
	notifications.AssertNotCalled(t, "CountUnread", mock.Anything, mock.Anything, mock.Anything)
}

func receive(t *testing.T, ch <-chan Counts) Counts {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "stream closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no badge update")
		return Counts{}
	}
}

func TestWatch_MergesEventsWithoutRequerying(t *testing.T) {
	user := uuid.New()
	pending := uuid.New()
	proposals, notifications := new(MockProposalCounter), new(MockUnreadCounter)
	proposals.On("PendingIncomingIDs", mock.Anything, user).Return([]uuid.UUID{pending}, nil).Once()
	notifications.On("UnreadIDs", mock.Anything, user, allTypes).Return([]uuid.UUID{}, nil).Once()
	notifications.On("UnreadIDs", mock.Anything, user, exchangeTypes).Return([]uuid.UUID{}, nil).Once()

	broker := realtime.NewMemoryBroker(zap.NewNop())
	svc := NewService(proposals, notifications, broker, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := svc.Watch(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, Counts{PendingProposals: 1}, receive(t, updates))

	n := notificationRow{ID: uuid.New(), Type: string(notification.TypeExchangeUpdate)}
	ev, err := realtime.NewEvent(realtime.TableNotifications, realtime.ActionInsert, user, n.ID, n)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, ev))
	assert.Equal(t, Counts{PendingProposals: 1, UnreadNotifications: 1, UnreadExchanges: 1}, receive(t, updates))

	row := proposalRow{ID: pending, ToUserID: user, Status: "refused"}
	ev, err = realtime.NewEvent(realtime.TableProposals, realtime.ActionUpdate, user, row.ID, row)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, ev))
	assert.Equal(t, Counts{UnreadNotifications: 1, UnreadExchanges: 1}, receive(t, updates))

	cancel()
	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
	proposals.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func TestWatch_ReloadsCountsAfterDroppedEvents(t *testing.T) {
	user := uuid.New()
	unread := make([]uuid.UUID, 200)
	for i := range unread {
		unread[i] = uuid.New()
	}
	proposals, notifications := new(MockProposalCounter), new(MockUnreadCounter)
	proposals.On("PendingIncomingIDs", mock.Anything, user).Return([]uuid.UUID{}, nil)
	notifications.On("UnreadIDs", mock.Anything, user, allTypes).Return([]uuid.UUID{}, nil).Once()
	notifications.On("UnreadIDs", mock.Anything, user, exchangeTypes).Return([]uuid.UUID{}, nil).Once()
	notifications.On("UnreadIDs", mock.Anything, user, allTypes).Return(unread, nil).Once()
	notifications.On("UnreadIDs", mock.Anything, user, exchangeTypes).Return([]uuid.UUID{}, nil).Once()

	broker := realtime.NewMemoryBroker(zap.NewNop())
	svc := NewService(proposals, notifications, broker, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := svc.Watch(ctx, user)
	require.NoError(t, err)

	// The initial counts are left unread so the watcher stalls and its
	// subscription overflows.
	for _, id := range unread {
		n := notificationRow{ID: id, Type: string(notification.TypeMessageReceived)}
		ev, err := realtime.NewEvent(realtime.TableNotifications, realtime.ActionInsert, user, id, n)
		require.NoError(t, err)
		require.NoError(t, broker.Publish(ctx, ev))
	}

	assert.Equal(t, Counts{}, receive(t, updates))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-updates:
			require.True(t, ok, "stream closed")
			if c.UnreadNotifications == int64(len(unread)) {
				notifications.AssertExpectations(t)
				return
			}
		case <-deadline:
			t.Fatal("badge counts never caught up with the dropped events")
		}
	}
}
