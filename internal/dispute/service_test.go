package dispute

import (
	"context"
	"testing"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockNotifier is a mock type for notification.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, in notification.Input) (*notification.Notification, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

type disputeFixture struct {
	db       *gorm.DB
	service  *ServiceImplementation
	notifier *MockNotifier
	alice    uuid.UUID
	bob      uuid.UUID
}

func newDisputeFixture(t *testing.T) *disputeFixture {
	t.Helper()
	db := testutil.NewDB(t, &exchange.Exchange{}, &Dispute{})
	f := &disputeFixture{db: db, notifier: new(MockNotifier), alice: uuid.New(), bob: uuid.New()}
	f.service = NewService(NewGORMRepository(db), exchange.NewGORMRepository(db), f.notifier, zap.NewNop())
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func (f *disputeFixture) exchangeIn(t *testing.T, status exchange.Status) *exchange.Exchange {
	t.Helper()
	e := &exchange.Exchange{ContractID: uuid.New(), ListingID: uuid.New(), FromUserID: f.alice, ToUserID: f.bob, Status: status}
	require.NoError(t, f.db.Omit("Contract").Create(e).Error)
	return e
}

func openRequest(e *exchange.Exchange) OpenDisputeRequest {
	return OpenDisputeRequest{ExchangeID: e.ID, Reason: "not_delivered", Description: "Nothing arrived after two weeks."}
}

func TestOpenDispute(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()

	for _, status := range []exchange.Status{exchange.StatusNotStarted, exchange.StatusInProgress, exchange.StatusDelivered, exchange.StatusCancelled} {
		e := f.exchangeIn(t, status)
		d, err := f.service.OpenDispute(ctx, f.alice, openRequest(e))
		require.NoError(t, err, status)
		assert.Equal(t, StatusOpen, d.Status)
		assert.Equal(t, f.bob, d.AgainstUserID)

		var stored exchange.Exchange
		require.NoError(t, f.db.First(&stored, "id = ?", e.ID).Error)
		assert.Equal(t, status, stored.Status, "opening a dispute leaves the exchange alone")
	}

	confirmed := f.exchangeIn(t, exchange.StatusConfirmed)
	_, err := f.service.OpenDispute(ctx, f.alice, openRequest(confirmed))
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	other := f.exchangeIn(t, exchange.StatusInProgress)
	_, err = f.service.OpenDispute(ctx, uuid.New(), openRequest(other))
	assert.ErrorIs(t, err, common.ErrNotAParty)

	f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(in notification.Input) bool {
		return in.UserID == f.bob && in.Type == notification.TypeDisputeUpdate
	}))
}

func TestOneUnresolvedDisputePerExchange(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()
	e := f.exchangeIn(t, exchange.StatusDelivered)

	first, err := f.service.OpenDispute(ctx, f.alice, openRequest(e))
	require.NoError(t, err)
	_, err = f.service.OpenDispute(ctx, f.bob, openRequest(e))
	assert.ErrorIs(t, err, common.ErrConflict)

	moderator := uuid.New()
	_, err = f.service.UpdateStatus(ctx, moderator, first.ID, UpdateStatusRequest{Status: StatusDismissed, ResolutionNote: "Parcel tracking shows delivery."})
	require.NoError(t, err)

	_, err = f.service.OpenDispute(ctx, f.bob, openRequest(e))
	assert.NoError(t, err, "a new dispute may follow a closed one")
}

func TestUpdateStatus(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()
	moderator := uuid.New()
	d, err := f.service.OpenDispute(ctx, f.alice, openRequest(f.exchangeIn(t, exchange.StatusInProgress)))
	require.NoError(t, err)

	reviewing, err := f.service.UpdateStatus(ctx, moderator, d.ID, UpdateStatusRequest{Status: StatusInReview})
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, reviewing.Status)
	assert.Nil(t, reviewing.ResolvedAt)

	_, err = f.service.UpdateStatus(ctx, moderator, d.ID, UpdateStatusRequest{Status: StatusResolved})
	assert.ErrorIs(t, err, common.ErrBadRequest, "closing needs a note")

	resolved, err := f.service.UpdateStatus(ctx, moderator, d.ID, UpdateStatusRequest{Status: StatusResolved, ResolutionNote: "Bob will redeliver."})
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolutionNote)
	assert.Equal(t, "Bob will redeliver.", *resolved.ResolutionNote)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = f.service.UpdateStatus(ctx, moderator, d.ID, UpdateStatusRequest{Status: StatusInReview})
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestGetDisputeVisibility(t *testing.T) {
	f := newDisputeFixture(t)
	ctx := context.Background()
	d, err := f.service.OpenDispute(ctx, f.alice, openRequest(f.exchangeIn(t, exchange.StatusInProgress)))
	require.NoError(t, err)

	_, err = f.service.GetDispute(ctx, shared.Session{UserID: f.bob, Role: common.RoleUser}, d.ID)
	assert.NoError(t, err)
	_, err = f.service.GetDispute(ctx, shared.Session{UserID: uuid.New(), Role: common.RoleUser}, d.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.service.GetDispute(ctx, shared.Session{UserID: uuid.New(), Role: common.RoleAdmin}, d.ID)
	assert.NoError(t, err)

	mine, _, err := f.service.ListMyDisputes(ctx, f.bob, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	queue, _, err := f.service.ListDisputes(ctx, StatusOpen, 1, 10)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}
