package review

import (
	"context"
	"testing"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/testutil"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
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

type reviewFixture struct {
	db       *gorm.DB
	service  *ServiceImplementation
	notifier *MockNotifier
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	db := testutil.NewDB(t, &user.User{}, &exchange.Exchange{}, &Review{})
	f := &reviewFixture{db: db, notifier: new(MockNotifier)}
	f.service = NewService(NewGORMRepository(db), exchange.NewGORMRepository(db), f.notifier, zap.NewNop())
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func (f *reviewFixture) member(t *testing.T, name string) *user.User {
	t.Helper()
	u := &user.User{DisplayName: name}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *reviewFixture) exchangeBetween(t *testing.T, from, to uuid.UUID, status exchange.Status) *exchange.Exchange {
	t.Helper()
	e := &exchange.Exchange{ContractID: uuid.New(), ListingID: uuid.New(), FromUserID: from, ToUserID: to, Status: status}
	require.NoError(t, f.db.Omit("Contract").Create(e).Error)
	return e
}

func (f *reviewFixture) reload(t *testing.T, id uuid.UUID) user.User {
	t.Helper()
	var u user.User
	require.NoError(t, f.db.First(&u, "id = ?", id).Error)
	return u
}

func TestSubmitReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	alice, bob := f.member(t, "Alice"), f.member(t, "Bob")
	e := f.exchangeBetween(t, alice.ID, bob.ID, exchange.StatusConfirmed)

	comment := "  Punctual and friendly.  "
	r, err := f.service.SubmitReview(ctx, alice.ID, SubmitReviewRequest{
		ExchangeID: e.ID,
		Rating:     4,
		Tags:       []string{"punctual", " punctual ", "friendly"},
		Comment:    &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, r.RevieweeID)
	assert.Equal(t, common.StringList{"punctual", "friendly"}, r.Tags)
	require.NotNil(t, r.Comment)
	assert.Equal(t, "Punctual and friendly.", *r.Comment)

	stored := f.reload(t, bob.ID)
	assert.InDelta(t, 4.0, stored.RatingAvg, 1e-9)
	assert.Equal(t, 1, stored.RatingCount)

	_, err = f.service.SubmitReview(ctx, alice.ID, SubmitReviewRequest{ExchangeID: e.ID, Rating: 2})
	assert.ErrorIs(t, err, common.ErrAlreadyReviewed)
	assert.Equal(t, 1, f.reload(t, bob.ID).RatingCount, "a rejected duplicate leaves the rating alone")

	_, err = f.service.SubmitReview(ctx, bob.ID, SubmitReviewRequest{ExchangeID: e.ID, Rating: 5})
	require.NoError(t, err, "each party reviews once")
	assert.InDelta(t, 5.0, f.reload(t, alice.ID).RatingAvg, 1e-9)

	f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(in notification.Input) bool {
		return in.UserID == bob.ID && in.Type == notification.TypeReviewReceived
	}))
}

func TestSubmitReview_Rejections(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	alice, bob := f.member(t, "Alice"), f.member(t, "Bob")

	for _, status := range []exchange.Status{exchange.StatusNotStarted, exchange.StatusInProgress, exchange.StatusDelivered, exchange.StatusCancelled} {
		e := f.exchangeBetween(t, alice.ID, bob.ID, status)
		_, err := f.service.SubmitReview(ctx, alice.ID, SubmitReviewRequest{ExchangeID: e.ID, Rating: 5})
		assert.ErrorIs(t, err, common.ErrUnprocessableEntity, status)
	}

	confirmed := f.exchangeBetween(t, alice.ID, bob.ID, exchange.StatusConfirmed)
	_, err := f.service.SubmitReview(ctx, uuid.New(), SubmitReviewRequest{ExchangeID: confirmed.ID, Rating: 5})
	assert.ErrorIs(t, err, common.ErrNotAParty)

	_, err = f.service.SubmitReview(ctx, alice.ID, SubmitReviewRequest{ExchangeID: confirmed.ID, Rating: 6})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = f.service.SubmitReview(ctx, alice.ID, SubmitReviewRequest{ExchangeID: uuid.New(), Rating: 3})
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.Zero(t, f.reload(t, bob.ID).RatingCount)
}

func TestListReviews(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.member(t, "Alice"), f.member(t, "Bob"), f.member(t, "Carol")

	first := f.exchangeBetween(t, alice.ID, bob.ID, exchange.StatusConfirmed)
	second := f.exchangeBetween(t, carol.ID, bob.ID, exchange.StatusConfirmed)
	_, err := f.service.SubmitReview(ctx, alice.ID, SubmitReviewRequest{ExchangeID: first.ID, Rating: 3})
	require.NoError(t, err)
	_, err = f.service.SubmitReview(ctx, carol.ID, SubmitReviewRequest{ExchangeID: second.ID, Rating: 5})
	require.NoError(t, err)

	reviews, pagination, err := f.service.ListUserReviews(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.EqualValues(t, 2, pagination.TotalItems)
	for _, r := range reviews {
		require.NotNil(t, r.Reviewer)
	}
	assert.InDelta(t, 4.0, f.reload(t, bob.ID).RatingAvg, 1e-9)

	got, err := f.service.GetExchangeReviews(ctx, shared.Session{UserID: alice.ID, Role: common.RoleUser}, first.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.service.GetExchangeReviews(ctx, shared.Session{UserID: carol.ID, Role: common.RoleUser}, first.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err = f.service.GetExchangeReviews(ctx, shared.Session{UserID: uuid.New(), Role: common.RoleModerator}, first.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// The stored average always equals the mean of every rating received.
func TestRatingAverageProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	parameters.MaxSize = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("rating_avg is the mean of all ratings", prop.ForAll(
		func(ratings []int) bool {
			f := newReviewFixture(t)
			ctx := context.Background()
			target := f.member(t, "Target")
			sum := 0
			for _, rating := range ratings {
				reviewer := f.member(t, "Reviewer")
				e := f.exchangeBetween(t, reviewer.ID, target.ID, exchange.StatusConfirmed)
				if _, err := f.service.SubmitReview(ctx, reviewer.ID, SubmitReviewRequest{ExchangeID: e.ID, Rating: rating}); err != nil {
					return false
				}
				sum += rating
			}
			stored := f.reload(t, target.ID)
			if stored.RatingCount != len(ratings) {
				return false
			}
			want := 0.0
			if len(ratings) > 0 {
				want = float64(sum) / float64(len(ratings))
			}
			diff := stored.RatingAvg - want
			return diff < 1e-9 && diff > -1e-9
		},
		gen.SliceOf(gen.IntRange(1, 5)),
	))

	properties.TestingRun(t)
}
