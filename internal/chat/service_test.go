package chat

import (
	"context"
	"testing"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/realtime"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/testutil"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// MockListingReader is a mock type for ListingReader
type MockListingReader struct {
	mock.Mock
}

func (m *MockListingReader) GetListing(ctx context.Context, viewer shared.Session, id uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, viewer, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

// MockFilter is a mock type for moderation.Filter
type MockFilter struct {
	mock.Mock
}

func (m *MockFilter) Check(ctx context.Context, texts ...string) error {
	return m.Called(ctx, texts).Error(0)
}

// MockNotifier is a mock type for notification.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, in notification.Input) (*notification.Notification, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

type ChatServiceTestSuite struct {
	suite.Suite
	service  *ServiceImplementation
	listings *MockListingReader
	filter   *MockFilter
	notifier *MockNotifier
	broker   *realtime.MemoryBroker
	owner    shared.Session
	visitor  shared.Session
	listing  *listing.Listing
}

func (s *ChatServiceTestSuite) SetupTest() {
	db := testutil.NewDB(s.T(), &user.User{}, &Chat{}, &Message{})
	s.listings = new(MockListingReader)
	s.filter = new(MockFilter)
	s.notifier = new(MockNotifier)
	s.broker = realtime.NewMemoryBroker(zap.NewNop())
	s.service = NewService(NewGORMRepository(db), s.listings, s.filter, s.notifier, s.broker, zap.NewNop())

	s.owner = shared.Session{UserID: uuid.New(), Role: common.RoleUser}
	s.visitor = shared.Session{UserID: uuid.New(), Role: common.RoleUser}
	s.listing = &listing.Listing{OwnerID: s.owner.UserID, Status: listing.StatusPublished}
	s.listing.ID = uuid.New()
	s.listings.On("GetListing", mock.Anything, mock.Anything, s.listing.ID).Return(s.listing, nil)
	s.filter.On("Check", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func TestChatServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceTestSuite))
}

func (s *ChatServiceTestSuite) TestOpenChat_OnePerListingAndPair() {
	ctx := context.Background()

	first, created, err := s.service.OpenChat(ctx, s.visitor, OpenChatRequest{ListingID: s.listing.ID})
	s.Require().NoError(err)
	s.True(created)
	s.True(first.IsParticipant(s.owner.UserID))
	s.True(first.IsParticipant(s.visitor.UserID))

	again, created, err := s.service.OpenChat(ctx, s.visitor, OpenChatRequest{ListingID: s.listing.ID})
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, again.ID)

	fromOwner, created, err := s.service.OpenChat(ctx, s.owner, OpenChatRequest{ListingID: s.listing.ID, WithUserID: &s.visitor.UserID})
	s.Require().NoError(err)
	s.False(created, "the owner answering reuses the same chat")
	s.Equal(first.ID, fromOwner.ID)

	_, _, err = s.service.OpenChat(ctx, s.owner, OpenChatRequest{ListingID: s.listing.ID})
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *ChatServiceTestSuite) TestSendMessage() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, unsubscribe, err := s.broker.Subscribe(ctx, s.owner.UserID)
	s.Require().NoError(err)
	defer unsubscribe()

	c, _, err := s.service.OpenChat(ctx, s.visitor, OpenChatRequest{ListingID: s.listing.ID})
	s.Require().NoError(err)

	m, err := s.service.SendMessage(ctx, s.visitor.UserID, c.ID, SendMessageRequest{Body: "  Still available?  "})
	s.Require().NoError(err)
	s.Equal("Still available?", m.Body)

	select {
	case ev := <-events:
		s.Equal(realtime.TableChatMessages, ev.Table)
		s.Equal(m.ID, ev.RowID)
	case <-time.After(time.Second):
		s.Fail("no realtime event for the recipient")
	}
	s.notifier.AssertCalled(s.T(), "Notify", mock.Anything, mock.MatchedBy(func(in notification.Input) bool {
		return in.UserID == s.owner.UserID && in.Type == notification.TypeMessageReceived && *in.RelatedID == c.ID
	}))

	chat, err := s.service.GetChat(ctx, s.owner.UserID, c.ID)
	s.Require().NoError(err)
	s.NotNil(chat.LastMessageAt)

	_, err = s.service.SendMessage(ctx, uuid.New(), c.ID, SendMessageRequest{Body: "hi"})
	s.ErrorIs(err, common.ErrNotFound, "outsiders cannot post")
	_, err = s.service.SendMessage(ctx, s.visitor.UserID, c.ID, SendMessageRequest{Body: "   "})
	s.ErrorIs(err, common.ErrBadRequest)
}

func (s *ChatServiceTestSuite) TestSendMessage_FilteredText() {
	ctx := context.Background()
	c, _, err := s.service.OpenChat(ctx, s.visitor, OpenChatRequest{ListingID: s.listing.ID})
	s.Require().NoError(err)

	s.filter.ExpectedCalls = nil
	s.filter.On("Check", mock.Anything, []string{"pay me in advance"}).Return(common.ErrUnprocessableEntity)

	_, err = s.service.SendMessage(ctx, s.visitor.UserID, c.ID, SendMessageRequest{Body: "pay me in advance"})
	s.ErrorIs(err, common.ErrUnprocessableEntity)

	messages, _, err := s.service.ListMessages(ctx, s.visitor.UserID, c.ID, 1, 20)
	s.Require().NoError(err)
	s.Empty(messages)
	s.notifier.AssertNotCalled(s.T(), "Notify", mock.Anything, mock.Anything)
}

func (s *ChatServiceTestSuite) TestListAndMarkRead() {
	ctx := context.Background()
	c, _, err := s.service.OpenChat(ctx, s.visitor, OpenChatRequest{ListingID: s.listing.ID})
	s.Require().NoError(err)
	for _, body := range []string{"one", "two"} {
		_, err := s.service.SendMessage(ctx, s.visitor.UserID, c.ID, SendMessageRequest{Body: body})
		s.Require().NoError(err)
	}
	_, err = s.service.SendMessage(ctx, s.owner.UserID, c.ID, SendMessageRequest{Body: "reply"})
	s.Require().NoError(err)

	messages, pagination, err := s.service.ListMessages(ctx, s.owner.UserID, c.ID, 1, 20)
	s.Require().NoError(err)
	s.Len(messages, 3)
	s.EqualValues(3, pagination.TotalItems)

	count, err := s.service.MarkRead(ctx, s.owner.UserID, c.ID)
	s.Require().NoError(err)
	s.EqualValues(2, count, "only the other side's messages are marked")

	chats, _, err := s.service.ListMyChats(ctx, s.visitor.UserID, 1, 20)
	s.Require().NoError(err)
	s.Len(chats, 1)

	_, _, err = s.service.ListMessages(ctx, uuid.New(), c.ID, 1, 20)
	s.ErrorIs(err, common.ErrNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := make([]rune, 100)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(preview(string(long)))
	require.Len(t, got, previewRunes+1)
	assert.Equal(t, '…', got[previewRunes])
}
