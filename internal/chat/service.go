// Package chat is the per-listing conversation between two members.
package chat

import (
	"context"
	"strings"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/moderation"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/realtime"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingReader resolves the listing a chat is about.
type ListingReader interface {
	GetListing(ctx context.Context, viewer shared.Session, id uuid.UUID) (*listing.Listing, error)
}

type Service interface {
	OpenChat(ctx context.Context, viewer shared.Session, req OpenChatRequest) (*Chat, bool, error)
	GetChat(ctx context.Context, userID, chatID uuid.UUID) (*Chat, error)
	ListMyChats(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Chat, *common.Pagination, error)
	SendMessage(ctx context.Context, senderID, chatID uuid.UUID, req SendMessageRequest) (*Message, error)
	ListMessages(ctx context.Context, userID, chatID uuid.UUID, page, pageSize int) ([]Message, *common.Pagination, error)
	MarkRead(ctx context.Context, userID, chatID uuid.UUID) (int64, error)
}

type ServiceImplementation struct {
	repo     Repository
	listings ListingReader
	filter   moderation.Filter
	notifier notification.Notifier
	broker   realtime.Broker
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, listings ListingReader, filter moderation.Filter, notifier notification.Notifier, broker realtime.Broker, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		listings: listings,
		filter:   filter,
		notifier: notifier,
		broker:   broker,
		logger:   logger.Named("ChatService"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ServiceImplementation) wrap(err error, msg string) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return common.ErrInternalServer.WithDetails(msg)
}

// OpenChat resolves the counterpart from the listing: a visitor talks to
// the owner, and the owner must name the member they answer.
func (s *ServiceImplementation) OpenChat(ctx context.Context, viewer shared.Session, req OpenChatRequest) (*Chat, bool, error) {
	l, err := s.listings.GetListing(ctx, viewer, req.ListingID)
	if err != nil {
		return nil, false, s.wrap(err, "Could not retrieve listing.")
	}
	other := l.OwnerID
	if l.IsOwnedBy(viewer.UserID) {
		if req.WithUserID == nil || *req.WithUserID == viewer.UserID {
			return nil, false, common.ErrBadRequest.WithDetails("with_user_id is required to open a chat on your own listing.")
		}
		other = *req.WithUserID
	}
	c, created, err := s.repo.FindOrCreate(ctx, l.ID, viewer.UserID, other)
	if err != nil {
		return nil, false, s.wrap(err, "Could not open chat.")
	}
	if created {
		s.logger.Info("Chat opened", zap.String("chatID", c.ID.String()), zap.String("listingID", l.ID.String()))
	}
	return c, created, nil
}

func (s *ServiceImplementation) GetChat(ctx context.Context, userID, chatID uuid.UUID) (*Chat, error) {
	c, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve chat.")
	}
	if !c.IsParticipant(userID) {
		return nil, common.ErrNotFound.WithDetails("Chat not found.")
	}
	return c, nil
}

func (s *ServiceImplementation) ListMyChats(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Chat, *common.Pagination, error) {
	chats, pagination, err := s.repo.ListForUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve chats.")
	}
	return chats, pagination, nil
}

func (s *ServiceImplementation) SendMessage(ctx context.Context, senderID, chatID uuid.UUID, req SendMessageRequest) (*Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, common.ErrBadRequest.WithDetails("Message cannot be empty.")
	}
	c, err := s.GetChat(ctx, senderID, chatID)
	if err != nil {
		return nil, err
	}
	if s.filter != nil {
		if err := s.filter.Check(ctx, body); err != nil {
			return nil, err
		}
	}

	now := s.now()
	m := &Message{ChatID: c.ID, SenderID: senderID, Body: body}
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, s.wrap(err, "Could not send message.")
	}

	recipient := c.Other(senderID)
	s.publish(ctx, realtime.ActionInsert, m, senderID, recipient)
	if s.notifier != nil {
		chatRef := c.ID
		_, err := s.notifier.Notify(ctx, notification.Input{
			UserID:      recipient,
			Type:        notification.TypeMessageReceived,
			Message:     preview(body),
			RelatedType: "chat",
			RelatedID:   &chatRef,
		})
		if err != nil {
			s.logger.Warn("Failed to send message notification", zap.Error(err), zap.String("chatID", c.ID.String()))
		}
	}
	return m, nil
}

func (s *ServiceImplementation) ListMessages(ctx context.Context, userID, chatID uuid.UUID, page, pageSize int) ([]Message, *common.Pagination, error) {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return nil, nil, err
	}
	messages, pagination, err := s.repo.ListMessages(ctx, chatID, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve messages.")
	}
	return messages, pagination, nil
}

func (s *ServiceImplementation) MarkRead(ctx context.Context, userID, chatID uuid.UUID) (int64, error) {
	c, err := s.GetChat(ctx, userID, chatID)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.MarkRead(ctx, c.ID, userID, s.now())
	if err != nil {
		return 0, s.wrap(err, "Could not mark messages as read.")
	}
	return count, nil
}

func (s *ServiceImplementation) publish(ctx context.Context, action realtime.Action, m *Message, audience ...uuid.UUID) {
	if s.broker == nil {
		return
	}
	row := ToMessageResponse(m)
	for _, userID := range audience {
		ev, err := realtime.NewEvent(realtime.TableChatMessages, action, userID, m.ID, row)
		if err == nil {
			err = s.broker.Publish(ctx, ev)
		}
		if err != nil {
			s.logger.Warn("Failed to publish chat event", zap.Error(err), zap.String("messageID", m.ID.String()))
		}
	}
}

const previewRunes = 80

func preview(body string) string {
	r := []rune(body)
	if len(r) <= previewRunes {
		return body
	}
	return string(r[:previewRunes]) + "…"
}
