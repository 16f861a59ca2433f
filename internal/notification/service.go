package notification

import (
	"context"
	"strings"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier is the slice of the service other domains depend on.
type Notifier interface {
	Notify(ctx context.Context, in Input) (*Notification, error)
}

type Service interface {
	Notifier
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID, types ...Type) (int64, error)
	UnreadIDs(ctx context.Context, userID uuid.UUID, types ...Type) ([]uuid.UUID, error)
}

type ServiceImplementation struct {
	repo   Repository
	broker realtime.Broker
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, broker realtime.Broker, logger *zap.Logger) Service {
	return &ServiceImplementation{
		repo:   repo,
		broker: broker,
		logger: logger.Named("NotificationService"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Notify stores the notification and publishes it to the recipient.
func (s *ServiceImplementation) Notify(ctx context.Context, in Input) (*Notification, error) {
	if in.UserID == uuid.Nil || in.Type == "" || strings.TrimSpace(in.Message) == "" {
		return nil, common.ErrBadRequest.WithDetails("Notification requires a recipient, a type and a message.")
	}
	title := in.Title
	if title == "" {
		title = defaultTitle(in.Type)
	}
	n := &Notification{
		UserID:      in.UserID,
		Type:        in.Type,
		Title:       title,
		Message:     in.Message,
		RelatedType: in.RelatedType,
		RelatedID:   in.RelatedID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.Error(err), zap.String("userID", in.UserID.String()), zap.String("type", string(in.Type)))
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}
	s.publish(ctx, realtime.ActionInsert, n)
	return n, nil
}

func (s *ServiceImplementation) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, *common.Pagination, error) {
	notifications, pagination, err := s.repo.ListByUser(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Error(err), zap.String("userID", userID.String()))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return notifications, pagination, nil
}

func (s *ServiceImplementation) MarkRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID, s.now())
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to mark notification as read", zap.Error(err), zap.String("notificationID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not mark notification as read.")
	}
	s.publish(ctx, realtime.ActionUpdate, n)
	return n, nil
}

// MarkAllRead publishes one bulk_read event rather than one per row.
func (s *ServiceImplementation) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	at := s.now()
	count, err := s.repo.MarkAllRead(ctx, userID, at)
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.Error(err), zap.String("userID", userID.String()))
		return 0, common.ErrInternalServer.WithDetails("Could not mark notifications as read.")
	}
	if count > 0 && s.broker != nil {
		ev := realtime.Event{Table: realtime.TableNotifications, Action: realtime.ActionBulkRead, UserID: userID, At: at}
		if err := s.broker.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish bulk read event", zap.Error(err))
		}
	}
	return count, nil
}

func (s *ServiceImplementation) CountUnread(ctx context.Context, userID uuid.UUID, types ...Type) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID, types...)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.Error(err))
		return 0, common.ErrInternalServer
	}
	return count, nil
}

func (s *ServiceImplementation) UnreadIDs(ctx context.Context, userID uuid.UUID, types ...Type) ([]uuid.UUID, error) {
	ids, err := s.repo.UnreadIDs(ctx, userID, types...)
	if err != nil {
		s.logger.Error("Failed to list unread notifications", zap.Error(err))
		return nil, common.ErrInternalServer
	}
	return ids, nil
}

func (s *ServiceImplementation) publish(ctx context.Context, action realtime.Action, n *Notification) {
	if s.broker == nil {
		return
	}
	ev, err := realtime.NewEvent(realtime.TableNotifications, action, n.UserID, n.ID, n)
	if err == nil {
		err = s.broker.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("Failed to publish notification event", zap.Error(err), zap.String("notificationID", n.ID.String()))
	}
}

func defaultTitle(t Type) string {
	switch t {
	case TypeProposalReceived:
		return "New proposal"
	case TypeProposalAccepted:
		return "Proposal accepted"
	case TypeProposalRefused:
		return "Proposal refused"
	case TypeProposalCountered:
		return "Counter-proposal"
	case TypeProposalCancelled:
		return "Proposal cancelled"
	case TypeContractUpdate:
		return "Contract update"
	case TypeExchangeUpdate:
		return "Exchange update"
	case TypeDisputeUpdate:
		return "Dispute update"
	case TypeReviewReceived:
		return "New review"
	case TypeMessageReceived:
		return "New message"
	default:
		return "Notification"
	}
}
