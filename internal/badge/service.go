// Package badge computes the unread/pending counters shown on the client's
// navigation tabs and keeps them live over a realtime subscription.
package badge

import (
	"context"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProposalCounter is the slice of the proposal service badges need.
type ProposalCounter interface {
	CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int64, error)
	PendingIncomingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// UnreadCounter is the slice of the notification service badges need.
type UnreadCounter interface {
	CountUnread(ctx context.Context, userID uuid.UUID, types ...notification.Type) (int64, error)
	UnreadIDs(ctx context.Context, userID uuid.UUID, types ...notification.Type) ([]uuid.UUID, error)
}

type Service interface {
	Counts(ctx context.Context, userID uuid.UUID) (*Counts, error)
	// Watch subscribes before taking the snapshot so no change slips
	// between the two. The returned channel yields the initial counts and
	// then every change; it closes when ctx ends.
	Watch(ctx context.Context, userID uuid.UUID) (<-chan Counts, error)
}

type ServiceImplementation struct {
	proposals     ProposalCounter
	notifications UnreadCounter
	broker        realtime.Broker
	logger        *zap.Logger
}

func NewService(proposals ProposalCounter, notifications UnreadCounter, broker realtime.Broker, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		proposals:     proposals,
		notifications: notifications,
		broker:        broker,
		logger:        logger.Named("BadgeService"),
	}
}

// Counts runs the three count queries independently.
func (s *ServiceImplementation) Counts(ctx context.Context, userID uuid.UUID) (*Counts, error) {
	var counts Counts
	var err error
	if counts.PendingProposals, err = s.proposals.CountPendingIncoming(ctx, userID); err != nil {
		return nil, err
	}
	if counts.UnreadNotifications, err = s.notifications.CountUnread(ctx, userID); err != nil {
		return nil, err
	}
	if counts.UnreadExchanges, err = s.notifications.CountUnread(ctx, userID, notification.TypeExchangeUpdate); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (s *ServiceImplementation) snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.PendingProposals, err = s.proposals.PendingIncomingIDs(ctx, userID); err != nil {
		return snap, err
	}
	if snap.UnreadNotifications, err = s.notifications.UnreadIDs(ctx, userID); err != nil {
		return snap, err
	}
	snap.UnreadExchanges, err = s.notifications.UnreadIDs(ctx, userID, notification.TypeExchangeUpdate)
	return snap, err
}

func (s *ServiceImplementation) Watch(ctx context.Context, userID uuid.UUID) (<-chan Counts, error) {
	if s.broker == nil {
		return nil, common.ErrServiceUnavailable.WithDetails("Live updates are not available.")
	}
	events, cancel, err := s.broker.Subscribe(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to subscribe to badge events", zap.Error(err), zap.String("userID", userID.String()))
		return nil, common.ErrServiceUnavailable.WithDetails("Live updates are not available.")
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		cancel()
		return nil, err
	}
	tracker := NewTracker(userID, snap)

	out := make(chan Counts, 1)
	out <- tracker.Counts()
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Action == realtime.ActionResync {
					snap, err := s.snapshot(ctx, userID)
					if err != nil {
						s.logger.Error("Failed to reload badge counts", zap.Error(err), zap.String("userID", userID.String()))
						return
					}
					tracker = NewTracker(userID, snap)
				} else if !tracker.Apply(ev) {
					continue
				}
				select {
				case out <- tracker.Counts():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
