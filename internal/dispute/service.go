package dispute

import (
	"context"
	"strings"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExchangeReader loads the exchange a dispute is opened against.
type ExchangeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*exchange.Exchange, error)
}

type Service interface {
	OpenDispute(ctx context.Context, userID uuid.UUID, req OpenDisputeRequest) (*Dispute, error)
	GetDispute(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Dispute, error)
	ListMyDisputes(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error)

	// Moderation
	ListDisputes(ctx context.Context, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error)
	UpdateStatus(ctx context.Context, moderatorID, id uuid.UUID, req UpdateStatusRequest) (*Dispute, error)
}

type ServiceImplementation struct {
	repo      Repository
	exchanges ExchangeReader
	notifier  notification.Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, exchanges ExchangeReader, notifier notification.Notifier, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		exchanges: exchanges,
		notifier:  notifier,
		logger:    logger.Named("DisputeService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ServiceImplementation) wrap(err error, msg string) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return common.ErrInternalServer.WithDetails(msg)
}

// OpenDispute escalates an exchange. Any state but confirmed can be
// disputed; the exchange status is left as it is.
func (s *ServiceImplementation) OpenDispute(ctx context.Context, userID uuid.UUID, req OpenDisputeRequest) (*Dispute, error) {
	e, err := s.exchanges.FindByID(ctx, req.ExchangeID)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.")
	}
	if !e.IsParty(userID) {
		return nil, common.ErrNotAParty
	}
	if e.Status == exchange.StatusConfirmed {
		return nil, common.ErrInvalidTransition.WithDetails("A confirmed exchange can no longer be disputed.")
	}

	d := &Dispute{
		ExchangeID:    e.ID,
		OpenedBy:      userID,
		AgainstUserID: e.Counterparty(userID),
		Reason:        req.Reason,
		Description:   strings.TrimSpace(req.Description),
		Status:        StatusOpen,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, s.wrap(err, "Could not open dispute.")
	}
	s.logger.Info("Dispute opened", zap.String("disputeID", d.ID.String()), zap.String("exchangeID", e.ID.String()))
	s.notify(ctx, d.AgainstUserID, d, "A dispute was opened on one of your exchanges. The moderation team will review it.")
	return d, nil
}

func (s *ServiceImplementation) GetDispute(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Dispute, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve dispute.")
	}
	if !d.IsParty(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return nil, common.ErrNotFound.WithDetails("Dispute not found.")
	}
	return d, nil
}

func (s *ServiceImplementation) ListMyDisputes(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error) {
	disputes, pagination, err := s.repo.ListForUser(ctx, userID, status, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve disputes.")
	}
	return disputes, pagination, nil
}

func (s *ServiceImplementation) ListDisputes(ctx context.Context, status Status, page, pageSize int) ([]Dispute, *common.Pagination, error) {
	disputes, pagination, err := s.repo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve disputes.")
	}
	return disputes, pagination, nil
}

func (s *ServiceImplementation) UpdateStatus(ctx context.Context, moderatorID, id uuid.UUID, req UpdateStatusRequest) (*Dispute, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve dispute.")
	}
	if !canMove(d.Status, req.Status) {
		return nil, common.ErrInvalidTransition.WithDetails("Cannot move a dispute from " + string(d.Status) + " to " + string(req.Status) + ".")
	}
	note := strings.TrimSpace(req.ResolutionNote)
	if req.Status.IsClosed() && note == "" {
		return nil, common.ErrBadRequest.WithDetails("A resolution note is required to close a dispute.")
	}

	now := s.now()
	fields := map[string]interface{}{"status": req.Status, "handled_by": moderatorID, "updated_at": now}
	if req.Status.IsClosed() {
		fields["resolution_note"] = note
		fields["resolved_at"] = now
	}
	if err := s.repo.UpdateStatus(ctx, id, d.Status, fields); err != nil {
		return nil, s.wrap(err, "Could not update dispute.")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve dispute.")
	}

	message := "Your dispute is being reviewed by the moderation team."
	if req.Status.IsClosed() {
		message = "Your dispute was " + string(req.Status) + ": " + note
	}
	for _, party := range []uuid.UUID{updated.OpenedBy, updated.AgainstUserID} {
		s.notify(ctx, party, updated, message)
	}
	return updated, nil
}

func (s *ServiceImplementation) notify(ctx context.Context, to uuid.UUID, d *Dispute, message string) {
	if s.notifier == nil {
		return
	}
	id := d.ID
	_, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      to,
		Type:        notification.TypeDisputeUpdate,
		Message:     message,
		RelatedType: "dispute",
		RelatedID:   &id,
	})
	if err != nil {
		s.logger.Warn("Failed to send dispute notification", zap.Error(err), zap.String("disputeID", id.String()))
	}
}
