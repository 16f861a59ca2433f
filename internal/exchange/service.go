package exchange

import (
	"context"
	"errors"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/contract"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bontroc_backend/exchange")

// ContractReader loads the contract an exchange fulfils.
type ContractReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error)
}

type Service interface {
	contract.ExchangeOpener
	GetExchange(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Exchange, error)
	GetByContract(ctx context.Context, viewer shared.Session, contractID uuid.UUID) (*Exchange, error)
	ListMyExchanges(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Exchange, *common.Pagination, error)

	Start(ctx context.Context, userID, id uuid.UUID) (*Exchange, error)
	Deliver(ctx context.Context, userID, id uuid.UUID) (*Exchange, error)
	Confirm(ctx context.Context, userID, id uuid.UUID) (*Exchange, error)
	Cancel(ctx context.Context, userID, id uuid.UUID) (*Exchange, error)
}

type ServiceImplementation struct {
	repo      Repository
	contracts ContractReader
	notifier  notification.Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, contracts ContractReader, notifier notification.Notifier, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		contracts: contracts,
		notifier:  notifier,
		logger:    logger.Named("ExchangeService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OpenForContract creates the not_started exchange of c if it has none.
func (s *ServiceImplementation) OpenForContract(ctx context.Context, c *contract.Contract) error {
	_, err := s.repo.CreateIfMissing(ctx, &Exchange{
		ContractID: c.ID,
		ListingID:  c.ListingID,
		FromUserID: c.FromUserID,
		ToUserID:   c.ToUserID,
		Status:     StatusNotStarted,
	})
	return err
}

func (s *ServiceImplementation) wrap(err error, msg string, fields ...zap.Field) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return common.ErrInternalServer.WithDetails(msg)
}

func (s *ServiceImplementation) GetExchange(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Exchange, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.", zap.String("exchangeID", id.String()))
	}
	if !e.IsParty(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return nil, common.ErrNotFound.WithDetails("Exchange not found.")
	}
	return e, nil
}

// GetByContract returns the exchange of a contract, opening it first when
// generation stopped before it was created.
func (s *ServiceImplementation) GetByContract(ctx context.Context, viewer shared.Session, contractID uuid.UUID) (*Exchange, error) {
	c, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve contract.", zap.String("contractID", contractID.String()))
	}
	if !c.IsParty(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return nil, common.ErrNotFound.WithDetails("Contract not found.")
	}
	e, err := s.repo.FindByContractID(ctx, contractID)
	if errors.Is(err, common.ErrNotFound) {
		if err := s.OpenForContract(ctx, c); err != nil {
			return nil, s.wrap(err, "Could not open exchange.", zap.String("contractID", contractID.String()))
		}
		e, err = s.repo.FindByContractID(ctx, contractID)
	}
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.", zap.String("contractID", contractID.String()))
	}
	return e, nil
}

func (s *ServiceImplementation) ListMyExchanges(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Exchange, *common.Pagination, error) {
	exchanges, pagination, err := s.repo.ListForUser(ctx, userID, status, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve exchanges.")
	}
	return exchanges, pagination, nil
}

func (s *ServiceImplementation) Start(ctx context.Context, userID, id uuid.UUID) (*Exchange, error) {
	return s.apply(ctx, userID, id, ActionStart)
}

func (s *ServiceImplementation) Deliver(ctx context.Context, userID, id uuid.UUID) (*Exchange, error) {
	return s.apply(ctx, userID, id, ActionDeliver)
}

func (s *ServiceImplementation) Confirm(ctx context.Context, userID, id uuid.UUID) (*Exchange, error) {
	return s.apply(ctx, userID, id, ActionConfirm)
}

func (s *ServiceImplementation) Cancel(ctx context.Context, userID, id uuid.UUID) (*Exchange, error) {
	return s.apply(ctx, userID, id, ActionCancel)
}

// apply validates action against the current row, writes it with a
// conditional update on that row's status, then tells the counterparty.
func (s *ServiceImplementation) apply(ctx context.Context, userID, id uuid.UUID, action Action) (*Exchange, error) {
	ctx, span := tracer.Start(ctx, "exchange."+string(action))
	defer span.End()
	span.SetAttributes(attribute.String("exchange.id", id.String()))

	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.", zap.String("exchangeID", id.String()))
	}
	guard := Guard{Actor: userID}
	if action == ActionStart && e.IsParty(userID) {
		c, err := s.contracts.FindByID(ctx, e.ContractID)
		if err != nil {
			return nil, s.wrap(err, "Could not retrieve contract.", zap.String("contractID", e.ContractID.String()))
		}
		guard.ContractActive = c.IsActive()
	}

	_, fields, err := Plan(e, action, guard, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Transition(ctx, id, e.Status, fields); err != nil {
		return nil, s.wrap(err, "Could not update exchange.", zap.String("exchangeID", id.String()))
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve exchange.", zap.String("exchangeID", id.String()))
	}
	s.logger.Info("Exchange updated", zap.String("exchangeID", id.String()), zap.String("action", string(action)), zap.String("status", string(updated.Status)))

	s.notify(ctx, updated.Counterparty(userID), updated, Message(action))
	return updated, nil
}

// notify is best-effort; the transition has already been committed.
func (s *ServiceImplementation) notify(ctx context.Context, to uuid.UUID, e *Exchange, message string) {
	if s.notifier == nil {
		return
	}
	id := e.ID
	_, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      to,
		Type:        notification.TypeExchangeUpdate,
		Message:     message,
		RelatedType: "exchange",
		RelatedID:   &id,
	})
	if err != nil {
		s.logger.Warn("Failed to send exchange notification", zap.Error(err), zap.String("exchangeID", id.String()))
	}
}
