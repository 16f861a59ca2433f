package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/platform/crypto"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bontroc_backend/contract")

// ExchangeOpener creates the exchange tracking a contract. It must be
// idempotent.
type ExchangeOpener interface {
	OpenForContract(ctx context.Context, c *Contract) error
}

// ProposalReader is the part of the proposal store generation needs.
type ProposalReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*proposal.Proposal, error)
}

type Service interface {
	proposal.ContractGenerator
	GetContract(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Contract, error)
	GetContractByProposal(ctx context.Context, viewer shared.Session, proposalID uuid.UUID) (*Contract, error)
	ListMyContracts(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Contract, *common.Pagination, error)
	AcceptContract(ctx context.Context, userID, id uuid.UUID) (*Contract, error)
}

type ServiceImplementation struct {
	repo      Repository
	proposals ProposalReader
	exchanges ExchangeOpener
	store     storage.ObjectStore
	notifier  notification.Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, proposals ProposalReader, exchanges ExchangeOpener, store storage.ObjectStore, notifier notification.Notifier, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		proposals: proposals,
		exchanges: exchanges,
		store:     store,
		notifier:  notifier,
		logger:    logger.Named("ContractService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateForProposal renders the contract of an accepted proposal, stores
// its document and opens the matching exchange. Calling it again for the
// same proposal only makes sure the exchange exists.
func (s *ServiceImplementation) GenerateForProposal(ctx context.Context, proposalID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "contract.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("proposal.id", proposalID.String()))

	existing, err := s.repo.FindByProposalID(ctx, proposalID)
	if err == nil {
		return s.openExchange(ctx, existing)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("look up contract of proposal %s: %w", proposalID, err)
	}

	p, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.Status != proposal.StatusAccepted {
		return common.ErrInvalidTransition.WithDetails("Only accepted proposals get a contract.")
	}

	now := s.now()
	reference, err := crypto.GenerateReference("BT", 5)
	if err != nil {
		return fmt.Errorf("generate contract reference: %w", err)
	}
	termsMarkdown, err := RenderTerms(p, reference, now)
	if err != nil {
		return err
	}
	c := &Contract{
		ProposalID: p.ID,
		ListingID:  p.ListingID,
		FromUserID: p.FromUserID,
		ToUserID:   p.ToUserID,
		Reference:  reference,
		Terms:      termsMarkdown,
		Status:     StatusPending,
	}
	if err := s.storeDocument(ctx, c); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.discardDocument(ctx, c)
		if errors.Is(err, common.ErrConflict) {
			// Generated concurrently by the recovery job or a retry.
			winner, findErr := s.repo.FindByProposalID(ctx, proposalID)
			if findErr != nil {
				return findErr
			}
			return s.openExchange(ctx, winner)
		}
		return fmt.Errorf("save contract of proposal %s: %w", proposalID, err)
	}
	s.logger.Info("Contract generated", zap.String("contractID", c.ID.String()), zap.String("proposalID", proposalID.String()))

	for _, userID := range []uuid.UUID{c.FromUserID, c.ToUserID} {
		s.notify(ctx, userID, c, "Your contract is ready. Review and accept it to start the exchange.")
	}
	return s.openExchange(ctx, c)
}

func (s *ServiceImplementation) storeDocument(ctx context.Context, c *Contract) error {
	if s.store == nil {
		return nil
	}
	doc, err := RenderDocument("Barter agreement", c.Terms)
	if err != nil {
		return err
	}
	key := storage.NewObjectKey(c.ProposalID, ".html")
	obj, err := s.store.Put(ctx, storage.BucketContractDocuments, key, bytes.NewReader(doc), int64(len(doc)), "text/html; charset=utf-8")
	if err != nil {
		return fmt.Errorf("store contract document: %w", err)
	}
	c.DocumentKey = obj.Key
	c.DocumentURL = obj.URL
	return nil
}

func (s *ServiceImplementation) discardDocument(ctx context.Context, c *Contract) {
	if s.store == nil || c.DocumentKey == "" {
		return
	}
	if err := s.store.Delete(ctx, storage.BucketContractDocuments, c.DocumentKey); err != nil {
		s.logger.Warn("Failed to delete orphaned contract document", zap.Error(err), zap.String("key", c.DocumentKey))
	}
}

func (s *ServiceImplementation) openExchange(ctx context.Context, c *Contract) error {
	if s.exchanges == nil {
		return nil
	}
	if err := s.exchanges.OpenForContract(ctx, c); err != nil {
		return fmt.Errorf("open exchange for contract %s: %w", c.ID, err)
	}
	return nil
}

func (s *ServiceImplementation) visible(c *Contract, viewer shared.Session) error {
	if !c.IsParty(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return common.ErrNotFound.WithDetails("Contract not found.")
	}
	return nil
}

func (s *ServiceImplementation) load(ctx context.Context, find func(context.Context, uuid.UUID) (*Contract, error), id uuid.UUID) (*Contract, error) {
	c, err := find(ctx, id)
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to load contract", zap.Error(err), zap.String("id", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve contract.")
	}
	return c, nil
}

func (s *ServiceImplementation) GetContract(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Contract, error) {
	c, err := s.load(ctx, s.repo.FindByID, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(c, viewer); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ServiceImplementation) GetContractByProposal(ctx context.Context, viewer shared.Session, proposalID uuid.UUID) (*Contract, error) {
	c, err := s.load(ctx, s.repo.FindByProposalID, proposalID)
	if err != nil {
		return nil, err
	}
	if err := s.visible(c, viewer); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ServiceImplementation) ListMyContracts(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Contract, *common.Pagination, error) {
	contracts, pagination, err := s.repo.ListForUser(ctx, userID, status, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list contracts", zap.Error(err), zap.String("userID", userID.String()))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve contracts.")
	}
	return contracts, pagination, nil
}

// AcceptContract records the caller's acceptance. Accepting twice returns
// the contract unchanged.
func (s *ServiceImplementation) AcceptContract(ctx context.Context, userID, id uuid.UUID) (*Contract, error) {
	ctx, span := tracer.Start(ctx, "contract.Accept")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", id.String()))

	c, err := s.load(ctx, s.repo.FindByID, id)
	if err != nil {
		return nil, err
	}
	side, ok := c.SideOf(userID)
	if !ok {
		return nil, common.ErrNotAParty
	}
	if c.AcceptedBy(side) {
		return c, nil
	}

	result, err := s.repo.Accept(ctx, id, side, s.now())
	if err != nil {
		s.logger.Error("Failed to accept contract", zap.Error(err), zap.String("contractID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not accept contract.")
	}
	span.SetAttributes(attribute.Bool("contract.activated", result.Activated))

	if result.Recorded {
		s.notify(ctx, c.Counterparty(userID), result.Contract, "The other party accepted the contract.")
	}
	if result.Activated {
		s.logger.Info("Contract activated", zap.String("contractID", id.String()))
		for _, party := range []uuid.UUID{c.FromUserID, c.ToUserID} {
			s.notify(ctx, party, result.Contract, "Both parties accepted the contract. The exchange can start.")
		}
	}
	return result.Contract, nil
}

func (s *ServiceImplementation) notify(ctx context.Context, to uuid.UUID, c *Contract, message string) {
	if s.notifier == nil {
		return
	}
	id := c.ID
	_, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      to,
		Type:        notification.TypeContractUpdate,
		Message:     message,
		RelatedType: "contract",
		RelatedID:   &id,
	})
	if err != nil {
		s.logger.Warn("Failed to send contract notification", zap.Error(err), zap.String("contractID", id.String()))
	}
}
