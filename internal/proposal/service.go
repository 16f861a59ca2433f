package proposal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/realtime"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bontroc_backend/proposal")

// ContractGenerator produces the contract of an accepted proposal. It must be
// idempotent per proposal.
type ContractGenerator interface {
	GenerateForProposal(ctx context.Context, proposalID uuid.UUID) error
}

type Service interface {
	CreateProposal(ctx context.Context, fromUserID uuid.UUID, req CreateProposalRequest) (*Proposal, error)
	GetProposal(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Proposal, error)
	GetThread(ctx context.Context, viewer shared.Session, id uuid.UUID) ([]Proposal, error)
	ListIncoming(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Proposal, *common.Pagination, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Proposal, *common.Pagination, error)

	AcceptProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error)
	RefuseProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error)
	CancelProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error)
	CounterProposal(ctx context.Context, userID, id uuid.UUID, req CounterProposalRequest) (*Proposal, error)
	RegenerateContract(ctx context.Context, userID, id uuid.UUID) error

	CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int64, error)
	PendingIncomingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// Background maintenance, driven by the cron jobs.
	RecoverMissingContracts(ctx context.Context, grace time.Duration, limit int) (int, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

type ServiceImplementation struct {
	repo      Repository
	listings  listing.Service
	contracts ContractGenerator
	notifier  notification.Notifier
	broker    realtime.Broker
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
	// spawn runs contract generation off the request path.
	spawn func(func())
}

func NewService(repo Repository, listings listing.Service, contracts ContractGenerator, notifier notification.Notifier, broker realtime.Broker, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		listings:  listings,
		contracts: contracts,
		notifier:  notifier,
		broker:    broker,
		cfg:       cfg,
		logger:    logger.Named("ProposalService"),
		now:       func() time.Time { return time.Now().UTC() },
		spawn:     func(f func()) { go f() },
	}
}

func (s *ServiceImplementation) internalError(err error, msg string, fields ...zap.Field) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return common.ErrInternalServer.WithDetails(msg)
}

func cleanOffer(value *decimal.Decimal) (decimal.NullDecimal, error) {
	if value == nil {
		return decimal.NullDecimal{}, nil
	}
	if value.IsNegative() {
		return decimal.NullDecimal{}, common.ErrBadRequest.WithDetails("Offered value cannot be negative.")
	}
	return decimal.NewNullDecimal(value.Round(2)), nil
}

// checkOfferedListing makes sure a listing offered in return belongs to the
// user offering it and is published.
func (s *ServiceImplementation) checkOfferedListing(ctx context.Context, offererID uuid.UUID, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	offered, err := s.listings.GetPublishedListing(ctx, *id)
	if err != nil {
		return err
	}
	if !offered.IsOwnedBy(offererID) {
		return common.ErrForbidden.WithDetails("You can only offer your own listings.")
	}
	return nil
}

func (s *ServiceImplementation) CreateProposal(ctx context.Context, fromUserID uuid.UUID, req CreateProposalRequest) (*Proposal, error) {
	target, err := s.listings.GetPublishedListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if target.IsOwnedBy(fromUserID) {
		return nil, common.ErrBadRequest.WithDetails("You cannot send a proposal on your own listing.")
	}
	if err := s.checkOfferedListing(ctx, fromUserID, req.OfferedListingID); err != nil {
		return nil, err
	}
	value, err := cleanOffer(req.OfferedValue)
	if err != nil {
		return nil, err
	}

	p := &Proposal{
		ListingID:        target.ID,
		FromUserID:       fromUserID,
		ToUserID:         target.OwnerID,
		Status:           StatusPending,
		Message:          strings.TrimSpace(req.Message),
		OfferedListingID: req.OfferedListingID,
		OfferedValue:     value,
		ProposedDate:     req.ProposedDate,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, s.internalError(err, "Could not create proposal.", zap.String("listingID", target.ID.String()))
	}
	created, err := s.reload(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, created.ToUserID, notification.TypeProposalReceived, created,
		fmt.Sprintf("You received a new proposal for \"%s\".", listingTitle(created)))
	s.publish(ctx, realtime.ActionInsert, created)
	return created, nil
}

func (s *ServiceImplementation) reload(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.internalError(err, "Could not load proposal.", zap.String("proposalID", id.String()))
	}
	return p, nil
}

func (s *ServiceImplementation) GetProposal(ctx context.Context, viewer shared.Session, id uuid.UUID) (*Proposal, error) {
	p, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsParty(viewer.UserID) && !common.IsStaff(viewer.Role) {
		return nil, common.ErrNotFound.WithDetails("Proposal not found.")
	}
	return p, nil
}

func (s *ServiceImplementation) GetThread(ctx context.Context, viewer shared.Session, id uuid.UUID) ([]Proposal, error) {
	if _, err := s.GetProposal(ctx, viewer, id); err != nil {
		return nil, err
	}
	thread, err := s.repo.Thread(ctx, id)
	if err != nil {
		return nil, s.internalError(err, "Could not load proposal thread.", zap.String("proposalID", id.String()))
	}
	return thread, nil
}

func (s *ServiceImplementation) ListIncoming(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Proposal, *common.Pagination, error) {
	proposals, pagination, err := s.repo.List(ctx, ListFilter{ToUserID: &userID, Status: status}, page, pageSize)
	if err != nil {
		return nil, nil, s.internalError(err, "Could not retrieve proposals.")
	}
	return proposals, pagination, nil
}

func (s *ServiceImplementation) ListOutgoing(ctx context.Context, userID uuid.UUID, status Status, page, pageSize int) ([]Proposal, *common.Pagination, error) {
	proposals, pagination, err := s.repo.List(ctx, ListFilter{FromUserID: &userID, Status: status}, page, pageSize)
	if err != nil {
		return nil, nil, s.internalError(err, "Could not retrieve proposals.")
	}
	return proposals, pagination, nil
}

// respond loads the proposal, checks that actor is on the side allowed to
// make the move, then applies the conditional status update.
func (s *ServiceImplementation) respond(ctx context.Context, actorID, id uuid.UUID, status Status) (*Proposal, error) {
	p, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsParty(actorID) {
		return nil, common.ErrNotFound.WithDetails("Proposal not found.")
	}
	if status == StatusCancelled {
		if p.FromUserID != actorID {
			return nil, common.ErrForbidden.WithDetails("Only the sender can cancel a proposal.")
		}
	} else if p.ToUserID != actorID {
		return nil, common.ErrForbidden.WithDetails("Only the receiver can answer a proposal.")
	}
	if p.Status.IsTerminal() {
		return nil, common.ErrInvalidTransition.WithDetails(fmt.Sprintf("The proposal is already %s.", p.Status))
	}

	if err := s.repo.Transition(ctx, id, status, s.now()); err != nil {
		return nil, s.internalError(err, "Could not update proposal.", zap.String("proposalID", id.String()))
	}
	return s.reload(ctx, id)
}

func (s *ServiceImplementation) AcceptProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error) {
	ctx, span := tracer.Start(ctx, "proposal.Accept")
	defer span.End()
	span.SetAttributes(attribute.String("proposal.id", id.String()))

	p, err := s.respond(ctx, userID, id, StatusAccepted)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Proposal accepted", zap.String("proposalID", id.String()), zap.String("userID", userID.String()))
	s.notify(ctx, p.FromUserID, notification.TypeProposalAccepted, p,
		fmt.Sprintf("Your proposal for \"%s\" was accepted. A contract is being prepared.", listingTitle(p)))
	s.publish(ctx, realtime.ActionUpdate, p)
	s.generateContract(p.ID)
	return p, nil
}

// generateContract is fire-and-forget: acceptance stands even when
// generation fails. The recovery job and RegenerateContract retry it.
func (s *ServiceImplementation) generateContract(proposalID uuid.UUID) {
	if s.contracts == nil {
		s.logger.Warn("No contract generator configured", zap.String("proposalID", proposalID.String()))
		return
	}
	timeout := 30 * time.Second
	if s.cfg != nil && s.cfg.ContractGenerationTimeout > 0 {
		timeout = s.cfg.ContractGenerationTimeout
	}
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.contracts.GenerateForProposal(ctx, proposalID); err != nil {
			s.logger.Error("Contract generation failed", zap.Error(err), zap.String("proposalID", proposalID.String()))
		}
	})
}

func (s *ServiceImplementation) RefuseProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error) {
	p, err := s.respond(ctx, userID, id, StatusRefused)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.FromUserID, notification.TypeProposalRefused, p,
		fmt.Sprintf("Your proposal for \"%s\" was declined.", listingTitle(p)))
	s.publish(ctx, realtime.ActionUpdate, p)
	return p, nil
}

func (s *ServiceImplementation) CancelProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error) {
	p, err := s.respond(ctx, userID, id, StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.ToUserID, notification.TypeProposalCancelled, p,
		fmt.Sprintf("A proposal for \"%s\" was withdrawn.", listingTitle(p)))
	s.publish(ctx, realtime.ActionUpdate, p)
	return p, nil
}

// CounterProposal answers a pending proposal with a new one going the other
// way. The original keeps its content and becomes countered.
func (s *ServiceImplementation) CounterProposal(ctx context.Context, userID, id uuid.UUID, req CounterProposalRequest) (*Proposal, error) {
	ctx, span := tracer.Start(ctx, "proposal.Counter")
	defer span.End()
	span.SetAttributes(attribute.String("proposal.id", id.String()))

	original, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	if !original.IsParty(userID) {
		return nil, common.ErrNotFound.WithDetails("Proposal not found.")
	}
	if original.ToUserID != userID {
		return nil, common.ErrForbidden.WithDetails("Only the receiver can counter a proposal.")
	}
	if original.Status.IsTerminal() {
		return nil, common.ErrInvalidTransition.WithDetails(fmt.Sprintf("The proposal is already %s.", original.Status))
	}
	if err := s.checkOfferedListing(ctx, userID, req.OfferedListingID); err != nil {
		return nil, err
	}
	value, err := cleanOffer(req.OfferedValue)
	if err != nil {
		return nil, err
	}

	parentID := original.ID
	counter := &Proposal{
		ListingID:        original.ListingID,
		FromUserID:       original.ToUserID,
		ToUserID:         original.FromUserID,
		Status:           StatusPending,
		Message:          strings.TrimSpace(req.Message),
		OfferedListingID: req.OfferedListingID,
		OfferedValue:     value,
		ProposedDate:     req.ProposedDate,
		ParentProposalID: &parentID,
	}
	if err := s.repo.Counter(ctx, original.ID, counter, s.now()); err != nil {
		return nil, s.internalError(err, "Could not create counter-proposal.", zap.String("proposalID", id.String()))
	}

	created, err := s.reload(ctx, counter.ID)
	if err != nil {
		return nil, err
	}
	if updated, err := s.repo.FindByID(ctx, original.ID); err == nil {
		s.publish(ctx, realtime.ActionUpdate, updated)
	}
	s.notify(ctx, created.ToUserID, notification.TypeProposalCountered, created,
		fmt.Sprintf("You received a counter-proposal for \"%s\".", listingTitle(created)))
	s.publish(ctx, realtime.ActionInsert, created)
	return created, nil
}

// RegenerateContract lets a party re-run contract generation for an
// accepted proposal. It runs synchronously so the caller sees the outcome.
func (s *ServiceImplementation) RegenerateContract(ctx context.Context, userID, id uuid.UUID) error {
	p, err := s.reload(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsParty(userID) {
		return common.ErrNotFound.WithDetails("Proposal not found.")
	}
	if p.Status != StatusAccepted {
		return common.ErrInvalidTransition.WithDetails("Only accepted proposals have a contract.")
	}
	if s.contracts == nil {
		return common.ErrServiceUnavailable.WithDetails("Contract generation is not available.")
	}
	if err := s.contracts.GenerateForProposal(ctx, id); err != nil {
		return s.internalError(err, "Could not generate contract.", zap.String("proposalID", id.String()))
	}
	return nil
}

func (s *ServiceImplementation) CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountPendingTo(ctx, userID)
	if err != nil {
		return 0, s.internalError(err, "Could not count proposals.")
	}
	return count, nil
}

func (s *ServiceImplementation) PendingIncomingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.PendingIDsTo(ctx, userID)
	if err != nil {
		return nil, s.internalError(err, "Could not list proposals.")
	}
	return ids, nil
}

// RecoverMissingContracts re-submits accepted proposals that have been
// without a contract for longer than grace. It returns how many succeeded.
func (s *ServiceImplementation) RecoverMissingContracts(ctx context.Context, grace time.Duration, limit int) (int, error) {
	if s.contracts == nil {
		return 0, nil
	}
	ids, err := s.repo.AcceptedWithoutContract(ctx, s.now().Add(-grace), limit)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		if err := s.contracts.GenerateForProposal(ctx, id); err != nil {
			s.logger.Warn("Contract recovery failed", zap.Error(err), zap.String("proposalID", id.String()))
			continue
		}
		recovered++
	}
	return recovered, nil
}

// ExpireStale cancels proposals left pending for longer than ttl.
func (s *ServiceImplementation) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	now := s.now()
	expired, err := s.repo.ExpirePending(ctx, now.Add(-ttl), now)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		p := &expired[i]
		s.notify(ctx, p.FromUserID, notification.TypeProposalCancelled, p, "Your proposal expired without an answer.")
		s.publish(ctx, realtime.ActionUpdate, p)
	}
	return len(expired), nil
}

func listingTitle(p *Proposal) string {
	if p.Listing == nil {
		return "your listing"
	}
	return p.Listing.Title
}

// notify is best-effort: a failed notification never fails the transition.
func (s *ServiceImplementation) notify(ctx context.Context, to uuid.UUID, t notification.Type, p *Proposal, message string) {
	if s.notifier == nil {
		return
	}
	id := p.ID
	_, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      to,
		Type:        t,
		Message:     message,
		RelatedType: "proposal",
		RelatedID:   &id,
	})
	if err != nil {
		s.logger.Warn("Failed to send proposal notification", zap.Error(err), zap.String("proposalID", id.String()), zap.String("type", string(t)))
	}
}

// publish sends the changed row to both parties.
func (s *ServiceImplementation) publish(ctx context.Context, action realtime.Action, p *Proposal) {
	if s.broker == nil {
		return
	}
	row := ToProposalResponse(p)
	for _, userID := range []uuid.UUID{p.FromUserID, p.ToUserID} {
		ev, err := realtime.NewEvent(realtime.TableProposals, action, userID, p.ID, row)
		if err == nil {
			err = s.broker.Publish(ctx, ev)
		}
		if err != nil {
			s.logger.Warn("Failed to publish proposal event", zap.Error(err), zap.String("proposalID", p.ID.String()))
		}
	}
}
