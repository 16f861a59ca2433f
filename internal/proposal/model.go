package proposal

import (
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a single proposal. Every status but pending is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRefused   Status = "refused"
	StatusCountered Status = "countered"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Proposal is a directed offer from one user to the owner of a listing, or
// a counter-offer linked to the proposal it answers.
type Proposal struct {
	common.BaseModel
	ListingID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	Listing          *listing.Listing    `gorm:"foreignKey:ListingID"`
	FromUserID       uuid.UUID           `gorm:"type:uuid;not null;index:idx_proposals_from_status"`
	FromUser         *user.User          `gorm:"foreignKey:FromUserID"`
	ToUserID         uuid.UUID           `gorm:"type:uuid;not null;index:idx_proposals_to_status"`
	ToUser           *user.User          `gorm:"foreignKey:ToUserID"`
	Status           Status              `gorm:"type:varchar(20);not null;default:'pending';index:idx_proposals_from_status;index:idx_proposals_to_status"`
	Message          string              `gorm:"type:text;not null"`
	OfferedListingID *uuid.UUID          `gorm:"type:uuid"`
	OfferedListing   *listing.Listing    `gorm:"foreignKey:OfferedListingID"`
	OfferedValue     decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	ProposedDate     *time.Time
	ParentProposalID *uuid.UUID `gorm:"type:uuid;index"`
	RespondedAt      *time.Time
}

func (Proposal) TableName() string {
	return "proposals"
}

// IsParty reports whether userID sent or received the proposal.
func (p *Proposal) IsParty(userID uuid.UUID) bool {
	return p.FromUserID == userID || p.ToUserID == userID
}

// Counterparty returns the other side of the proposal for userID.
func (p *Proposal) Counterparty(userID uuid.UUID) uuid.UUID {
	if p.FromUserID == userID {
		return p.ToUserID
	}
	return p.FromUserID
}

// --- DTOs ---

type CreateProposalRequest struct {
	ListingID        uuid.UUID        `json:"listing_id" binding:"required"`
	Message          string           `json:"message" binding:"required,min=1,max=2000"`
	OfferedListingID *uuid.UUID       `json:"offered_listing_id"`
	OfferedValue     *decimal.Decimal `json:"offered_value"`
	ProposedDate     *time.Time       `json:"proposed_date"`
}

type CounterProposalRequest struct {
	Message          string           `json:"message" binding:"required,min=1,max=2000"`
	OfferedListingID *uuid.UUID       `json:"offered_listing_id"`
	OfferedValue     *decimal.Decimal `json:"offered_value"`
	ProposedDate     *time.Time       `json:"proposed_date"`
}

type ListQuery struct {
	Status Status `form:"status" binding:"omitempty,oneof=pending accepted refused countered cancelled"`
}

// ListFilter selects proposals for one side of a user's inbox.
type ListFilter struct {
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	Status     Status
}

type ListingSummary struct {
	ID     uuid.UUID      `json:"id"`
	Title  string         `json:"title"`
	Type   listing.Type   `json:"type"`
	Status listing.Status `json:"status"`
}

type ProposalResponse struct {
	ID               uuid.UUID           `json:"id"`
	ListingID        uuid.UUID           `json:"listing_id"`
	Listing          *ListingSummary     `json:"listing,omitempty"`
	FromUserID       uuid.UUID           `json:"from_user_id"`
	FromUser         *user.PublicProfile `json:"from_user,omitempty"`
	ToUserID         uuid.UUID           `json:"to_user_id"`
	ToUser           *user.PublicProfile `json:"to_user,omitempty"`
	Status           Status              `json:"status"`
	Message          string              `json:"message"`
	OfferedListingID *uuid.UUID          `json:"offered_listing_id,omitempty"`
	OfferedListing   *ListingSummary     `json:"offered_listing,omitempty"`
	OfferedValue     decimal.NullDecimal `json:"offered_value"`
	ProposedDate     *time.Time          `json:"proposed_date,omitempty"`
	ParentProposalID *uuid.UUID          `json:"parent_proposal_id,omitempty"`
	RespondedAt      *time.Time          `json:"responded_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func summarize(l *listing.Listing) *ListingSummary {
	if l == nil {
		return nil
	}
	return &ListingSummary{ID: l.ID, Title: l.Title, Type: l.Type, Status: l.Status}
}

func profile(u *user.User) *user.PublicProfile {
	if u == nil {
		return nil
	}
	p := user.ToPublicProfile(u)
	return &p
}

func ToProposalResponse(p *Proposal) ProposalResponse {
	return ProposalResponse{
		ID:               p.ID,
		ListingID:        p.ListingID,
		Listing:          summarize(p.Listing),
		FromUserID:       p.FromUserID,
		FromUser:         profile(p.FromUser),
		ToUserID:         p.ToUserID,
		ToUser:           profile(p.ToUser),
		Status:           p.Status,
		Message:          p.Message,
		OfferedListingID: p.OfferedListingID,
		OfferedListing:   summarize(p.OfferedListing),
		OfferedValue:     p.OfferedValue,
		ProposedDate:     p.ProposedDate,
		ParentProposalID: p.ParentProposalID,
		RespondedAt:      p.RespondedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toProposalResponses(proposals []Proposal) []ProposalResponse {
	out := make([]ProposalResponse, len(proposals))
	for i := range proposals {
		out[i] = ToProposalResponse(&proposals[i])
	}
	return out
}
