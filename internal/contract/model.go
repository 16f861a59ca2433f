package contract

import (
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/proposal"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// Side is the party of the originating proposal an acceptance belongs to.
type Side string

const (
	SideFrom Side = "from"
	SideTo   Side = "to"
)

// Column returns the acceptance timestamp column of the side.
func (s Side) Column() string {
	if s == SideFrom {
		return "accepted_by_from_at"
	}
	return "accepted_by_to_at"
}

// Contract is the agreement generated from an accepted proposal. It becomes
// active once both parties have accepted it, never before.
type Contract struct {
	common.BaseModel
	ProposalID       uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_contracts_proposal"`
	Proposal         *proposal.Proposal `gorm:"foreignKey:ProposalID"`
	ListingID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	FromUserID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	ToUserID         uuid.UUID          `gorm:"type:uuid;not null;index"`
	Reference        string             `gorm:"type:varchar(32);index"`
	Terms            string             `gorm:"type:text;not null"`
	DocumentKey      string             `gorm:"type:varchar(255)"`
	DocumentURL      string             `gorm:"type:text"`
	Status           Status             `gorm:"type:varchar(20);not null;default:'pending';index"`
	AcceptedByFromAt *time.Time
	AcceptedByToAt   *time.Time
	ActivatedAt      *time.Time
}

func (Contract) TableName() string {
	return "contracts"
}

// SideOf maps userID to the side it accepts for.
func (c *Contract) SideOf(userID uuid.UUID) (Side, bool) {
	switch userID {
	case c.FromUserID:
		return SideFrom, true
	case c.ToUserID:
		return SideTo, true
	}
	return "", false
}

func (c *Contract) IsParty(userID uuid.UUID) bool {
	_, ok := c.SideOf(userID)
	return ok
}

func (c *Contract) Counterparty(userID uuid.UUID) uuid.UUID {
	if c.FromUserID == userID {
		return c.ToUserID
	}
	return c.FromUserID
}

func (c *Contract) AcceptedBy(side Side) bool {
	if side == SideFrom {
		return c.AcceptedByFromAt != nil
	}
	return c.AcceptedByToAt != nil
}

func (c *Contract) IsActive() bool {
	return c.Status == StatusActive
}

// applyAcceptance is the in-memory twin of the repository's Accept
// transaction: the timestamp is set once, and activation follows as soon as
// both are present.
func applyAcceptance(c Contract, side Side, at time.Time) Contract {
	if !c.AcceptedBy(side) {
		t := at
		if side == SideFrom {
			c.AcceptedByFromAt = &t
		} else {
			c.AcceptedByToAt = &t
		}
	}
	if c.Status == StatusPending && c.AcceptedByFromAt != nil && c.AcceptedByToAt != nil {
		t := at
		c.Status = StatusActive
		c.ActivatedAt = &t
	}
	return c
}

// AcceptResult reports what an accept call changed.
type AcceptResult struct {
	Contract  *Contract
	Recorded  bool
	Activated bool
}

// --- DTOs ---

type ListQuery struct {
	Status Status `form:"status" binding:"omitempty,oneof=pending active"`
}

type ContractResponse struct {
	ID               uuid.UUID  `json:"id"`
	ProposalID       uuid.UUID  `json:"proposal_id"`
	ListingID        uuid.UUID  `json:"listing_id"`
	FromUserID       uuid.UUID  `json:"from_user_id"`
	ToUserID         uuid.UUID  `json:"to_user_id"`
	Reference        string     `json:"reference"`
	Terms            string     `json:"terms"`
	DocumentURL      string     `json:"document_url,omitempty"`
	Status           Status     `json:"status"`
	AcceptedByFromAt *time.Time `json:"accepted_by_from_at"`
	AcceptedByToAt   *time.Time `json:"accepted_by_to_at"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func ToContractResponse(c *Contract) ContractResponse {
	return ContractResponse{
		ID:               c.ID,
		ProposalID:       c.ProposalID,
		ListingID:        c.ListingID,
		FromUserID:       c.FromUserID,
		ToUserID:         c.ToUserID,
		Reference:        c.Reference,
		Terms:            c.Terms,
		DocumentURL:      c.DocumentURL,
		Status:           c.Status,
		AcceptedByFromAt: c.AcceptedByFromAt,
		AcceptedByToAt:   c.AcceptedByToAt,
		ActivatedAt:      c.ActivatedAt,
		CreatedAt:        c.CreatedAt,
	}
}

func toContractResponses(contracts []Contract) []ContractResponse {
	out := make([]ContractResponse, len(contracts))
	for i := range contracts {
		out[i] = ToContractResponse(&contracts[i])
	}
	return out
}
