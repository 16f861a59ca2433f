package exchange

import (
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/contract"

	"github.com/google/uuid"
)

// Exchange tracks the fulfilment of a contract.
type Exchange struct {
	common.BaseModel
	ContractID  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_exchanges_contract"`
	Contract    *contract.Contract `gorm:"foreignKey:ContractID"`
	ListingID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	FromUserID  uuid.UUID          `gorm:"type:uuid;not null;index"`
	ToUserID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	Status      Status             `gorm:"type:varchar(20);not null;default:'not_started';index"`
	StartedAt   *time.Time
	DeliveredBy *uuid.UUID `gorm:"type:uuid"`
	DeliveredAt *time.Time
	ConfirmedAt *time.Time
	CancelledBy *uuid.UUID `gorm:"type:uuid"`
	CancelledAt *time.Time
}

func (Exchange) TableName() string {
	return "exchanges"
}

func (e *Exchange) IsParty(userID uuid.UUID) bool {
	return e.FromUserID == userID || e.ToUserID == userID
}

func (e *Exchange) Counterparty(userID uuid.UUID) uuid.UUID {
	if e.FromUserID == userID {
		return e.ToUserID
	}
	return e.FromUserID
}

type ListQuery struct {
	Status Status `form:"status" binding:"omitempty,oneof=not_started in_progress delivered confirmed cancelled"`
}

type ExchangeResponse struct {
	ID          uuid.UUID  `json:"id"`
	ContractID  uuid.UUID  `json:"contract_id"`
	ListingID   uuid.UUID  `json:"listing_id"`
	FromUserID  uuid.UUID  `json:"from_user_id"`
	ToUserID    uuid.UUID  `json:"to_user_id"`
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DeliveredBy *uuid.UUID `json:"delivered_by,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledBy *uuid.UUID `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func ToExchangeResponse(e *Exchange) ExchangeResponse {
	return ExchangeResponse{
		ID:          e.ID,
		ContractID:  e.ContractID,
		ListingID:   e.ListingID,
		FromUserID:  e.FromUserID,
		ToUserID:    e.ToUserID,
		Status:      e.Status,
		StartedAt:   e.StartedAt,
		DeliveredBy: e.DeliveredBy,
		DeliveredAt: e.DeliveredAt,
		ConfirmedAt: e.ConfirmedAt,
		CancelledBy: e.CancelledBy,
		CancelledAt: e.CancelledAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toExchangeResponses(exchanges []Exchange) []ExchangeResponse {
	out := make([]ExchangeResponse, len(exchanges))
	for i := range exchanges {
		out[i] = ToExchangeResponse(&exchanges[i])
	}
	return out
}
