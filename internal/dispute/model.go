package dispute

import (
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusInReview  Status = "in_review"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

func (s Status) IsClosed() bool {
	return s == StatusResolved || s == StatusDismissed
}

// moves lists the statuses moderators may move a dispute to.
var moves = map[Status][]Status{
	StatusOpen:     {StatusInReview, StatusResolved, StatusDismissed},
	StatusInReview: {StatusResolved, StatusDismissed},
}

func canMove(from, to Status) bool {
	for _, s := range moves[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Dispute is an escalation of an exchange to the moderation team. It never
// changes the exchange itself. ResolvedAt stays nil while the dispute is
// unresolved, which the partial unique index relies on.
type Dispute struct {
	common.BaseModel
	ExchangeID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_disputes_unresolved,where:resolved_at IS NULL"`
	OpenedBy       uuid.UUID  `gorm:"type:uuid;not null;index"`
	AgainstUserID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Reason         string     `gorm:"type:varchar(50);not null"`
	Description    string     `gorm:"type:text;not null"`
	Status         Status     `gorm:"type:varchar(20);not null;default:'open';index"`
	ResolutionNote *string    `gorm:"type:text"`
	HandledBy      *uuid.UUID `gorm:"type:uuid"`
	ResolvedAt     *time.Time
}

func (Dispute) TableName() string {
	return "disputes"
}

func (d *Dispute) IsParty(userID uuid.UUID) bool {
	return d.OpenedBy == userID || d.AgainstUserID == userID
}

// --- DTOs ---

type OpenDisputeRequest struct {
	ExchangeID  uuid.UUID `json:"exchange_id" binding:"required"`
	Reason      string    `json:"reason" binding:"required,oneof=not_delivered not_as_described no_show damaged other"`
	Description string    `json:"description" binding:"required,min=10,max=4000"`
}

type UpdateStatusRequest struct {
	Status         Status `json:"status" binding:"required,oneof=in_review resolved dismissed"`
	ResolutionNote string `json:"resolution_note" binding:"max=4000"`
}

type ListQuery struct {
	Status Status `form:"status" binding:"omitempty,oneof=open in_review resolved dismissed"`
}

type DisputeResponse struct {
	ID             uuid.UUID  `json:"id"`
	ExchangeID     uuid.UUID  `json:"exchange_id"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	AgainstUserID  uuid.UUID  `json:"against_user_id"`
	Reason         string     `json:"reason"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	ResolutionNote *string    `json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func ToDisputeResponse(d *Dispute) DisputeResponse {
	return DisputeResponse{
		ID:             d.ID,
		ExchangeID:     d.ExchangeID,
		OpenedBy:       d.OpenedBy,
		AgainstUserID:  d.AgainstUserID,
		Reason:         d.Reason,
		Description:    d.Description,
		Status:         d.Status,
		ResolutionNote: d.ResolutionNote,
		ResolvedAt:     d.ResolvedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toDisputeResponses(disputes []Dispute) []DisputeResponse {
	out := make([]DisputeResponse, len(disputes))
	for i := range disputes {
		out[i] = ToDisputeResponse(&disputes[i])
	}
	return out
}
