package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type classifies a notification.
type Type string

const (
	TypeProposalReceived  Type = "proposal_received"
	TypeProposalAccepted  Type = "proposal_accepted"
	TypeProposalRefused   Type = "proposal_refused"
	TypeProposalCountered Type = "proposal_countered"
	TypeProposalCancelled Type = "proposal_cancelled"
	TypeContractUpdate    Type = "contract_update"
	TypeExchangeUpdate    Type = "exchange_update"
	TypeDisputeUpdate     Type = "dispute_update"
	TypeReviewReceived    Type = "review_received"
	TypeMessageReceived   Type = "message_received"
)

// Notification is one fan-out row for one recipient. ReadAt is nil while unread.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_read" json:"user_id"`
	Type        Type       `gorm:"type:varchar(50);not null;index" json:"type"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	RelatedType string     `gorm:"type:varchar(50)" json:"related_type,omitempty"`
	RelatedID   *uuid.UUID `gorm:"type:uuid" json:"related_id,omitempty"`
	ReadAt      *time.Time `gorm:"index:idx_notifications_user_read" json:"read_at"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// IsRead reports whether the recipient has read the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// Input describes a notification to send.
type Input struct {
	UserID      uuid.UUID
	Type        Type
	Title       string
	Message     string
	RelatedType string
	RelatedID   *uuid.UUID
}
