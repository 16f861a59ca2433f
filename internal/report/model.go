package report

import (
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
)

type TargetType string

const (
	TargetListing  TargetType = "listing"
	TargetUser     TargetType = "user"
	TargetProposal TargetType = "proposal"
	TargetChat     TargetType = "chat"
)

// targetTables maps each reportable kind to the table its ids live in.
var targetTables = map[TargetType]string{
	TargetListing:  "listings",
	TargetUser:     "users",
	TargetProposal: "proposals",
	TargetChat:     "chats",
}

type Status string

const (
	StatusOpen      Status = "open"
	StatusReviewed  Status = "reviewed"
	StatusDismissed Status = "dismissed"
	StatusActioned  Status = "actioned"
)

// Report is a member's flag on something they think breaks the rules.
type Report struct {
	common.BaseModel
	ReporterID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	TargetType    TargetType `gorm:"type:varchar(20);not null;index:idx_reports_target"`
	TargetID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_reports_target"`
	Reason        string     `gorm:"type:varchar(50);not null"`
	Details       *string    `gorm:"type:text"`
	Status        Status     `gorm:"type:varchar(20);not null;default:'open';index"`
	ModeratorNote *string    `gorm:"type:text"`
	HandledBy     *uuid.UUID `gorm:"type:uuid"`
	HandledAt     *time.Time
}

func (Report) TableName() string {
	return "reports"
}

type CreateReportRequest struct {
	TargetType TargetType `json:"target_type" binding:"required,oneof=listing user proposal chat"`
	TargetID   uuid.UUID  `json:"target_id" binding:"required"`
	Reason     string     `json:"reason" binding:"required,oneof=spam scam inappropriate harassment counterfeit other"`
	Details    *string    `json:"details" binding:"omitempty,max=2000"`
}

type ReviewReportRequest struct {
	Status Status  `json:"status" binding:"required,oneof=reviewed dismissed actioned"`
	Note   *string `json:"note" binding:"omitempty,max=2000"`
}

type ListQuery struct {
	Status     Status     `form:"status"`
	TargetType TargetType `form:"target_type"`
}

type ReportResponse struct {
	ID            uuid.UUID  `json:"id"`
	ReporterID    uuid.UUID  `json:"reporter_id"`
	TargetType    TargetType `json:"target_type"`
	TargetID      uuid.UUID  `json:"target_id"`
	Reason        string     `json:"reason"`
	Details       *string    `json:"details,omitempty"`
	Status        Status     `json:"status"`
	ModeratorNote *string    `json:"moderator_note,omitempty"`
	HandledBy     *uuid.UUID `json:"handled_by,omitempty"`
	HandledAt     *time.Time `json:"handled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func ToReportResponse(r *Report) ReportResponse {
	return ReportResponse{
		ID:            r.ID,
		ReporterID:    r.ReporterID,
		TargetType:    r.TargetType,
		TargetID:      r.TargetID,
		Reason:        r.Reason,
		Details:       r.Details,
		Status:        r.Status,
		ModeratorNote: r.ModeratorNote,
		HandledBy:     r.HandledBy,
		HandledAt:     r.HandledAt,
		CreatedAt:     r.CreatedAt,
	}
}

func toReportResponses(reports []Report) []ReportResponse {
	out := make([]ReportResponse, len(reports))
	for i := range reports {
		out[i] = ToReportResponse(&reports[i])
	}
	return out
}
