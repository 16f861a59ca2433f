package chat

import (
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
)

// Chat is the conversation between two members about one listing. The pair
// is stored in a canonical order so (listing, a, b) and (listing, b, a) are
// the same row.
type Chat struct {
	common.BaseModel
	ListingID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_chats_listing_pair"`
	UserAID       uuid.UUID  `gorm:"column:user_a_id;type:uuid;not null;uniqueIndex:idx_chats_listing_pair;index"`
	UserA         *user.User `gorm:"foreignKey:UserAID"`
	UserBID       uuid.UUID  `gorm:"column:user_b_id;type:uuid;not null;uniqueIndex:idx_chats_listing_pair;index"`
	UserB         *user.User `gorm:"foreignKey:UserBID"`
	LastMessageAt *time.Time `gorm:"index"`
}

func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) IsParticipant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

func (c *Chat) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// orderedPair returns a and b sorted by their string form.
func orderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

type Message struct {
	common.BaseModel
	ChatID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_chat_messages_chat_created"`
	SenderID uuid.UUID  `gorm:"type:uuid;not null"`
	Body     string     `gorm:"type:text;not null"`
	ReadAt   *time.Time
}

func (Message) TableName() string {
	return "chat_messages"
}

type OpenChatRequest struct {
	ListingID uuid.UUID `json:"listing_id" binding:"required"`
	// WithUserID is required when the listing owner opens the chat.
	WithUserID *uuid.UUID `json:"with_user_id"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

type ChatResponse struct {
	ID            uuid.UUID           `json:"id"`
	ListingID     uuid.UUID           `json:"listing_id"`
	UserAID       uuid.UUID           `json:"user_a_id"`
	UserA         *user.PublicProfile `json:"user_a,omitempty"`
	UserBID       uuid.UUID           `json:"user_b_id"`
	UserB         *user.PublicProfile `json:"user_b,omitempty"`
	LastMessageAt *time.Time          `json:"last_message_at"`
	CreatedAt     time.Time           `json:"created_at"`
}

func ToChatResponse(c *Chat) ChatResponse {
	resp := ChatResponse{
		ID:            c.ID,
		ListingID:     c.ListingID,
		UserAID:       c.UserAID,
		UserBID:       c.UserBID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
	if c.UserA != nil {
		p := user.ToPublicProfile(c.UserA)
		resp.UserA = &p
	}
	if c.UserB != nil {
		p := user.ToPublicProfile(c.UserB)
		resp.UserB = &p
	}
	return resp
}

func toChatResponses(chats []Chat) []ChatResponse {
	out := make([]ChatResponse, len(chats))
	for i := range chats {
		out[i] = ToChatResponse(&chats[i])
	}
	return out
}

type MessageResponse struct {
	ID        uuid.UUID  `json:"id"`
	ChatID    uuid.UUID  `json:"chat_id"`
	SenderID  uuid.UUID  `json:"sender_id"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{ID: m.ID, ChatID: m.ChatID, SenderID: m.SenderID, Body: m.Body, ReadAt: m.ReadAt, CreatedAt: m.CreatedAt}
}

func toMessageResponses(messages []Message) []MessageResponse {
	out := make([]MessageResponse, len(messages))
	for i := range messages {
		out[i] = ToMessageResponse(&messages[i])
	}
	return out
}
