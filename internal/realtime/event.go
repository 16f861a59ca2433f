// Package realtime carries row-change events to the users they concern.
// Events hold the changed row so subscribers can merge it by id instead of
// re-querying.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of change an Event describes.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionBulkRead marks every notification of the audience as read up to At.
	ActionBulkRead Action = "bulk_read"
	// ActionResync tells a subscriber that events were dropped for it and
	// any state built from earlier events must be reloaded.
	ActionResync Action = "resync"
)

// Tables that emit events.
const (
	TableProposals     = "proposals"
	TableNotifications = "notifications"
	TableChatMessages  = "chat_messages"
)

// Event is one row change, addressed to a single user.
type Event struct {
	Table  string          `json:"table"`
	Action Action          `json:"action"`
	UserID uuid.UUID       `json:"user_id"`
	RowID  uuid.UUID       `json:"row_id,omitempty"`
	Row    json.RawMessage `json:"row,omitempty"`
	At     time.Time       `json:"at"`
}

// NewEvent serialises row into an Event for userID.
func NewEvent(table string, action Action, userID, rowID uuid.UUID, row interface{}) (Event, error) {
	ev := Event{
		Table:  table,
		Action: action,
		UserID: userID,
		RowID:  rowID,
		At:     time.Now().UTC(),
	}
	if row != nil {
		raw, err := json.Marshal(row)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s row %s: %w", table, rowID, err)
		}
		ev.Row = raw
	}
	return ev, nil
}
