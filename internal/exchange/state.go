package exchange

import (
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
)

// Status of an exchange. The four milestones are ordered; cancelled is a
// side state reachable from any milestone before confirmation.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDelivered  Status = "delivered"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Action is a move a party can make on an exchange.
type Action string

const (
	ActionStart   Action = "start"
	ActionDeliver Action = "deliver"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

type transition struct {
	from []Status
	to   Status
	// message is sent to the counterparty of the actor.
	message string
}

var transitions = map[Action]transition{
	ActionStart: {
		from:    []Status{StatusNotStarted},
		to:      StatusInProgress,
		message: "The exchange has started.",
	},
	ActionDeliver: {
		from:    []Status{StatusInProgress},
		to:      StatusDelivered,
		message: "The other party marked the exchange as delivered. Please confirm once you have received it.",
	},
	ActionConfirm: {
		from:    []Status{StatusDelivered},
		to:      StatusConfirmed,
		message: "The exchange was confirmed. You can now leave a review.",
	},
	ActionCancel: {
		from:    []Status{StatusNotStarted, StatusInProgress, StatusDelivered},
		to:      StatusCancelled,
		message: "The exchange was cancelled by the other party.",
	},
}

// Next returns the status action leads to from current.
func Next(current Status, action Action) (Status, bool) {
	t, ok := transitions[action]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if from == current {
			return t.to, true
		}
	}
	return "", false
}

// Guard holds what the rules need to know besides the exchange itself.
type Guard struct {
	Actor          uuid.UUID
	ContractActive bool
}

// Plan checks that g.Actor may apply action to e and returns the target
// status with the columns to write.
func Plan(e *Exchange, action Action, g Guard, at time.Time) (Status, map[string]interface{}, error) {
	if !e.IsParty(g.Actor) {
		return "", nil, common.ErrNotAParty
	}
	next, ok := Next(e.Status, action)
	if !ok {
		return "", nil, common.ErrInvalidTransition.WithDetails("Cannot " + string(action) + " an exchange that is " + string(e.Status) + ".")
	}

	fields := map[string]interface{}{"status": next, "updated_at": at}
	switch action {
	case ActionStart:
		if !g.ContractActive {
			return "", nil, common.ErrContractNotActive
		}
		fields["started_at"] = at
	case ActionDeliver:
		fields["delivered_by"] = g.Actor
		fields["delivered_at"] = at
	case ActionConfirm:
		if e.DeliveredBy != nil && *e.DeliveredBy == g.Actor {
			return "", nil, common.ErrSelfConfirmation
		}
		fields["confirmed_at"] = at
	case ActionCancel:
		fields["cancelled_by"] = g.Actor
		fields["cancelled_at"] = at
	}
	return next, fields, nil
}

// Message is the fixed notification text of action.
func Message(action Action) string {
	return transitions[action].message
}
