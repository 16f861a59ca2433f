package shared

import (
	"context"

	"github.com/google/uuid"
)

// AccountState is the live role and lifecycle status of an account.
type AccountState struct {
	Role   string
	Status string
}

// AccountLookup resolves the current state of an account so that role
// changes and bans apply to tokens that were issued before them.
type AccountLookup interface {
	GetAccountState(ctx context.Context, userID uuid.UUID) (*AccountState, error)
}
