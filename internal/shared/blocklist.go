package shared

import (
	"context"
	"time"
)

// TokenBlocklist tracks revoked token IDs until their natural expiry.
type TokenBlocklist interface {
	AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}
