package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated caller of a single request. It is built by the
// auth middleware from a verified token and carried explicitly through the
// request context; nothing holds it globally.
type Session struct {
	UserID    uuid.UUID
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext extracts the session placed by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
