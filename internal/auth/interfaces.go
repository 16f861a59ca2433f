package auth

import (
	"context"

	"bontroc_backend/internal/firebase"
	"bontroc_backend/internal/user"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
)

// UserProvider is the account API the auth flows need.
type UserProvider interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	FindOrCreateFromIdentity(ctx context.Context, identity user.ExternalIdentity) (*user.User, bool, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// IDTokenVerifier verifies identity tokens issued by the social sign-in provider.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// NewIDTokenVerifier turns an unconfigured Firebase service into a nil
// interface so callers can test for "social sign-in disabled".
func NewIDTokenVerifier(fs *firebase.FirebaseService) IDTokenVerifier {
	if fs == nil {
		return nil
	}
	return fs
}
