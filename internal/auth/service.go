package auth

import (
	"context"
	"errors"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/user"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs the session flows: sign-up, sign-in, refresh, sign-out and
// the social sign-in token exchange.
type Service interface {
	SignUp(ctx context.Context, req user.RegisterRequest) (*user.User, *shared.TokenResponse, error)
	SignIn(ctx context.Context, email, password string) (*user.User, *shared.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*shared.TokenResponse, error)
	SignOut(ctx context.Context, session shared.Session, refreshToken string) error
	ExchangeIDToken(ctx context.Context, idToken string) (*user.User, *shared.TokenResponse, bool, error)
	Me(ctx context.Context, userID uuid.UUID) (*user.User, error)
}

type ServiceImplementation struct {
	users     UserProvider
	tokens    shared.TokenService
	blocklist shared.TokenBlocklist
	verifier  IDTokenVerifier
	logger    *zap.Logger
}

func NewService(users UserProvider, tokens shared.TokenService, blocklist shared.TokenBlocklist, verifier IDTokenVerifier, logger *zap.Logger) Service {
	return &ServiceImplementation{
		users:     users,
		tokens:    tokens,
		blocklist: blocklist,
		verifier:  verifier,
		logger:    logger.Named("AuthService"),
	}
}

func (s *ServiceImplementation) issue(u *user.User) (*shared.TokenResponse, error) {
	access, expiresAt, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return nil, common.ErrInternalServer.WithDetails("Could not generate access token.")
	}
	refresh, _, err := s.tokens.GenerateRefreshToken(u)
	if err != nil {
		return nil, common.ErrInternalServer.WithDetails("Could not generate refresh token.")
	}
	return &shared.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (s *ServiceImplementation) SignUp(ctx context.Context, req user.RegisterRequest) (*user.User, *shared.TokenResponse, error) {
	u, err := s.users.Register(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (s *ServiceImplementation) SignIn(ctx context.Context, email, password string) (*user.User, *shared.TokenResponse, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("User signed in", zap.String("userID", u.ID.String()))
	return u, tokens, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued against the account's current role.
func (s *ServiceImplementation) Refresh(ctx context.Context, refreshToken string) (*shared.TokenResponse, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired refresh token.")
	}
	if revoked, err := s.blocklist.IsBlocklisted(ctx, claims.ID); err != nil {
		return nil, err
	} else if revoked {
		return nil, common.ErrUnauthorized.WithDetails("Refresh token has been revoked.")
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized.WithDetails("User associated with refresh token not found.")
		}
		return nil, err
	}
	if !u.CanSignIn() {
		return nil, common.ErrForbidden.WithDetails("This account is not allowed to sign in.")
	}

	if claims.ExpiresAt != nil {
		if err := s.blocklist.AddToBlocklist(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
		}
	}
	return s.issue(u)
}

// SignOut revokes the current access token and, when given, the refresh token.
func (s *ServiceImplementation) SignOut(ctx context.Context, session shared.Session, refreshToken string) error {
	if session.TokenID != "" {
		if err := s.blocklist.AddToBlocklist(ctx, session.TokenID, session.ExpiresAt); err != nil {
			s.logger.Error("Failed to blocklist access token", zap.Error(err))
			return common.ErrInternalServer.WithDetails("Could not sign out.")
		}
	}
	if refreshToken != "" {
		claims, err := s.tokens.ParseRefreshToken(refreshToken)
		if err == nil && claims.UserID == session.UserID && claims.ExpiresAt != nil {
			if err := s.blocklist.AddToBlocklist(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				s.logger.Warn("Failed to blocklist refresh token", zap.Error(err))
			}
		}
	}
	s.logger.Info("User signed out", zap.String("userID", session.UserID.String()))
	return nil
}

// ExchangeIDToken turns a verified social sign-in ID token into an API
// session. The bool reports whether a new account was created.
func (s *ServiceImplementation) ExchangeIDToken(ctx context.Context, idToken string) (*user.User, *shared.TokenResponse, bool, error) {
	if s.verifier == nil {
		return nil, nil, false, common.ErrFeatureDisabled.WithDetails("Social sign-in is not configured.")
	}
	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, nil, false, common.ErrUnauthorized.WithDetails("Invalid identity token.")
	}

	u, created, err := s.users.FindOrCreateFromIdentity(ctx, identityFromToken(token))
	if err != nil {
		return nil, nil, false, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, nil, false, err
	}
	return u, tokens, created, nil
}

func (s *ServiceImplementation) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func identityFromToken(token *firebaseauth.Token) user.ExternalIdentity {
	identity := user.ExternalIdentity{
		UID:      token.UID,
		Provider: token.Firebase.SignInProvider,
	}
	if v, ok := token.Claims["email"].(string); ok {
		identity.Email = v
	}
	if v, ok := token.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = v
	}
	if v, ok := token.Claims["name"].(string); ok {
		identity.DisplayName = v
	}
	if v, ok := token.Claims["picture"].(string); ok {
		identity.PictureURL = v
	}
	return identity
}

// tokenExpiry is used by the deep-link redirect.
func tokenExpiry(t *shared.TokenResponse) int64 {
	return int64(time.Until(t.ExpiresAt).Seconds())
}
