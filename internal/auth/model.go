package auth

import (
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/user"
)

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type IDTokenRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// SessionResponse is returned by every flow that starts a session.
type SessionResponse struct {
	User    user.UserResponse     `json:"user"`
	Token   *shared.TokenResponse `json:"token"`
	Created bool                  `json:"created,omitempty"`
}
