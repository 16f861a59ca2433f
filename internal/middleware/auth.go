package middleware

import (
	"strings"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionKey is the gin context key holding the caller's shared.Session.
const SessionKey = "session"

// AccountStatusDeleted and AccountStatusActive mirror user.Status values
// without importing the user package.
const (
	AccountStatusActive  = "active"
	AccountStatusDeleted = "deleted"
)

// AuthMiddleware verifies the bearer access token and resolves the caller's
// live account state. The resulting session is stored both on the gin
// context and on the request context.
func AuthMiddleware(tokenService shared.TokenService, accounts shared.AccountLookup, blocklist shared.TokenBlocklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeader)
		if authHeader == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], common.AuthorizationTypeBearer) {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}
		if claims.Kind != shared.TokenKindAccess {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("An access token is required."))
			return
		}

		if blocklist != nil && claims.ID != "" {
			revoked, err := blocklist.IsBlocklisted(c.Request.Context(), claims.ID)
			if err != nil {
				common.RespondWithError(c, err)
				return
			}
			if revoked {
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Token has been revoked."))
				return
			}
		}

		state, err := accounts.GetAccountState(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.Debug("Account lookup failed for token subject", zap.String("userID", claims.UserID.String()), zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Account no longer exists."))
			return
		}
		if state.Status == AccountStatusDeleted {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Account has been deleted."))
			return
		}
		if state.Role == common.RoleBanned {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("Account is banned."))
			return
		}

		session := shared.Session{
			UserID:  claims.UserID,
			Email:   claims.Email,
			Role:    state.Role,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}

		c.Set(SessionKey, session)
		c.Request = c.Request.WithContext(shared.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// GetSession returns the session placed by AuthMiddleware.
func GetSession(c *gin.Context) (shared.Session, bool) {
	val, exists := c.Get(SessionKey)
	if !exists {
		return shared.Session{}, false
	}
	s, ok := val.(shared.Session)
	return s, ok
}

// GetUserIDFromContext returns uuid.Nil when the request is unauthenticated.
func GetUserIDFromContext(c *gin.Context) uuid.UUID {
	s, ok := GetSession(c)
	if !ok {
		return uuid.Nil
	}
	return s.UserID
}

// GetUserRoleFromContext retrieves the caller's live role.
func GetUserRoleFromContext(c *gin.Context) string {
	s, ok := GetSession(c)
	if !ok {
		return ""
	}
	return s.Role
}

// MustSession fetches the session or answers 401. Handlers behind
// AuthMiddleware use it instead of trusting the context blindly.
func MustSession(c *gin.Context) (shared.Session, bool) {
	s, ok := GetSession(c)
	if !ok || s.UserID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return shared.Session{}, false
	}
	return s, true
}

// RoleAuthMiddleware only lets through callers holding one of allowedRoles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
