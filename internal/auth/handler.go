package auth

import (
	"net/http"
	"net/url"
	"strconv"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/middleware"
	"bontroc_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	cfg     *config.Config
	logger  *zap.Logger
}

func NewHandler(service Service, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{service: service, cfg: cfg, logger: logger}
}

// RegisterRoutes mounts /auth. authMW guards the routes that need a session.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.signUp)
		authGroup.POST("/signin", h.signIn)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/oauth/session", h.oauthSession)
		authGroup.GET("/oauth/callback", h.oauthCallback)

		authGroup.POST("/signout", authMW, h.signOut)
		authGroup.GET("/me", authMW, h.me)
	}
}

func (h *Handler) signUp(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, tokens, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Account created successfully.", SessionResponse{User: user.ToUserResponse(u), Token: tokens, Created: true})
}

func (h *Handler) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, tokens, err := h.service.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Signed in successfully.", SessionResponse{User: user.ToUserResponse(u), Token: tokens})
}

func (h *Handler) refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Token refreshed successfully.", tokens)
}

func (h *Handler) signOut(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	var req SignOutRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)
	if err := h.service.SignOut(c.Request.Context(), session, req.RefreshToken); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	session, ok := middleware.MustSession(c)
	if !ok {
		return
	}
	u, err := h.service.Me(c.Request.Context(), session.UserID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", user.ToUserResponse(u))
}

func (h *Handler) oauthSession(c *gin.Context) {
	var req IDTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, tokens, created, err := h.service.ExchangeIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Signed in successfully.", SessionResponse{User: user.ToUserResponse(u), Token: tokens, Created: created})
}

// oauthCallback performs the same exchange, then hands the token pair to the
// mobile app through its custom URI scheme. Tokens travel in the fragment so
// they never reach a server log.
func (h *Handler) oauthCallback(c *gin.Context) {
	idToken := c.Query("id_token")
	if idToken == "" {
		h.redirectToApp(c, url.Values{"error": {"invalid_request"}, "error_description": {"id_token is required"}})
		return
	}
	_, tokens, _, err := h.service.ExchangeIDToken(c.Request.Context(), idToken)
	if err != nil {
		desc := "sign-in failed"
		if apiErr, ok := common.IsAPIError(err); ok {
			desc = apiErr.Message
		}
		h.logger.Warn("OAuth callback exchange failed", zap.Error(err))
		h.redirectToApp(c, url.Values{"error": {"access_denied"}, "error_description": {desc}})
		return
	}
	h.redirectToApp(c, url.Values{
		"access_token":  {tokens.AccessToken},
		"refresh_token": {tokens.RefreshToken},
		"token_type":    {tokens.TokenType},
		"expires_in":    {strconv.FormatInt(tokenExpiry(tokens), 10)},
	})
}

func (h *Handler) redirectToApp(c *gin.Context, fragment url.Values) {
	c.Redirect(http.StatusFound, h.cfg.OAuthRedirectURI+"#"+fragment.Encode())
}
