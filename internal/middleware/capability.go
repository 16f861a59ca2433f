package middleware

import (
	"bontroc_backend/internal/common"
	"bontroc_backend/internal/platform/database"

	"github.com/gin-gonic/gin"
)

// RequireCapability answers 503 FEATURE_DISABLED when the optional feature
// backing a route group is switched off or its tables are missing.
func RequireCapability(caps *database.Capabilities, capability database.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !caps.Enabled(capability) {
			common.RespondWithError(c, common.ErrFeatureDisabled.WithDetails(string(capability)+" is disabled."))
			return
		}
		c.Next()
	}
}
