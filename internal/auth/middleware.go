package auth

import (
	"net/http"
	"strings"
	"time"

	"voice-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// bearerToken reads the Authorization header. EventSource clients cannot set
// headers, so ?access_token is accepted when the header is absent.
func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		return c.Query("access_token")
	}
	if tok, ok := strings.CutPrefix(raw, bearerPrefix); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

// RequireAccessToken verifies an access token and puts the caller's Identity
// on the request context. Role checks live in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := Identity{UserID: claims.UserID, OrganizationID: claims.OrganizationID, Role: claims.Role}
		ctx := WithIdentity(c.Request.Context(), id)
		reqLog := logger.From(ctx).With("user_id", id.UserID, "organization_id", id.OrganizationID)
		c.Set("logger", reqLog)
		c.Request = c.Request.WithContext(logger.With(ctx, reqLog))
		c.Next()
	}
}
