package rbac

import (
	"net/http"

	"voice-dashboard/internal/auth"

	"github.com/gin-gonic/gin"
)

// guard runs allow against the caller's Identity. A request without one is
// 401; a refused one is 403.
func guard(allow func(id auth.Identity) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !allow(id) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireOrganization rejects tenant users whose token has no organization.
// super_admin may act without one; handlers then read ?organization_id.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.IdentityFrom(c.Request.Context())
		if id.OrganizationID == "" && !IsSuperAdmin(id.Role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole admits the listed roles and super_admin.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return guard(func(id auth.Identity) bool {
		_, ok := set[id.Role]
		return ok || IsSuperAdmin(id.Role)
	})
}

// RequireAtLeast admits roles ranked min or higher.
func RequireAtLeast(min string) gin.HandlerFunc {
	return guard(func(id auth.Identity) bool { return AtLeast(id.Role, min) })
}
