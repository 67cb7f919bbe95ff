package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-dashboard/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, userID, orgID, role string, chain ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: userID, OrganizationID: orgID, Role: role})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}
	handlers = append(handlers, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serve(t, "u", "", RoleSuperAdmin, RequireOrganization(), RequireAnyRole(RoleAdmin)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesOtherRoles(t *testing.T) {
	if code := serve(t, "u", "o", RoleMember, RequireOrganization(), RequireAnyRole(RoleAdmin, RoleManager)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireOrganization_Required(t *testing.T) {
	if code := serve(t, "u", "", RoleAdmin, RequireOrganization(), RequireAnyRole(RoleAdmin)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAtLeast(t *testing.T) {
	if code := serve(t, "u", "o", RoleAdmin, RequireAtLeast(RoleManager)); code != 200 {
		t.Fatalf("expected admin to pass manager gate, got %d", code)
	}
	if code := serve(t, "u", "o", RoleMember, RequireAtLeast(RoleManager)); code != 403 {
		t.Fatalf("expected member to be denied, got %d", code)
	}
	if code := serve(t, "u", "o", "owner", RequireAtLeast(RoleMember)); code != 403 {
		t.Fatalf("expected unknown role to be denied, got %d", code)
	}
}
