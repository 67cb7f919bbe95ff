package httpapi

import (
	"net/http"
	"strings"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/rbac"

	"github.com/gin-gonic/gin"
)

// --- notifications ---

func (h Handlers) ListNotifications(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Notifications.List(c.Request.Context(), org, uid, c.Query("unread") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) MarkNotificationRead(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), org, uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- activity ---

// ListActivity serves the activity log. Organization admins see their own
// organization; super_admin may pass ?organization_id or omit it.
func (h Handlers) ListActivity(c *gin.Context) {
	ctx := c.Request.Context()
	role, _ := auth.Role(ctx)
	org, _ := auth.OrganizationID(ctx)
	if rbac.IsSuperAdmin(role) {
		org = c.Query("organization_id")
	} else if org == "" {
		respondError(c, apperrors.Validation("organization_id", "is required"))
		return
	}
	since, ok := queryTime(c, "since")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	out, err := h.Activity.List(ctx, audit.Filter{
		OrganizationID: org,
		UserID:         c.Query("user_id"),
		Action:         audit.Action(c.Query("action")),
		EntityType:     c.Query("entity_type"),
		Since:          since,
		Limit:          limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// --- organizations (super_admin) ---

func (h Handlers) ListOrganizations(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	out, err := h.Orgs.ListOrganizations(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) GetOrganization(c *gin.Context) {
	out, err := h.Orgs.GetOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

func (h Handlers) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Orgs.CreateOrganization(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type assignRoleRequest struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
}

func (h Handlers) AssignRole(c *gin.Context) {
	var req assignRoleRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Orgs.AssignRole(c.Request.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.OrganizationID), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) RemoveRole(c *gin.Context) {
	if err := h.Orgs.RemoveRole(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
