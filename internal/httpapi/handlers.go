package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voice-dashboard/internal/agents"
	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/audit"
	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
	"voice-dashboard/internal/campaigns"
	"voice-dashboard/internal/chat"
	"voice-dashboard/internal/chatclient"
	"voice-dashboard/internal/contacts"
	"voice-dashboard/internal/export"
	"voice-dashboard/internal/notify"
	"voice-dashboard/internal/orgs"
	"voice-dashboard/internal/rbac"
	"voice-dashboard/internal/reporting"
	"voice-dashboard/internal/signup"
	"voice-dashboard/internal/syncview"
	"voice-dashboard/internal/voice"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth  *auth.Manager
	Rooms *auth.RoomMinter

	Orgs          *orgs.Service
	Campaigns     *campaigns.Service
	Agents        *agents.Service
	Contacts      *contacts.Service
	Queue         *callqueue.Service
	Calls         *calls.Service
	Reporting     *reporting.Service
	Export        *export.Exporter
	Chat          *chat.Service
	Activity      *audit.Service
	Notifications *notify.Service

	ChatServer *chatclient.Client
	Voice      *voice.Service

	Signup       *signup.Provisioner
	SignupSecret string

	// Realtime feeds /realtime and /live streams. *realtime.Registry satisfies it.
	Realtime syncview.Subscriber
	Notifier notify.Notifier

	// KeepAlive is the SSE comment interval. Zero means 15s.
	KeepAlive time.Duration
}

func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- errors ---

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindConflict, apperrors.KindInvalidTransition:
		return http.StatusConflict
	case apperrors.KindUnavailable:
		return http.StatusBadGateway
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps err onto a status and a JSON body. Internal errors are
// recorded on the gin context for the request logger and hidden from clients.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kind})
}

func notConfigured(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": what + " not configured"})
}

// --- request helpers ---

// scope resolves the organization the request acts on. super_admin callers
// without an organization claim pass ?organization_id.
func scope(c *gin.Context) (organizationID, userID string, ok bool) {
	ctx := c.Request.Context()
	userID, _ = auth.UserID(ctx)
	organizationID, _ = auth.OrganizationID(ctx)
	if role, _ := auth.Role(ctx); organizationID == "" && rbac.IsSuperAdmin(role) {
		organizationID = c.Query("organization_id")
	}
	if organizationID == "" {
		respondError(c, apperrors.Validation("organization_id", "is required"))
		return "", "", false
	}
	return organizationID, userID, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.Validation("body", "invalid json"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, apperrors.Validation(name, "must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, apperrors.Validation(name, "must be RFC3339"))
		return time.Time{}, false
	}
	return t, true
}

const defaultReportWindow = 30 * 24 * time.Hour

// reportRange reads ?from and ?to, defaulting to the trailing 30 days.
func reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	from, ok := queryTime(c, "from")
	if !ok {
		return reporting.TimeRange{}, false
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return reporting.TimeRange{}, false
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultReportWindow)
	}
	return reporting.TimeRange{From: from, To: to}, true
}

// --- auth ---

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair carrying the same identity.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil || h.Orgs == nil {
		notConfigured(c, "auth")
		return
	}
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), time.Now(), req.RefreshToken, h.Orgs)
	if errors.Is(err, auth.ErrInvalidToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h Handlers) Me(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	oid, _ := auth.OrganizationID(ctx)
	role, _ := auth.Role(ctx)
	out := gin.H{"user_id": uid, "organization_id": oid, "role": role}
	if h.Orgs != nil {
		if p, err := h.Orgs.GetProfile(ctx, uid); err == nil {
			out["profile"] = p
		}
	}
	c.JSON(http.StatusOK, out)
}
