package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"voice-dashboard/internal/agents"
	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type webcallTokenRequest struct {
	AgentID     string `json:"agent_id"`
	DisplayName string `json:"display_name"`
}

// WebcallToken mints a media room token that lets the caller talk to a voice
// agent from the browser. Each request gets a fresh room.
func (h Handlers) WebcallToken(c *gin.Context) {
	if h.Rooms == nil {
		notConfigured(c, "media")
		return
	}
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var req webcallTokenRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	agent, err := h.Agents.Get(ctx, org, req.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if agent.Type != agents.TypeVoice {
		respondError(c, apperrors.Validation("agent_id", "web calls need a voice agent"))
		return
	}

	meta, err := json.Marshal(map[string]string{"agent_id": agent.ID, "organization_id": org})
	if err != nil {
		respondError(c, err)
		return
	}
	name := req.DisplayName
	if name == "" {
		name = uid
	}
	tok, err := h.Rooms.Mint(time.Now(), auth.RoomGrant{
		Room:     "webcall-" + agent.ID + "-" + uuid.NewString()[:8],
		Identity: uid,
		Name:     name,
		Metadata: string(meta),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}
