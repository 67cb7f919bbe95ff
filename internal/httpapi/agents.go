package httpapi

import (
	"net/http"

	"voice-dashboard/internal/agents"
	"voice-dashboard/internal/audit"
	"voice-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListAgents(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Agents.List(c.Request.Context(), org, agents.ListFilter{
		Type:   agents.Type(c.Query("type")),
		Status: agents.Status(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) CreateAgent(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var in agents.CreateInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Agents.Create(c.Request.Context(), org, uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetAgent(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Agents.Get(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpdateAgent(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in agents.UpdateInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Agents.Update(c.Request.Context(), org, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) SetAgentStatus(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Agents.SetStatus(c.Request.Context(), org, c.Param("id"), agents.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpsertVoiceConfig(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in agents.VoiceConfigInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Agents.UpsertVoiceConfig(c.Request.Context(), org, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type connectNumberRequest struct {
	PhoneNumberID string `json:"phone_number_id"`
}

func (h Handlers) ConnectPhoneNumber(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var req connectNumberRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Agents.ConnectPhoneNumber(c.Request.Context(), org, uid, c.Param("id"), req.PhoneNumberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) DisconnectPhoneNumber(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Agents.DisconnectPhoneNumber(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type testCallRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// TestCall places one outbound call from the agent to the given number.
func (h Handlers) TestCall(c *gin.Context) {
	if h.Voice == nil {
		notConfigured(c, "voice")
		return
	}
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var req testCallRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	agentID := c.Param("id")
	if _, err := h.Agents.Get(ctx, org, agentID); err != nil {
		respondError(c, err)
		return
	}
	res, err := h.Voice.MakeTestCall(ctx, org, agentID, req.PhoneNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Activity != nil {
		if err := h.Activity.Record(ctx, org, uid, audit.ActionTestCall, "agent", agentID, map[string]string{"call_id": res.CallID}); err != nil {
			logger.FromGin(c).Warn("activity record failed", "action", audit.ActionTestCall, "agent_id", agentID, "err", err)
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"call_id": res.CallID, "status": res.Status, "started_at": res.StartedAt})
}

// --- phone numbers ---

func (h Handlers) ListPhoneNumbers(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Agents.ListNumbers(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) ListPhoneNumberPool(c *gin.Context) {
	out, err := h.Agents.ListPool(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) ClaimPhoneNumber(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Agents.Claim(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ReleasePhoneNumber(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	if err := h.Agents.Release(c.Request.Context(), org, uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
