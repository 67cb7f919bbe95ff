package httpapi

import (
	"net/http"

	"voice-dashboard/internal/chat"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListChatSessions(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Chat.ListSessions(c.Request.Context(), org, chat.ListFilter{
		Status:     chat.SessionStatus(c.Query("status")),
		AgentID:    c.Query("agent_id"),
		AssignedTo: c.Query("assigned_to"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) CreateChatSession(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in chat.CreateSessionInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Chat.CreateSession(c.Request.Context(), org, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetChatSession(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Chat.GetSession(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AppendChatMessage(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var in chat.MessageInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Chat.AppendMessage(c.Request.Context(), org, c.Param("id"), uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) HandoverChatSession(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Chat.Handover(c.Request.Context(), org, c.Param("id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ReturnChatSessionToAI(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Chat.ReturnToAI(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CloseChatSession(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Chat.Close(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
