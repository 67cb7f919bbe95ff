package httpapi

import (
	"net/http"

	"voice-dashboard/internal/campaigns"
	"voice-dashboard/internal/reporting"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListCampaigns(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Campaigns.List(c.Request.Context(), org, campaigns.ListFilter{
		Status:         campaigns.Status(c.Query("status")),
		IncludeDeleted: c.Query("include_deleted") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) CreateCampaign(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var in campaigns.CreateInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Campaigns.Create(c.Request.Context(), org, uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetCampaign(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Campaigns.Get(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpdateCampaign(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in campaigns.UpdateInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Campaigns.Update(c.Request.Context(), org, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) SetCampaignStatus(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Campaigns.SetStatus(c.Request.Context(), org, uid, c.Param("id"), campaigns.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type campaignAgentsRequest struct {
	AgentIDs       []string `json:"agent_ids"`
	PrimaryAgentID string   `json:"primary_agent_id"`
}

func (h Handlers) SetCampaignAgents(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var req campaignAgentsRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Campaigns.SetAgents(c.Request.Context(), org, c.Param("id"), req.AgentIDs, req.PrimaryAgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type primaryAgentRequest struct {
	AgentID string `json:"agent_id"`
}

func (h Handlers) SetCampaignPrimaryAgent(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var req primaryAgentRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Campaigns.SetPrimaryAgent(c.Request.Context(), org, c.Param("id"), req.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type contactListsRequest struct {
	ContactListIDs []string `json:"contact_list_ids"`
}

func (h Handlers) SetCampaignContactLists(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var req contactListsRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Campaigns.SetContactLists(c.Request.Context(), org, c.Param("id"), req.ContactListIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) DeleteCampaign(c *gin.Context) {
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	if err := h.Campaigns.Delete(c.Request.Context(), org, uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) CampaignStats(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	rng, ok := reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reporting.CampaignStats(c.Request.Context(), reporting.CampaignStatsRequest{
		OrganizationID: org,
		CampaignID:     c.Param("id"),
		Range:          rng,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
