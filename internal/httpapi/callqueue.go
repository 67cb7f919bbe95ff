package httpapi

import (
	"net/http"

	"voice-dashboard/internal/callqueue"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListQueue(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	out, err := h.Queue.List(c.Request.Context(), org, callqueue.Filter{
		Status:     callqueue.Status(c.Query("status")),
		CampaignID: c.Query("campaign_id"),
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) Enqueue(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var in callqueue.EnqueueInput
	if !bind(c, &in) {
		return
	}
	out, err := h.Queue.Enqueue(c.Request.Context(), org, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) GetQueueItem(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Queue.Get(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type transitionRequest struct {
	Status    string `json:"status"`
	LastError string `json:"last_error"`
}

func (h Handlers) TransitionQueueItem(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	var req transitionRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Queue.Transition(c.Request.Context(), org, c.Param("id"), callqueue.Status(req.Status), req.LastError)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CancelQueueItem(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Queue.Cancel(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) RetryQueueItem(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Queue.Retry(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
