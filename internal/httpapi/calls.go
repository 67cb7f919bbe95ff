package httpapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"voice-dashboard/internal/calls"
	"voice-dashboard/internal/reporting"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func callFilter(c *gin.Context) (calls.Filter, bool) {
	from, ok := queryTime(c, "from")
	if !ok {
		return calls.Filter{}, false
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return calls.Filter{}, false
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return calls.Filter{}, false
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return calls.Filter{}, false
	}
	return calls.Filter{
		CampaignID: c.Query("campaign_id"),
		AgentID:    c.Query("agent_id"),
		Status:     calls.Status(c.Query("status")),
		CallType:   calls.CallType(c.Query("call_type")),
		From:       from,
		To:         to,
		Limit:      limit,
		Offset:     offset,
	}, true
}

func (h Handlers) ListCalls(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	f, ok := callFilter(c)
	if !ok {
		return
	}
	out, err := h.Calls.List(c.Request.Context(), org, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) GetCall(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	out, err := h.Calls.Get(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CallsSummary(c *gin.Context) {
	org, _, ok := scope(c)
	if !ok {
		return
	}
	rng, ok := reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		OrganizationID: org,
		Range:          rng,
		CampaignID:     c.Query("campaign_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ExportCalls renders the filtered call log as an XLSX download.
func (h Handlers) ExportCalls(c *gin.Context) {
	if h.Export == nil {
		notConfigured(c, "export")
		return
	}
	org, uid, ok := scope(c)
	if !ok {
		return
	}
	f, ok := callFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	n, err := h.Export.Calls(c.Request.Context(), org, uid, f, &buf)
	if err != nil {
		respondError(c, err)
		return
	}
	name := "calls-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("X-Row-Count", strconv.Itoa(n))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
