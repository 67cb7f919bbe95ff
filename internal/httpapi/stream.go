package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"voice-dashboard/internal/agents"
	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/auth"
	"voice-dashboard/internal/callqueue"
	"voice-dashboard/internal/calls"
	"voice-dashboard/internal/campaigns"
	"voice-dashboard/internal/chat"
	"voice-dashboard/internal/chatclient"
	"voice-dashboard/internal/rbac"
	"voice-dashboard/internal/realtime"
	"voice-dashboard/internal/syncview"
	"voice-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultKeepAlive = 15 * time.Second

// streamTables are the tables clients may watch through /realtime.
var streamTables = map[string]bool{
	"campaigns":     true,
	"agents":        true,
	"phone_numbers": true,
	"contact_lists": true,
	"call_queue":    true,
	"calls":         true,
	"chat_sessions": true,
	"chat_messages": true,
	"notifications": true,
}

func (h Handlers) keepAlive() time.Duration {
	if h.KeepAlive > 0 {
		return h.KeepAlive
	}
	return defaultKeepAlive
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

func ping(w io.Writer) {
	_, _ = io.WriteString(w, ": keep-alive\n\n")
}

// authorizeFilter scopes key to organizationID. An empty filter becomes the
// organization filter; session and campaign filters must name a row the
// organization owns.
func (h Handlers) authorizeFilter(ctx context.Context, organizationID string, key *realtime.ChannelKey) error {
	f := key.Filter
	switch f.Column {
	case "":
		key.Filter = realtime.Eq("organization_id", organizationID)
		return nil
	case "organization_id":
		if f.Value != organizationID {
			return apperrors.NotFound("organization", f.Value)
		}
		return nil
	case "session_id":
		if h.Chat == nil {
			return apperrors.Validation("filter", "session filters are not available")
		}
		_, err := h.Chat.GetSession(ctx, organizationID, f.Value)
		return err
	case "campaign_id":
		if h.Campaigns == nil {
			return apperrors.Validation("filter", "campaign filters are not available")
		}
		_, err := h.Campaigns.Get(ctx, organizationID, f.Value)
		return err
	default:
		return apperrors.Validation("filter", "unsupported column "+f.Column)
	}
}

// StreamChanges relays raw row changes for one table as server-sent events.
// A "resync" event tells the client that changes may have been missed.
func (h Handlers) StreamChanges(c *gin.Context) {
	if h.Realtime == nil {
		notConfigured(c, "realtime")
		return
	}
	table := c.Param("table")
	if !streamTables[table] {
		respondError(c, apperrors.NotFound("realtime table", table))
		return
	}
	key, err := realtime.NewChannelKey(table, c.Query("filter"))
	if err != nil {
		respondError(c, apperrors.Validation("filter", err.Error()))
		return
	}
	ctx := c.Request.Context()
	if role, _ := auth.Role(ctx); !rbac.IsSuperAdmin(role) {
		org, _, ok := scope(c)
		if !ok {
			return
		}
		if err := h.authorizeFilter(ctx, org, &key); err != nil {
			respondError(c, err)
			return
		}
	}

	sub, err := h.Realtime.Subscribe(ctx, key)
	if err != nil {
		respondError(c, apperrors.Unavailable("realtime", err))
		return
	}
	defer sub.Close()

	sseHeaders(c)
	c.Status(http.StatusOK)
	c.SSEvent("subscribed", gin.H{"topic": key.Topic()})
	c.Writer.Flush()

	tick := time.NewTicker(h.keepAlive())
	defer tick.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ch, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("change", ch)
			return true
		case _, ok := <-sub.Resync():
			if !ok {
				return false
			}
			c.SSEvent("resync", gin.H{"table": key.Table})
			return true
		case <-tick.C:
			ping(w)
			return true
		}
	})
}

// StreamLive serves a synchronized list: a snapshot event on connect and
// again after every applied change.
func (h Handlers) StreamLive(c *gin.Context) {
	if h.Realtime == nil {
		notConfigured(c, "realtime")
		return
	}
	org, _, ok := scope(c)
	if !ok {
		return
	}
	byOrg := realtime.Eq("organization_id", org)

	switch entity := c.Param("entity"); entity {
	case "campaigns":
		serveLive(c, h, syncview.Config[campaigns.Campaign]{
			Entity: entity,
			Key:    realtime.ChannelKey{Table: "campaigns", Filter: byOrg},
			Fetch: func(ctx context.Context) ([]campaigns.Campaign, error) {
				return h.Campaigns.List(ctx, org, campaigns.ListFilter{})
			},
			ID:              func(v campaigns.Campaign) string { return v.ID },
			Keep:            func(v campaigns.Campaign) bool { return v.DeletedAt == nil },
			RefetchOnUpdate: true,
		})
	case "agents":
		serveLive(c, h, syncview.Config[agents.Agent]{
			Entity: entity,
			Key:    realtime.ChannelKey{Table: "agents", Filter: byOrg},
			Fetch: func(ctx context.Context) ([]agents.Agent, error) {
				return h.Agents.List(ctx, org, agents.ListFilter{})
			},
			ID:              func(v agents.Agent) string { return v.ID },
			RefetchOnUpdate: true,
		})
	case "phone_numbers":
		serveLive(c, h, syncview.Config[agents.PhoneNumber]{
			Entity: entity,
			Key:    realtime.ChannelKey{Table: "phone_numbers", Filter: byOrg},
			Fetch: func(ctx context.Context) ([]agents.PhoneNumber, error) {
				return h.Agents.ListNumbers(ctx, org)
			},
			ID: func(v agents.PhoneNumber) string { return v.ID },
			// Released numbers leave the organization.
			Keep: func(v agents.PhoneNumber) bool { return v.OrganizationID == org },
		})
	case "calls":
		serveLive(c, h, syncview.Config[calls.Call]{
			Entity: entity,
			Key:    realtime.ChannelKey{Table: "calls", Filter: byOrg},
			Fetch: func(ctx context.Context) ([]calls.Call, error) {
				return h.Calls.List(ctx, org, calls.Filter{Limit: calls.DefaultLimit})
			},
			ID: func(v calls.Call) string { return v.ID },
		})
	case "call_queue":
		serveLive(c, h, syncview.Config[callqueue.Item]{
			Entity: entity,
			Key:    realtime.ChannelKey{Table: "call_queue", Filter: byOrg},
			Fetch: func(ctx context.Context) ([]callqueue.Item, error) {
				return h.Queue.List(ctx, org, callqueue.Filter{})
			},
			ID: func(v callqueue.Item) string { return v.ID },
		})
	case "chat_sessions":
		serveLive(c, h, syncview.Config[chat.Session]{
			Entity: entity,
			Key:    realtime.ChannelKey{Table: "chat_sessions", Filter: byOrg},
			Fetch: func(ctx context.Context) ([]chat.Session, error) {
				return h.Chat.ListSessions(ctx, org, chat.ListFilter{})
			},
			ID:   func(v chat.Session) string { return v.ID },
			Keep: func(v chat.Session) bool { return v.Status != chat.SessionClosed },
		})
	default:
		respondError(c, apperrors.NotFound("live list", entity))
	}
}

func serveLive[T any](c *gin.Context, h Handlers, cfg syncview.Config[T]) {
	cfg.Notifier = h.Notifier
	cfg.Log = logger.FromGin(c)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	list := syncview.New(cfg)
	if err := list.Start(ctx, h.Realtime); err != nil {
		respondError(c, apperrors.Unavailable("realtime", err))
		return
	}

	send := func() {
		st := list.State()
		payload := gin.H{"data": st.Data, "is_loading": st.IsLoading}
		if st.Err != nil {
			payload["error"] = st.Err.Error()
		}
		c.SSEvent("snapshot", payload)
	}

	// Start has already applied the first fetch; its update signal is stale.
	select {
	case <-list.Updates():
	default:
	}
	sseHeaders(c)
	c.Status(http.StatusOK)
	send()
	c.Writer.Flush()

	tick := time.NewTicker(h.keepAlive())
	defer tick.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-list.Done():
			return false
		case <-list.Updates():
			if list.State().IsLoading {
				return true
			}
			send()
			return true
		case <-tick.C:
			ping(w)
			return true
		}
	})
}

// --- chat server proxy ---

type chatStartRequest struct {
	AgentID string `json:"agent_id"`
}

func (h Handlers) StartChatServerSession(c *gin.Context) {
	if h.ChatServer == nil {
		notConfigured(c, "chat server")
		return
	}
	if _, _, ok := scope(c); !ok {
		return
	}
	var req chatStartRequest
	if !bind(c, &req) {
		return
	}
	id, err := h.ChatServer.StartSession(c.Request.Context(), req.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (h Handlers) EndChatServerSession(c *gin.Context) {
	if h.ChatServer == nil {
		notConfigured(c, "chat server")
		return
	}
	if _, _, ok := scope(c); !ok {
		return
	}
	if err := h.ChatServer.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// chatServerAgent resolves :id to an agent of the caller's organization.
func (h Handlers) chatServerAgent(c *gin.Context) (string, bool) {
	if h.ChatServer == nil {
		notConfigured(c, "chat server")
		return "", false
	}
	org, _, ok := scope(c)
	if !ok {
		return "", false
	}
	a, err := h.Agents.Get(c.Request.Context(), org, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return a.ID, true
}

func (h Handlers) ListChatServerSessions(c *gin.Context) {
	agentID, ok := h.chatServerAgent(c)
	if !ok {
		return
	}
	out, err := h.ChatServer.ListSessions(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h Handlers) GetChatConfig(c *gin.Context) {
	agentID, ok := h.chatServerAgent(c)
	if !ok {
		return
	}
	out, err := h.ChatServer.GetConfig(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CreateChatConfig(c *gin.Context) { h.writeChatConfig(c, http.StatusCreated) }

func (h Handlers) UpdateChatConfig(c *gin.Context) { h.writeChatConfig(c, http.StatusOK) }

// writeChatConfig stores the body as the agent's config. The path agent wins
// over any agent_id in the body.
func (h Handlers) writeChatConfig(c *gin.Context, status int) {
	agentID, ok := h.chatServerAgent(c)
	if !ok {
		return
	}
	var cfg chatclient.AgentConfig
	if !bind(c, &cfg) {
		return
	}
	cfg.AgentID = agentID

	write := h.ChatServer.UpdateConfig
	if status == http.StatusCreated {
		write = h.ChatServer.CreateConfig
	}
	out, err := write(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out)
}

type chatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// StreamChatServerMessage forwards a message and re-streams the reply as
// "token" events followed by one "done" event carrying the full content.
// Errors before the first token are plain JSON responses.
func (h Handlers) StreamChatServerMessage(c *gin.Context) {
	if h.ChatServer == nil {
		notConfigured(c, "chat server")
		return
	}
	if _, _, ok := scope(c); !ok {
		return
	}
	var req chatMessageRequest
	if !bind(c, &req) {
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		sseHeaders(c)
		c.Status(http.StatusOK)
	}

	content, err := h.ChatServer.Stream(c.Request.Context(), req.SessionID, req.Message, func(ev chatclient.Event) {
		switch {
		case ev.Error != "":
			start()
			c.SSEvent("error", gin.H{"error": ev.Error})
		case ev.Content != "":
			start()
			c.SSEvent("token", gin.H{"content": ev.Content})
		default:
			return
		}
		c.Writer.Flush()
	})
	if err != nil {
		if !started {
			respondError(c, err)
			return
		}
		c.SSEvent("error", gin.H{"error": err.Error(), "kind": apperrors.KindOf(err)})
		c.Writer.Flush()
		return
	}
	start()
	c.SSEvent("done", gin.H{"content": content})
	c.Writer.Flush()
}
