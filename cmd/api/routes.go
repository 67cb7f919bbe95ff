package main

import (
	"voice-dashboard/internal/httpapi"
	"voice-dashboard/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/hooks/auth/user-created", h.UserCreated)
	r.POST("/auth/refresh", h.Refresh)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.GET("/me", h.Me)

	org := v1.Group("")
	org.Use(rbac.RequireOrganization())

	read := rbac.RequireAtLeast(rbac.RoleMember)
	write := rbac.RequireAtLeast(rbac.RoleManager)
	admin := rbac.RequireAtLeast(rbac.RoleAdmin)

	// CAMPAIGNS routes
	campaigns := org.Group("/campaigns")
	{
		campaigns.GET("", read, h.ListCampaigns)
		campaigns.POST("", write, h.CreateCampaign)
		campaigns.GET("/:id", read, h.GetCampaign)
		campaigns.PATCH("/:id", write, h.UpdateCampaign)
		campaigns.POST("/:id/status", write, h.SetCampaignStatus)
		campaigns.PUT("/:id/agents", write, h.SetCampaignAgents)
		campaigns.PUT("/:id/primary-agent", write, h.SetCampaignPrimaryAgent)
		campaigns.PUT("/:id/contact-lists", write, h.SetCampaignContactLists)
		campaigns.DELETE("/:id", admin, h.DeleteCampaign)
		campaigns.GET("/:id/stats", read, h.CampaignStats)
	}

	// AGENTS routes
	agents := org.Group("/agents")
	{
		agents.GET("", read, h.ListAgents)
		agents.POST("", write, h.CreateAgent)
		agents.GET("/:id", read, h.GetAgent)
		agents.PATCH("/:id", write, h.UpdateAgent)
		agents.POST("/:id/status", write, h.SetAgentStatus)
		agents.PUT("/:id/voice-config", write, h.UpsertVoiceConfig)
		agents.PUT("/:id/phone-number", write, h.ConnectPhoneNumber)
		agents.DELETE("/:id/phone-number", write, h.DisconnectPhoneNumber)
		agents.POST("/:id/test-call", write, h.TestCall)
		agents.GET("/:id/chat-config", read, h.GetChatConfig)
		agents.POST("/:id/chat-config", write, h.CreateChatConfig)
		agents.PUT("/:id/chat-config", write, h.UpdateChatConfig)
		agents.GET("/:id/chat-server-sessions", read, h.ListChatServerSessions)
	}

	numbers := org.Group("/phone-numbers")
	{
		numbers.GET("", read, h.ListPhoneNumbers)
		numbers.GET("/pool", admin, h.ListPhoneNumberPool)
		numbers.POST("/:id/claim", admin, h.ClaimPhoneNumber)
		numbers.POST("/:id/release", admin, h.ReleasePhoneNumber)
	}

	lists := org.Group("/contact-lists")
	{
		lists.GET("", read, h.ListContactLists)
		lists.POST("", write, h.CreateContactList)
		lists.GET("/:id", read, h.GetContactList)
		lists.DELETE("/:id", write, h.DeleteContactList)
		lists.GET("/:id/members", read, h.ListContacts)
		lists.POST("/:id/members", write, h.AddContact)
		lists.POST("/:id/import", write, h.ImportContacts)
		lists.DELETE("/:id/members/:member_id", write, h.RemoveContact)
	}

	queue := org.Group("/call-queue")
	{
		queue.GET("", read, h.ListQueue)
		queue.POST("", write, h.Enqueue)
		queue.GET("/:id", read, h.GetQueueItem)
		queue.POST("/:id/transition", write, h.TransitionQueueItem)
		queue.POST("/:id/cancel", write, h.CancelQueueItem)
		queue.POST("/:id/retry", write, h.RetryQueueItem)
	}

	// CALLS routes
	calls := org.Group("/calls")
	{
		calls.GET("", read, h.ListCalls)
		calls.GET("/summary", read, h.CallsSummary)
		calls.GET("/export.xlsx", write, h.ExportCalls)
		calls.GET("/:id", read, h.GetCall)
	}

	// CHAT routes
	sessions := org.Group("/chat/sessions")
	{
		sessions.GET("", read, h.ListChatSessions)
		sessions.POST("", write, h.CreateChatSession)
		sessions.GET("/:id", read, h.GetChatSession)
		sessions.POST("/:id/messages", read, h.AppendChatMessage)
		sessions.POST("/:id/handover", read, h.HandoverChatSession)
		sessions.POST("/:id/return", read, h.ReturnChatSessionToAI)
		sessions.POST("/:id/close", read, h.CloseChatSession)
	}
	org.POST("/chat/session", read, h.StartChatServerSession)
	org.POST("/chat/message", read, h.StreamChatServerMessage)
	org.POST("/chat/session/:id/end", read, h.EndChatServerSession)

	org.POST("/webcall/token", read, h.WebcallToken)

	// Streams
	org.GET("/realtime/:table", read, h.StreamChanges)
	org.GET("/live/:entity", read, h.StreamLive)

	org.GET("/notifications", read, h.ListNotifications)
	org.POST("/notifications/:id/read", read, h.MarkNotificationRead)

	org.GET("/activity", admin, h.ListActivity)

	// ADMIN routes
	// Platform administration is super_admin only.
	platform := v1.Group("/admin")
	platform.Use(rbac.RequireAnyRole(rbac.RoleSuperAdmin))
	{
		platform.GET("/organizations", h.ListOrganizations)
		platform.POST("/organizations", h.CreateOrganization)
		platform.GET("/organizations/:id", h.GetOrganization)
		platform.GET("/activity", h.ListActivity)
		platform.POST("/roles", h.AssignRole)
		platform.DELETE("/roles/:id", h.RemoveRole)
	}
}
