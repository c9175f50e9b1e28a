package main

import (
	"log/slog"

	"github.com/gpresearch2025/ai-voice-agent/internal/httpapi"
	"github.com/gpresearch2025/ai-voice-agent/internal/voice"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	webhooks voice.WebhookHandler
	api      httpapi.Handlers
	authMW   gin.HandlerFunc
	log      *slog.Logger
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// Provider webhooks (public). A panic inside a voice handler must
	// still answer the caller with spoken markup, so the group carries
	// its own recovery.
	//
	// NOTE: These endpoints should be protected by Twilio signature
	// validation in production.
	v := r.Group("/voice", voice.RecoveryTwiML(d.log))
	{
		v.POST("/incoming", d.webhooks.Incoming)
		v.POST("/respond", d.webhooks.Respond)
		v.POST("/transfer", d.webhooks.Transfer)
		v.POST("/voicemail", d.webhooks.Voicemail)
		v.POST("/status", d.webhooks.Status)
	}

	// Dashboard API. Login and health are the only open endpoints.
	r.POST("/api/login", d.api.Login)
	r.GET("/api/health", d.api.Health)

	api := r.Group("/api", d.authMW)
	{
		api.GET("/calls", d.api.ListCalls)
		api.GET("/calls/active", d.api.ActiveCalls)
		api.GET("/calls/:call_sid", d.api.GetCall)
		api.GET("/stats", d.api.Stats)
		api.GET("/config", d.api.GetConfig)
		api.PUT("/config", d.api.UpdateConfig)
	}
}
