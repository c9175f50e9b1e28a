// Package httpapi serves the dashboard REST API.
// Keep these thin: parse/validate input, call internal services, return JSON.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/auth"
	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
	"github.com/gpresearch2025/ai-voice-agent/internal/config"
	"github.com/gpresearch2025/ai-voice-agent/internal/conversation"
	"github.com/gpresearch2025/ai-voice-agent/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 200

// Handlers groups HTTP handlers for dependency injection.
type Handlers struct {
	Auth    *auth.Manager
	Store   calls.Store
	Convs   *conversation.Manager
	Runtime *config.Runtime

	// ModelConfigured reports whether a model API key was supplied; the
	// health endpoint surfaces it so a misconfigured deployment is visible
	// before the first call comes in.
	ModelConfigured bool
}

// --- Auth ---

type loginRequest struct {
	Secret string `json:"secret"`
}

// Login exchanges the dashboard secret for a bearer token.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tok, expires, err := h.Auth.Exchange(time.Now(), req.Secret)
	if err != nil {
		if errors.Is(err, auth.ErrBadSecret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "expires_at": expires.UTC()})
}

// --- Health ---

func (h Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":           "ok",
		"model_configured": h.ModelConfigured,
		"active_calls":     len(h.Convs.ActiveCallSIDs()),
	}
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		body["status"] = "degraded"
		body["error"] = "database unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// --- Calls ---

// ListCalls returns a page of call records, newest first.
// Query params: status, search, limit, offset.
func (h Handlers) ListCalls(c *gin.Context) {
	f := calls.ListFilter{
		Status: calls.CallStatus(c.Query("status")),
		Search: c.Query("search"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if f.Status != "" && !validStatusFilter(f.Status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, err := h.Store.List(c.Request.Context(), f)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	total, err := h.Store.Count(c.Request.Context(), f)
	if err != nil {
		logger.FromGin(c).Error("count calls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": items, "total": total, "limit": f.Limit, "offset": f.Offset})
}

// GetCall returns one durable record. For a still-active call the live
// in-memory transcript is merged in so the dashboard can watch it grow.
func (h Handlers) GetCall(c *gin.Context) {
	callSID := c.Param("call_sid")
	rec, err := h.Store.Get(c.Request.Context(), callSID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		logger.FromGin(c).Error("get call failed", "call_sid", callSID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	if rec.Status == calls.CallStatusActive {
		if live := h.Convs.History(callSID); len(live) > 0 {
			rec.Transcript = live
		}
	}
	c.JSON(http.StatusOK, rec)
}

// ActiveCalls lists calls currently holding an in-memory conversation.
func (h Handlers) ActiveCalls(c *gin.Context) {
	sids := h.Convs.ActiveCallSIDs()
	out := make([]gin.H, 0, len(sids))
	for _, sid := range sids {
		entry := gin.H{"call_sid": sid, "turns": len(h.Convs.History(sid))}
		if rec, err := h.Store.Get(c.Request.Context(), sid); err == nil {
			entry["from_number"] = rec.From
			entry["started_at"] = rec.StartedAt
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"active_calls": out, "count": len(out)})
}

// --- Stats ---

func (h Handlers) Stats(c *gin.Context) {
	st, err := h.Store.StatsSummary(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("stats failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// --- Config ---

type voiceSettingsResponse struct {
	HoursStart    string `json:"hours_start"`
	HoursEnd      string `json:"hours_end"`
	Timezone      string `json:"timezone"`
	SalesNumber   string `json:"sales_number"`
	SupportNumber string `json:"support_number"`
}

func voiceResponse(s config.VoiceSettings) voiceSettingsResponse {
	return voiceSettingsResponse{
		HoursStart:    s.Window.Start.String(),
		HoursEnd:      s.Window.End.String(),
		Timezone:      s.Window.TZName,
		SalesNumber:   s.SalesNumber,
		SupportNumber: s.SupportNumber,
	}
}

func (h Handlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, voiceResponse(h.Runtime.Voice()))
}

type updateConfigRequest struct {
	HoursStart    *string `json:"hours_start"`
	HoursEnd      *string `json:"hours_end"`
	Timezone      *string `json:"timezone"`
	SalesNumber   *string `json:"sales_number"`
	SupportNumber *string `json:"support_number"`
}

// UpdateConfig applies a partial settings update; omitted fields keep
// their current value. Validation failure leaves settings untouched.
func (h Handlers) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	next, err := h.Runtime.UpdateVoice(config.VoiceUpdate{
		HoursStart:    req.HoursStart,
		HoursEnd:      req.HoursEnd,
		Timezone:      req.Timezone,
		SalesNumber:   req.SalesNumber,
		SupportNumber: req.SupportNumber,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.FromGin(c).Info("voice settings updated",
		"hours_start", next.Window.Start.String(),
		"hours_end", next.Window.End.String(),
		"timezone", next.Window.TZName)
	c.JSON(http.StatusOK, voiceResponse(next))
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func validStatusFilter(s calls.CallStatus) bool {
	switch s {
	case calls.CallStatusActive, calls.CallStatusCompleted, calls.CallStatusVoicemail, calls.CallStatusTransferred:
		return true
	default:
		return false
	}
}
