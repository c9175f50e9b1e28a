package voice

import (
	"log/slog"
	"net/http"

	"github.com/gpresearch2025/ai-voice-agent/internal/telephony"
	"github.com/gpresearch2025/ai-voice-agent/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler converts provider webhooks to controller calls and
// writes TwiML. No business logic here.
//
// Every branch, including failures, answers with valid markup: a broken
// HTTP response would leave a live phone call in silence.

type WebhookHandler struct {
	Controller *Controller
	// Guard is optional; nil disables the per-origin call cap.
	Guard *CallGuard
}

// failureTwiML is the last-resort response when rendering or handling
// fails entirely.
const failureTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Say voice="Polly.Joanna">We are experiencing technical difficulties. Please try your call again in a few minutes. Goodbye.</Say>
  <Hangup/>
</Response>`

const linesBusySay = "I'm sorry, all of our lines are busy at the moment. " +
	"Please try your call again in a few minutes. Goodbye."

func (h WebhookHandler) Incoming(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := telephony.ParseIncomingCall(c.Request)
	if err != nil {
		log.Warn("incoming webhook parse failed", "err", err)
		renderFailure(c)
		return
	}
	log.Info("incoming call", "call_sid", form.CallSID, "from", form.From)

	if !h.Guard.Acquire(c.Request.Context(), form.From, form.CallSID) {
		log.Info("origin over concurrent call cap", "from", form.From)
		renderAction(c, telephony.VoiceAction{Kind: telephony.ActionHangup, Say: linesBusySay})
		return
	}

	act, err := h.Controller.IncomingCall(c.Request.Context(), form.CallSID, form.From, form.To)
	if err != nil {
		log.Error("incoming call failed", "call_sid", form.CallSID, "err", err)
		renderFailure(c)
		return
	}
	renderAction(c, act)
}

func (h WebhookHandler) Respond(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := telephony.ParseSpeech(c.Request)
	if err != nil {
		log.Warn("speech webhook parse failed", "err", err)
		renderFailure(c)
		return
	}
	log.Info("caller speech", "call_sid", form.CallSID, "speech", form.SpeechResult)

	act, err := h.Controller.SpeechResult(c.Request.Context(), form.CallSID, form.SpeechResult)
	if err != nil {
		log.Error("speech step failed", "call_sid", form.CallSID, "err", err)
		renderFailure(c)
		return
	}
	renderAction(c, act)
}

func (h WebhookHandler) Transfer(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := telephony.ParseDigits(c.Request)
	if err != nil {
		log.Warn("digits webhook parse failed", "err", err)
		renderFailure(c)
		return
	}
	log.Info("transfer digit", "call_sid", form.CallSID, "digits", form.Digits)

	act, err := h.Controller.DigitPress(c.Request.Context(), form.CallSID, form.Digits, form.Retry)
	if err != nil {
		log.Error("transfer step failed", "call_sid", form.CallSID, "err", err)
		renderFailure(c)
		return
	}
	renderAction(c, act)
}

func (h WebhookHandler) Voicemail(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := telephony.ParseRecording(c.Request)
	if err != nil {
		log.Warn("recording webhook parse failed", "err", err)
		renderFailure(c)
		return
	}
	log.Info("voicemail received", "call_sid", form.CallSID, "url", form.RecordingURL)

	act, err := h.Controller.VoicemailRecorded(c.Request.Context(), form.CallSID, form.RecordingURL)
	if err != nil {
		log.Error("voicemail step failed", "call_sid", form.CallSID, "err", err)
		renderFailure(c)
		return
	}
	renderAction(c, act)
}

// Status always acknowledges: the call is over, there is nobody left to
// apologize to, and the provider only needs a 200.
func (h WebhookHandler) Status(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := telephony.ParseStatus(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		renderAction(c, telephony.VoiceAction{Kind: telephony.ActionAck})
		return
	}
	log.Info("call status update", "call_sid", form.CallSID, "status", form.CallStatus)

	act, err := h.Controller.StatusChange(c.Request.Context(), form.CallSID, form.CallStatus)
	if err != nil {
		log.Error("status finalize failed", "call_sid", form.CallSID, "err", err)
	}
	if terminalProviderStatuses[form.CallStatus] {
		h.Guard.Release(c.Request.Context(), form.From, form.CallSID)
	}
	renderAction(c, act)
}

func renderAction(c *gin.Context, a telephony.VoiceAction) {
	twiml, err := telephony.RenderVoice(a)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		renderFailure(c)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

func renderFailure(c *gin.Context) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusInternalServerError, failureTwiML)
}

// RecoveryTwiML replaces gin's default recovery on the voice group: a
// panicking handler still answers the caller with spoken markup.
func RecoveryTwiML(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("voice handler panic", "path", c.Request.URL.Path, "panic", r)
				c.Abort()
				renderFailure(c)
			}
		}()
		c.Next()
	}
}
