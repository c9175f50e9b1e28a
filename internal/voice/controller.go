// Package voice drives the call lifecycle: each webhook event is mapped
// onto the in-memory conversation, possibly through the model gateway and
// classifier, and produces a structured action for the transport layer
// plus durable call-store mutations.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/agent"
	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
	"github.com/gpresearch2025/ai-voice-agent/internal/config"
	"github.com/gpresearch2025/ai-voice-agent/internal/conversation"
	"github.com/gpresearch2025/ai-voice-agent/internal/telephony"
)

// Webhook paths the rendered markup points back at.
const (
	PathIncoming  = "/voice/incoming"
	PathRespond   = "/voice/respond"
	PathTransfer  = "/voice/transfer"
	PathVoicemail = "/voice/voicemail"
	PathStatus    = "/voice/status"
)

// Spoken strings. Wording is stable: these are asserted verbatim in
// output-compatibility tests.
const (
	Greeting = "Hello! Thank you for calling. How can I help you today?"

	noSpeechPrompt      = "I didn't catch that. Let me try again."
	goodbyeAfterSilence = "It seems like you may have stepped away. Thank you for calling. Goodbye!"
	noRecordingGoodbye  = "We did not receive a recording. Goodbye."
	voicemailThanks     = "Thank you for your message. We'll get back to you as soon as possible. Goodbye!"

	menuPrompt        = "Press 1 for our sales team. Press 2 for our support team."
	invalidMenuPrompt = "Sorry, that wasn't a valid option. " + menuPrompt

	noTransferNumberApology = "I'm sorry, we don't have a transfer number configured at the moment. " +
		"Please try calling back later. Goodbye."
)

// terminalProviderStatuses are the provider callback values that end a
// call.
var terminalProviderStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"no-answer": true,
	"failed":    true,
	"canceled":  true,
}

// Responder is the model gateway surface the controller needs.
// It never fails; degraded replies are ordinary values.
type Responder interface {
	Respond(ctx context.Context, history []agent.Message) string
}

// Controller is the call lifecycle state machine. Stateless per request:
// all call state lives in the conversation manager and the durable store.
type Controller struct {
	store   calls.Store
	convs   *conversation.Manager
	gateway Responder
	runtime *config.Runtime
	log     *slog.Logger

	now func() time.Time
}

func NewController(store calls.Store, convs *conversation.Manager, gateway Responder, runtime *config.Runtime, log *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		convs:   convs,
		gateway: gateway,
		runtime: runtime,
		log:     log,
		now:     time.Now,
	}
}

// IncomingCall handles the initial inbound event: records the call as
// active, then either enters the speech loop or, after hours, asks for a
// voicemail. The conversation entry is created only on the speech-loop
// path; the voicemail path never touches in-memory state.
func (c *Controller) IncomingCall(ctx context.Context, callSID, from, to string) (telephony.VoiceAction, error) {
	now := c.now().UTC()
	err := c.store.CreateOrReplace(ctx, calls.Call{
		CallSID:   callSID,
		From:      from,
		To:        to,
		Status:    calls.CallStatusActive,
		StartedAt: now,
	})
	if err != nil {
		return telephony.VoiceAction{}, fmt.Errorf("voice: record incoming call: %w", err)
	}

	settings := c.runtime.Voice()
	if !settings.Window.OpenAt(now) {
		c.log.Info("after-hours call", "call_sid", callSID, "from", from)
		return telephony.VoiceAction{
			Kind:       telephony.ActionRecordVoicemail,
			Say:        settings.Window.ClosedMessage(),
			Action:     PathVoicemail,
			NoInputSay: noRecordingGoodbye,
		}, nil
	}

	c.convs.StartCall(callSID)
	c.convs.AddTurn(callSID, calls.RoleAssistant, Greeting)
	return telephony.VoiceAction{
		Kind:            telephony.ActionGatherSpeech,
		Say:             Greeting,
		Action:          PathRespond,
		NoInputSay:      noSpeechPrompt,
		NoInputRedirect: PathIncoming,
	}, nil
}

// SpeechResult is one speech-loop step: append the caller turn, ask the
// model, classify the reply. A department classification finalizes the
// call as transferred and hands off to the transfer flow; otherwise the
// loop continues and nothing is persisted yet.
func (c *Controller) SpeechResult(ctx context.Context, callSID, speech string) (telephony.VoiceAction, error) {
	c.convs.AddTurn(callSID, calls.RoleCaller, speech)

	reply := c.gateway.Respond(ctx, c.convs.ModelMessages(callSID))

	dept := agent.Classify(reply)
	if dept == agent.DepartmentNone {
		c.convs.AddTurn(callSID, calls.RoleAssistant, reply)
		return telephony.VoiceAction{
			Kind:       telephony.ActionGatherSpeech,
			Say:        reply,
			Action:     PathRespond,
			NoInputSay: goodbyeAfterSilence,
		}, nil
	}

	transition := agent.StripMarker(reply)
	c.convs.AddTurn(callSID, calls.RoleAssistant, transition)

	// Drain before marking the record: only one finalizer ever sees the
	// transcript, even racing the provider's status callback.
	transcript := c.convs.EndCall(callSID)
	if err := c.store.UpdateTranscript(ctx, callSID, transcript); err != nil {
		return telephony.VoiceAction{}, fmt.Errorf("voice: persist transcript: %w", err)
	}
	now := c.now().UTC()
	if err := c.store.UpdateStatus(ctx, callSID, calls.CallStatusTransferred, &now); err != nil {
		return telephony.VoiceAction{}, fmt.Errorf("voice: mark transferred: %w", err)
	}

	c.log.Info("transfer detected", "call_sid", callSID, "department", string(dept))
	return c.transferAction(dept, transition), nil
}

// transferAction picks the transfer flow for the configured department
// numbers: both configured presents a digit menu defaulting to the
// detected department, one connects directly, none apologizes and ends
// the call.
func (c *Controller) transferAction(dept agent.Department, transition string) telephony.VoiceAction {
	s := c.runtime.Voice()
	switch {
	case s.SalesNumber != "" && s.SupportNumber != "":
		defaultDept, defaultNumber := "sales", s.SalesNumber
		if dept == agent.DepartmentSupport {
			defaultDept, defaultNumber = "support", s.SupportNumber
		}
		return telephony.VoiceAction{
			Kind:          telephony.ActionDigitMenu,
			Say:           transition,
			Action:        PathTransfer,
			MenuPrompt:    menuPrompt,
			DefaultSay:    fmt.Sprintf("No selection received. Connecting you to our %s team.", defaultDept),
			DefaultNumber: defaultNumber,
		}
	case s.SalesNumber != "":
		return telephony.VoiceAction{Kind: telephony.ActionDial, Say: transition, Number: s.SalesNumber}
	case s.SupportNumber != "":
		return telephony.VoiceAction{Kind: telephony.ActionDial, Say: transition, Number: s.SupportNumber}
	default:
		return telephony.VoiceAction{
			Kind: telephony.ActionHangup,
			Say:  strings.TrimSpace(transition + " " + noTransferNumberApology),
		}
	}
}

// DigitPress resolves the transfer menu: 1 is sales, 2 is support. An
// invalid digit replays the menu once, with the replay's action path
// flagged as a retry; a second invalid press, or a timeout on either
// round, defaults to sales. The menu can never loop more than twice.
func (c *Controller) DigitPress(ctx context.Context, callSID, digits string, secondTry bool) (telephony.VoiceAction, error) {
	s := c.runtime.Voice()

	switch {
	case digits == "1" && s.SalesNumber != "":
		if err := c.store.UpdateTransferredTo(ctx, callSID, string(agent.DepartmentSales)); err != nil {
			return telephony.VoiceAction{}, fmt.Errorf("voice: record transfer target: %w", err)
		}
		return telephony.VoiceAction{
			Kind:   telephony.ActionDial,
			Say:    "Connecting you to our sales team now.",
			Number: s.SalesNumber,
		}, nil

	case digits == "2" && s.SupportNumber != "":
		if err := c.store.UpdateTransferredTo(ctx, callSID, string(agent.DepartmentSupport)); err != nil {
			return telephony.VoiceAction{}, fmt.Errorf("voice: record transfer target: %w", err)
		}
		return telephony.VoiceAction{
			Kind:   telephony.ActionDial,
			Say:    "Connecting you to our support team now.",
			Number: s.SupportNumber,
		}, nil
	}

	c.log.Info("invalid transfer digit", "call_sid", callSID, "digits", digits, "retry", secondTry)
	if s.SalesNumber == "" {
		// Settings changed mid-call and the default target is gone.
		if s.SupportNumber != "" {
			return telephony.VoiceAction{
				Kind:   telephony.ActionDial,
				Say:    "Connecting you to our support team now.",
				Number: s.SupportNumber,
			}, nil
		}
		return telephony.VoiceAction{Kind: telephony.ActionHangup, Say: noTransferNumberApology}, nil
	}

	if secondTry {
		if err := c.store.UpdateTransferredTo(ctx, callSID, string(agent.DepartmentSales)); err != nil {
			return telephony.VoiceAction{}, fmt.Errorf("voice: record transfer target: %w", err)
		}
		return telephony.VoiceAction{
			Kind:   telephony.ActionDial,
			Say:    "Connecting you to our sales team now.",
			Number: s.SalesNumber,
		}, nil
	}
	return telephony.VoiceAction{
		Kind:          telephony.ActionDigitMenu,
		Action:        PathTransfer + "?retry=1",
		MenuPrompt:    invalidMenuPrompt,
		DefaultSay:    "No selection received. Connecting you to our sales team.",
		DefaultNumber: s.SalesNumber,
	}, nil
}

// VoicemailRecorded stores the recording reference and finalizes the call
// with the voicemail terminal status. The in-memory store is untouched:
// no speech loop ran on this path.
func (c *Controller) VoicemailRecorded(ctx context.Context, callSID, recordingURL string) (telephony.VoiceAction, error) {
	if err := c.store.UpdateVoicemailURL(ctx, callSID, recordingURL); err != nil {
		return telephony.VoiceAction{}, fmt.Errorf("voice: store voicemail url: %w", err)
	}
	now := c.now().UTC()
	if err := c.store.UpdateStatus(ctx, callSID, calls.CallStatusVoicemail, &now); err != nil {
		return telephony.VoiceAction{}, fmt.Errorf("voice: mark voicemail: %w", err)
	}
	return telephony.VoiceAction{Kind: telephony.ActionHangup, Say: voicemailThanks}, nil
}

// StatusChange handles the provider's status callback. On a terminal
// status the conversation is drained first, then any remaining transcript
// persisted, then the record completed. Draining before the status check
// keeps finalization safe when this races a transfer: the store's
// conditional update never downgrades a transferred or voicemail record,
// and the drain delivers the transcript to exactly one finalizer.
func (c *Controller) StatusChange(ctx context.Context, callSID, providerStatus string) (telephony.VoiceAction, error) {
	ack := telephony.VoiceAction{Kind: telephony.ActionAck}
	if !terminalProviderStatuses[providerStatus] {
		return ack, nil
	}

	transcript := c.convs.EndCall(callSID)
	if len(transcript) > 0 {
		if err := c.store.UpdateTranscript(ctx, callSID, transcript); err != nil {
			return ack, fmt.Errorf("voice: persist final transcript: %w", err)
		}
	}
	now := c.now().UTC()
	if err := c.store.UpdateStatus(ctx, callSID, calls.CallStatusCompleted, &now); err != nil {
		return ack, fmt.Errorf("voice: finalize call: %w", err)
	}
	return ack, nil
}
