package telephony

import (
	"net/http"
	"strings"
)

// Twilio sends voice webhooks as application/x-www-form-urlencoded.
// Each form below captures the subset of fields one event needs.
// Business logic is not made here.

// IncomingCallForm is the initial inbound-call event.
type IncomingCallForm struct {
	CallSID string
	From    string
	To      string
}

// SpeechForm carries a transcribed caller utterance.
type SpeechForm struct {
	CallSID      string
	SpeechResult string
}

// DigitsForm carries a DTMF menu selection. Retry is set when the form
// was posted from a replayed menu (the action path carries retry=1), so
// the caller's second invalid press can stop the loop.
type DigitsForm struct {
	CallSID string
	Digits  string
	Retry   bool
}

// RecordingForm carries a completed voicemail recording reference.
type RecordingForm struct {
	CallSID      string
	RecordingURL string
}

// StatusForm is the call status callback fired as the call progresses
// and ends.
type StatusForm struct {
	CallSID    string
	CallStatus string
	From       string
}

func ParseIncomingCall(r *http.Request) (IncomingCallForm, error) {
	if err := r.ParseForm(); err != nil {
		return IncomingCallForm{}, err
	}
	return IncomingCallForm{
		CallSID: r.PostFormValue("CallSid"),
		From:    normalizePhone(r.PostFormValue("From")),
		To:      normalizePhone(r.PostFormValue("To")),
	}, nil
}

func ParseSpeech(r *http.Request) (SpeechForm, error) {
	if err := r.ParseForm(); err != nil {
		return SpeechForm{}, err
	}
	return SpeechForm{
		CallSID:      r.PostFormValue("CallSid"),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
	}, nil
}

func ParseDigits(r *http.Request) (DigitsForm, error) {
	if err := r.ParseForm(); err != nil {
		return DigitsForm{}, err
	}
	return DigitsForm{
		CallSID: r.PostFormValue("CallSid"),
		Digits:  strings.TrimSpace(r.PostFormValue("Digits")),
		Retry:   r.URL.Query().Get("retry") == "1",
	}, nil
}

func ParseRecording(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	return RecordingForm{
		CallSID:      r.PostFormValue("CallSid"),
		RecordingURL: strings.TrimSpace(r.PostFormValue("RecordingUrl")),
	}, nil
}

func ParseStatus(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	return StatusForm{
		CallSID:    r.PostFormValue("CallSid"),
		CallStatus: r.PostFormValue("CallStatus"),
		From:       normalizePhone(r.PostFormValue("From")),
	}, nil
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}
