package telephony

// VoiceAction is the structured decision a webhook handler renders to
// markup. The call lifecycle controller returns these; it never builds
// markup itself.

type VoiceActionKind string

const (
	// ActionAck is a bare acknowledgment with nothing spoken.
	ActionAck VoiceActionKind = "ack"
	// ActionGatherSpeech speaks Say and listens for the caller's next
	// utterance, posting it to Action.
	ActionGatherSpeech VoiceActionKind = "gather_speech"
	// ActionRecordVoicemail speaks Say, records a message posting to
	// Action, then speaks NoInputSay if nothing was recorded.
	ActionRecordVoicemail VoiceActionKind = "record_voicemail"
	// ActionDial speaks Say then connects the caller to Number.
	ActionDial VoiceActionKind = "dial"
	// ActionDigitMenu speaks Say, gathers one digit posting to Action,
	// and on no input speaks DefaultSay then dials DefaultNumber.
	ActionDigitMenu VoiceActionKind = "digit_menu"
	// ActionHangup speaks Say (if any) then ends the call.
	ActionHangup VoiceActionKind = "hangup"
)

type VoiceAction struct {
	Kind VoiceActionKind

	// Say is spoken before the verb the kind implies.
	Say string

	// Action is the webhook path receiving the result of the verb:
	// a speech gather, a digit gather or a recording.
	Action string

	// MenuPrompt is spoken inside a digit-menu gather.
	MenuPrompt string

	// NoInputSay is spoken when a gather or recording produced nothing.
	NoInputSay string
	// NoInputRedirect, when set, re-enters the given webhook path after
	// NoInputSay instead of letting the call fall through.
	NoInputRedirect string

	// Number is the dial target for ActionDial.
	Number string

	// DefaultSay/DefaultNumber are the digit menu's timeout fallback.
	DefaultSay    string
	DefaultNumber string
}
