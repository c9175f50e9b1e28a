package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only the verbs the call flow needs are modeled.

const sayVoice = "Polly.Joanna"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	NumDigits     int      `xml:"numDigits,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	Say           *twimlSay
}

type twimlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	MaxLength int      `xml:"maxLength,attr"`
	PlayBeep  bool     `xml:"playBeep,attr"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func say(text string) twimlSay {
	return twimlSay{Voice: sayVoice, Text: text}
}

// RenderVoice maps a VoiceAction to TwiML.
func RenderVoice(a VoiceAction) (string, error) {
	var r twimlResponse

	switch a.Kind {
	case ActionAck:
		// bare <Response/>

	case ActionGatherSpeech:
		if a.Action == "" {
			return "", errors.New("telephony: gather requires an action path")
		}
		g := twimlGather{
			Input:         "speech",
			Action:        a.Action,
			Method:        "POST",
			SpeechTimeout: "auto",
			Language:      "en-US",
		}
		if a.Say != "" {
			s := say(a.Say)
			g.Say = &s
		}
		r.Verbs = append(r.Verbs, g)
		if a.NoInputSay != "" {
			r.Verbs = append(r.Verbs, say(a.NoInputSay))
		}
		if a.NoInputRedirect != "" {
			r.Verbs = append(r.Verbs, twimlRedirect{Method: "POST", URL: a.NoInputRedirect})
		}

	case ActionRecordVoicemail:
		if a.Action == "" {
			return "", errors.New("telephony: record requires an action path")
		}
		if a.Say != "" {
			r.Verbs = append(r.Verbs, say(a.Say))
		}
		r.Verbs = append(r.Verbs, twimlRecord{
			Action:    a.Action,
			Method:    "POST",
			MaxLength: 120,
			PlayBeep:  true,
		})
		if a.NoInputSay != "" {
			r.Verbs = append(r.Verbs, say(a.NoInputSay))
		}

	case ActionDial:
		if a.Number == "" {
			return "", errors.New("telephony: dial requires a number")
		}
		if a.Say != "" {
			r.Verbs = append(r.Verbs, say(a.Say))
		}
		r.Verbs = append(r.Verbs, twimlDial{Number: a.Number})

	case ActionDigitMenu:
		if a.Action == "" {
			return "", errors.New("telephony: digit menu requires an action path")
		}
		if a.DefaultNumber == "" {
			return "", errors.New("telephony: digit menu requires a default number")
		}
		if a.Say != "" {
			r.Verbs = append(r.Verbs, say(a.Say))
		}
		prompt := say(a.MenuPrompt)
		r.Verbs = append(r.Verbs, twimlGather{
			NumDigits: 1,
			Action:    a.Action,
			Method:    "POST",
			Timeout:   5,
			Say:       &prompt,
		})
		if a.DefaultSay != "" {
			r.Verbs = append(r.Verbs, say(a.DefaultSay))
		}
		r.Verbs = append(r.Verbs, twimlDial{Number: a.DefaultNumber})

	case ActionHangup:
		if a.Say != "" {
			r.Verbs = append(r.Verbs, say(a.Say))
		}
		r.Verbs = append(r.Verbs, twimlHangup{})

	default:
		return "", fmt.Errorf("telephony: unknown voice action %q", a.Kind)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
