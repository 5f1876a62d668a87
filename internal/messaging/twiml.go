package messaging

import (
	"encoding/xml"
)

// Voice settings shared by every spoken segment.
const (
	twimlVoice    = "Polly.Joanna"
	twimlLanguage = "en-US"
)

const (
	greetingText = "Hello and welcome to Smile Dental Clinic! My name is Sarah. Please, what is your name and how may I help you today?"
	farewellText = "Thank you so much for calling Smile Dental Clinic. We look forward to seeing you! Take care and have a lovely day!"
	silenceText  = "I'm sorry, I didn't hear anything. Are you still there?"
	errorText    = "I'm sorry, we're having technical difficulties. Please call back later."
)

type twimlSay struct {
	Voice    string `xml:"voice,attr"`
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

type twimlGather struct {
	Input         string    `xml:"input,attr"`
	Action        string    `xml:"action,attr"`
	Method        string    `xml:"method,attr"`
	SpeechTimeout string    `xml:"speechTimeout,attr"`
	SpeechModel   string    `xml:"speechModel,attr"`
	Enhanced      string    `xml:"enhanced,attr"`
	Language      string    `xml:"language,attr"`
	Say           *twimlSay `xml:"Say,omitempty"`
}

type twimlHangup struct{}

// twimlResponse marshals to a Twilio <Response> document. Field order
// matters: the encoder emits children in declaration order.
type twimlResponse struct {
	XMLName  xml.Name     `xml:"Response"`
	Gather   *twimlGather `xml:"Gather,omitempty"`
	Say      []twimlSay   `xml:"Say,omitempty"`
	Redirect string       `xml:"Redirect,omitempty"`
	Hangup   *twimlHangup `xml:"Hangup,omitempty"`
}

func say(text string) twimlSay {
	return twimlSay{Voice: twimlVoice, Language: twimlLanguage, Text: text}
}

func gatherSpeech(processURL, speechTimeout, text string) *twimlGather {
	s := say(text)
	return &twimlGather{
		Input:         "speech",
		Action:        processURL,
		Method:        "POST",
		SpeechTimeout: speechTimeout,
		SpeechModel:   "phone_call",
		Enhanced:      "true",
		Language:      twimlLanguage,
		Say:           &s,
	}
}

func renderTwiML(resp twimlResponse) string {
	out, err := xml.Marshal(resp)
	if err != nil {
		// Only reachable if the structs above are broken.
		return xml.Header + "<Response/>"
	}
	return xml.Header + string(out)
}

// TwiMLBuilder renders voice documents pointing back at this deployment.
type TwiMLBuilder struct {
	processURL string
	voiceURL   string
}

// NewTwiMLBuilder wires the builder to the public base URL Twilio calls.
func NewTwiMLBuilder(baseURL string) *TwiMLBuilder {
	return &TwiMLBuilder{
		processURL: baseURL + "/webhooks/twilio/process",
		voiceURL:   baseURL + "/webhooks/twilio/voice",
	}
}

// Greeting welcomes an inbound caller and gathers their first utterance.
// A short speech timeout keeps the turn-taking snappy on a phone line.
func (b *TwiMLBuilder) Greeting() string {
	return renderTwiML(twimlResponse{
		Gather:   gatherSpeech(b.processURL, "1", greetingText),
		Redirect: b.voiceURL,
	})
}

// Response speaks the agent's reply. When the call is wrapping up it adds
// the farewell and hangs up; otherwise it gathers the next utterance and
// re-prompts on silence.
func (b *TwiMLBuilder) Response(text string, endCall bool) string {
	if endCall {
		return renderTwiML(twimlResponse{
			Say:    []twimlSay{say(text), say(farewellText)},
			Hangup: &twimlHangup{},
		})
	}
	return renderTwiML(twimlResponse{
		Gather:   gatherSpeech(b.processURL, "1", text),
		Say:      []twimlSay{say(silenceText)},
		Redirect: b.voiceURL,
	})
}

// Outbound opens an agent-initiated call with a custom message and gathers
// the callee's reply.
func (b *TwiMLBuilder) Outbound(message string) string {
	return renderTwiML(twimlResponse{
		Gather: gatherSpeech(b.processURL, "auto", message),
	})
}

// Error apologizes and ends the call. Used when the webhook itself cannot
// be processed; the caller must never hear raw silence.
func (b *TwiMLBuilder) Error() string {
	return renderTwiML(twimlResponse{
		Say:    []twimlSay{say(errorText)},
		Hangup: &twimlHangup{},
	})
}
