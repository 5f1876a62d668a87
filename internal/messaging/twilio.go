package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ValidateTwilioSignature validates that a request came from Twilio
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}

	payload := buildSignaturePayload(webhookURL, r.PostForm)
	expected := computeSignature(payload, authToken)

	return hmac.Equal([]byte(signature), []byte(expected))
}

// buildSignaturePayload creates the payload string for signature verification
func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

// computeSignature computes the HMAC-SHA1 signature
func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VoiceWebhook carries the fields Twilio posts on voice webhooks.
type VoiceWebhook struct {
	CallSID      string
	AccountSID   string
	From         string
	To           string
	CallStatus   string
	Direction    string
	SpeechResult string
	Confidence   float64
	CallDuration *int
}

// ParseVoiceWebhook parses an incoming Twilio voice webhook request.
func ParseVoiceWebhook(r *http.Request) (*VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: parse form: %w", err)
	}

	w := &VoiceWebhook{
		CallSID:      r.FormValue("CallSid"),
		AccountSID:   r.FormValue("AccountSid"),
		From:         r.FormValue("From"),
		To:           r.FormValue("To"),
		CallStatus:   r.FormValue("CallStatus"),
		Direction:    r.FormValue("Direction"),
		SpeechResult: r.FormValue("SpeechResult"),
	}
	if raw := r.FormValue("Confidence"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			w.Confidence = v
		}
	}
	if raw := r.FormValue("CallDuration"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			w.CallDuration = &v
		}
	}
	if w.CallSID == "" {
		return nil, fmt.Errorf("messaging: webhook missing CallSid")
	}
	return w, nil
}
