package messaging

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testAuthToken = "secret-token"

func TestValidateTwilioSignature(t *testing.T) {
	webhookURL := "https://clinic.example.com/webhooks/twilio/voice"
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+2348012345678")

	payload := buildSignaturePayload(webhookURL, form)
	signature := computeSignature(payload, testAuthToken)

	r := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", signature)

	if !ValidateTwilioSignature(r, testAuthToken, webhookURL) {
		t.Fatal("valid signature rejected")
	}
}

func TestValidateTwilioSignature_WrongToken(t *testing.T) {
	webhookURL := "https://clinic.example.com/webhooks/twilio/voice"
	form := url.Values{}
	form.Set("CallSid", "CA123")

	signature := computeSignature(buildSignaturePayload(webhookURL, form), "other-token")

	r := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", signature)

	if ValidateTwilioSignature(r, testAuthToken, webhookURL) {
		t.Fatal("signature from wrong token accepted")
	}
}

func TestValidateTwilioSignature_MissingHeader(t *testing.T) {
	r := httptest.NewRequest("POST", "https://clinic.example.com/webhooks/twilio/voice", nil)
	if ValidateTwilioSignature(r, testAuthToken, "https://clinic.example.com/webhooks/twilio/voice") {
		t.Fatal("unsigned request accepted")
	}
}

func TestParseVoiceWebhook(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA999")
	form.Set("From", "+2348012345678")
	form.Set("To", "+2341234567890")
	form.Set("CallStatus", "in-progress")
	form.Set("SpeechResult", "I need a cleaning")
	form.Set("Confidence", "0.91")
	form.Set("CallDuration", "42")

	r := httptest.NewRequest("POST", "/webhooks/twilio/process", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w, err := ParseVoiceWebhook(r)
	if err != nil {
		t.Fatalf("ParseVoiceWebhook returned error: %v", err)
	}
	if w.CallSID != "CA999" || w.SpeechResult != "I need a cleaning" {
		t.Fatalf("unexpected webhook: %+v", w)
	}
	if w.Confidence != 0.91 {
		t.Fatalf("confidence not parsed: %v", w.Confidence)
	}
	if w.CallDuration == nil || *w.CallDuration != 42 {
		t.Fatalf("duration not parsed: %v", w.CallDuration)
	}
}

func TestParseVoiceWebhook_MissingCallSid(t *testing.T) {
	r := httptest.NewRequest("POST", "/webhooks/twilio/process", strings.NewReader("From=%2B234"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if _, err := ParseVoiceWebhook(r); err == nil {
		t.Fatal("expected error for missing CallSid")
	}
}
