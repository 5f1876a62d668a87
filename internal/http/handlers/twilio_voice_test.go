package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/internal/conversation"
)

// stubEngine records turns and plays back a scripted result.
type stubEngine struct {
	result     conversation.TurnResult
	lastTurn   conversation.TurnRequest
	transcript string
	ended      []string
}

func (s *stubEngine) ProcessTurn(ctx context.Context, req conversation.TurnRequest) conversation.TurnResult {
	s.lastTurn = req
	return s.result
}

func (s *stubEngine) Transcript(callID string) string { return s.transcript }

func (s *stubEngine) EndSession(callID string) { s.ended = append(s.ended, callID) }

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleVoice_GreetsAndOpensCallLog(t *testing.T) {
	engine := &stubEngine{}
	store := calls.NewInMemoryStore()
	h := NewTwilioVoiceHandler(engine, store, "", "https://clinic.example.com", nil, nil)

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("From", "+2348012345678")

	rec := postForm(t, h.HandleVoice, "/webhooks/twilio/voice", form)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "welcome to Smile Dental Clinic")
	assert.Contains(t, rec.Body.String(), "<Gather")

	logs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "CA1", logs[0].CallSID)
	assert.Equal(t, calls.DirectionInbound, logs[0].Direction)
}

func TestHandleVoice_Unparseable(t *testing.T) {
	h := NewTwilioVoiceHandler(&stubEngine{}, calls.NewInMemoryStore(), "", "https://clinic.example.com", nil, nil)

	// No CallSid: still answer with spoken TwiML, never an error page.
	rec := postForm(t, h.HandleVoice, "/webhooks/twilio/voice", url.Values{})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "technical difficulties")
	assert.Contains(t, rec.Body.String(), "<Hangup")
}

func TestHandleProcess_RunsTurn(t *testing.T) {
	engine := &stubEngine{result: conversation.TurnResult{Reply: "We have 9am open, does that work?"}}
	h := NewTwilioVoiceHandler(engine, calls.NewInMemoryStore(), "", "https://clinic.example.com", nil, nil)

	form := url.Values{}
	form.Set("CallSid", "CA2")
	form.Set("From", "+2348012345678")
	form.Set("SpeechResult", "what times are open monday")
	form.Set("Confidence", "0.87")

	rec := postForm(t, h.HandleProcess, "/webhooks/twilio/process", form)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We have 9am open, does that work?")
	assert.Contains(t, rec.Body.String(), "<Gather")
	assert.NotContains(t, rec.Body.String(), "<Hangup")

	assert.Equal(t, "CA2", engine.lastTurn.CallID)
	assert.Equal(t, "+2348012345678", engine.lastTurn.CallerPhone)
	assert.Equal(t, "what times are open monday", engine.lastTurn.Utterance)
	assert.InDelta(t, 0.87, engine.lastTurn.Confidence, 0.001)
}

func TestHandleProcess_EndCall(t *testing.T) {
	engine := &stubEngine{result: conversation.TurnResult{Reply: "You're booked!", EndCall: true}}
	h := NewTwilioVoiceHandler(engine, calls.NewInMemoryStore(), "", "https://clinic.example.com", nil, nil)

	form := url.Values{}
	form.Set("CallSid", "CA3")
	form.Set("SpeechResult", "no thanks, goodbye")

	rec := postForm(t, h.HandleProcess, "/webhooks/twilio/process", form)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "have a lovely day")
	assert.Contains(t, rec.Body.String(), "<Hangup")
}

func TestHandleStatus_LifecycleUpdates(t *testing.T) {
	engine := &stubEngine{transcript: "Caller: hi\n\nSarah: Hello!"}
	store := calls.NewInMemoryStore()
	h := NewTwilioVoiceHandler(engine, store, "", "https://clinic.example.com", nil, nil)

	start := url.Values{}
	start.Set("CallSid", "CA4")
	start.Set("From", "+2348012345678")
	start.Set("CallStatus", calls.StatusRinging)
	start.Set("Direction", "inbound")

	rec := postForm(t, h.HandleStatus, "/webhooks/twilio/status", start)
	require.Equal(t, http.StatusOK, rec.Code)

	finish := url.Values{}
	finish.Set("CallSid", "CA4")
	finish.Set("CallStatus", calls.StatusCompleted)
	finish.Set("CallDuration", "95")

	rec = postForm(t, h.HandleStatus, "/webhooks/twilio/status", finish)
	require.Equal(t, http.StatusOK, rec.Code)

	logs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, calls.StatusCompleted, logs[0].Status)
	require.NotNil(t, logs[0].Duration)
	assert.Equal(t, 95, *logs[0].Duration)
	assert.Equal(t, "Caller: hi\n\nSarah: Hello!", logs[0].Transcript)
	assert.Equal(t, []string{"CA4"}, engine.ended)
}

func TestHandleStatus_OutboundUsesToNumber(t *testing.T) {
	store := calls.NewInMemoryStore()
	h := NewTwilioVoiceHandler(&stubEngine{}, store, "", "https://clinic.example.com", nil, nil)

	form := url.Values{}
	form.Set("CallSid", "CA5")
	form.Set("From", "+2341111111111")
	form.Set("To", "+2348012345678")
	form.Set("CallStatus", calls.StatusInitiated)
	form.Set("Direction", "outbound-api")

	rec := postForm(t, h.HandleStatus, "/webhooks/twilio/status", form)
	require.Equal(t, http.StatusOK, rec.Code)

	logs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, calls.DirectionOutbound, logs[0].Direction)
	assert.Equal(t, "+2348012345678", logs[0].PhoneNumber)
}

func TestVoiceWebhooks_RejectBadSignature(t *testing.T) {
	h := NewTwilioVoiceHandler(&stubEngine{}, calls.NewInMemoryStore(), "auth-token", "https://clinic.example.com", nil, nil)

	form := url.Values{}
	form.Set("CallSid", "CA6")

	rec := postForm(t, h.HandleProcess, "/webhooks/twilio/process", form)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
