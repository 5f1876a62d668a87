package handlers

import (
	"context"
	"net/http"

	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/internal/conversation"
	"github.com/agbona24/Cusomer-care-support-agent/internal/messaging"
	"github.com/agbona24/Cusomer-care-support-agent/internal/observability/metrics"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

// TurnProcessor is the slice of the conversation engine the voice webhooks
// need.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req conversation.TurnRequest) conversation.TurnResult
	Transcript(callID string) string
	EndSession(callID string)
}

// TwilioVoiceHandler serves the three Twilio voice webhooks: the initial
// call, per-utterance speech results, and call status updates. Every
// response on the voice path must be TwiML the caller can hear, so errors
// are spoken, never returned as bare HTTP statuses.
type TwilioVoiceHandler struct {
	engine    TurnProcessor
	callLogs  calls.Store
	twiml     *messaging.TwiMLBuilder
	authToken string
	baseURL   string
	logger    *logging.Logger
	metrics   *metrics.VoiceMetrics
}

// NewTwilioVoiceHandler wires the voice webhooks. An empty authToken
// disables signature validation (local development).
func NewTwilioVoiceHandler(engine TurnProcessor, callLogs calls.Store, authToken, publicBaseURL string, logger *logging.Logger, voiceMetrics *metrics.VoiceMetrics) *TwilioVoiceHandler {
	if engine == nil {
		panic("handlers: conversation engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioVoiceHandler{
		engine:    engine,
		callLogs:  callLogs,
		twiml:     messaging.NewTwiMLBuilder(publicBaseURL),
		authToken: authToken,
		baseURL:   publicBaseURL,
		logger:    logger,
		metrics:   voiceMetrics,
	}
}

func (h *TwilioVoiceHandler) verified(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	return messaging.ValidateTwilioSignature(r, h.authToken, h.baseURL+r.URL.Path)
}

// HandleVoice answers an incoming call with the greeting and opens the
// call log.
func (h *TwilioVoiceHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	if !h.verified(r) {
		h.metrics.ObserveWebhook("voice", "rejected")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	webhook, err := messaging.ParseVoiceWebhook(r)
	if err != nil {
		h.logger.Error("voice webhook unparseable", "error", err)
		h.metrics.ObserveWebhook("voice", "error")
		writeTwiML(w, h.twiml.Error())
		return
	}

	h.logger.Info("incoming call", "call_sid", webhook.CallSID, "from", webhook.From)

	// Idempotent: the status webhook may already have opened the log.
	if h.callLogs != nil {
		if err := h.callLogs.Begin(r.Context(), webhook.CallSID, webhook.From, calls.DirectionInbound, calls.StatusInProgress); err != nil {
			h.logger.Warn("call log open failed", "call_sid", webhook.CallSID, "error", err)
		}
	}

	h.metrics.ObserveWebhook("voice", "ok")
	writeTwiML(w, h.twiml.Greeting())
}

// HandleProcess runs one conversation turn from a speech result.
func (h *TwilioVoiceHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if !h.verified(r) {
		h.metrics.ObserveWebhook("process", "rejected")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	webhook, err := messaging.ParseVoiceWebhook(r)
	if err != nil {
		h.logger.Error("process webhook unparseable", "error", err)
		h.metrics.ObserveWebhook("process", "error")
		writeTwiML(w, h.twiml.Error())
		return
	}

	h.logger.Info("speech received",
		"call_sid", webhook.CallSID,
		"speech", webhook.SpeechResult,
		"confidence", webhook.Confidence,
	)

	result := h.engine.ProcessTurn(r.Context(), conversation.TurnRequest{
		CallID:      webhook.CallSID,
		CallerPhone: webhook.From,
		Utterance:   webhook.SpeechResult,
		Confidence:  webhook.Confidence,
	})

	h.metrics.ObserveWebhook("process", "ok")
	writeTwiML(w, h.twiml.Response(result.Reply, result.EndCall))
}

// HandleStatus records call lifecycle events from Twilio.
func (h *TwilioVoiceHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.verified(r) {
		h.metrics.ObserveWebhook("status", "rejected")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	webhook, err := messaging.ParseVoiceWebhook(r)
	if err != nil {
		h.metrics.ObserveWebhook("status", "error")
		writeError(w, http.StatusBadRequest, "failed to process status")
		return
	}

	h.logger.Info("call status update", "call_sid", webhook.CallSID, "status", webhook.CallStatus)

	switch {
	case webhook.CallStatus == calls.StatusInitiated || webhook.CallStatus == calls.StatusRinging:
		direction := calls.DirectionInbound
		phone := webhook.From
		if webhook.Direction != "" && webhook.Direction != "inbound" {
			direction = calls.DirectionOutbound
			phone = webhook.To
		}
		if err := h.callLogs.Begin(r.Context(), webhook.CallSID, phone, direction, webhook.CallStatus); err != nil {
			h.logger.Warn("call log open failed", "call_sid", webhook.CallSID, "error", err)
		}

	case calls.IsTerminalStatus(webhook.CallStatus):
		// Persist whatever transcript the engine still holds, then let the
		// session go.
		if transcript := h.engine.Transcript(webhook.CallSID); transcript != "" {
			if err := h.callLogs.UpdateTranscript(r.Context(), webhook.CallSID, transcript); err != nil {
				h.logger.Debug("final transcript sync skipped", "call_sid", webhook.CallSID, "error", err)
			}
		}
		if err := h.callLogs.Finish(r.Context(), webhook.CallSID, webhook.CallStatus, webhook.CallDuration); err != nil {
			h.logger.Warn("call log close failed", "call_sid", webhook.CallSID, "error", err)
		}
		h.engine.EndSession(webhook.CallSID)
	}

	h.metrics.ObserveWebhook("status", "ok")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
