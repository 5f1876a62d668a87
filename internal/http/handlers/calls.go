package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

const recentCallsLimit = 100

// OutboundDialer places an outbound call and returns its provider SID.
// Satisfied by messaging.CallsClient.
type OutboundDialer interface {
	Place(ctx context.Context, to, message string) (string, error)
}

// CallsHandler serves call logs and outbound call initiation.
type CallsHandler struct {
	store  calls.Store
	dialer OutboundDialer
	logger *logging.Logger
}

// NewCallsHandler creates the calls API handler. dialer may be nil when
// outbound calling is not configured.
func NewCallsHandler(store calls.Store, dialer OutboundDialer, logger *logging.Logger) *CallsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CallsHandler{store: store, dialer: dialer, logger: logger}
}

// List handles GET /api/calls.
func (h *CallsHandler) List(w http.ResponseWriter, r *http.Request) {
	logs, err := h.store.Recent(r.Context(), recentCallsLimit)
	if err != nil {
		h.logger.Error("list calls failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch call logs")
		return
	}
	if logs == nil {
		logs = []calls.CallLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": logs})
}

type outboundCallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// Outbound handles POST /api/calls/outbound.
func (h *CallsHandler) Outbound(w http.ResponseWriter, r *http.Request) {
	if h.dialer == nil {
		writeError(w, http.StatusServiceUnavailable, "Outbound calling not configured")
		return
	}

	var req outboundCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if len(strings.TrimSpace(req.PhoneNumber)) < 10 {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	sid, err := h.dialer.Place(r.Context(), req.PhoneNumber, req.Message)
	if err != nil {
		h.logger.Error("outbound call failed", "to", req.PhoneNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to make outbound call")
		return
	}

	// Open the log now; the status webhook will update it as the call
	// progresses.
	if err := h.store.Begin(r.Context(), sid, req.PhoneNumber, calls.DirectionOutbound, calls.StatusInitiated); err != nil {
		h.logger.Warn("call log open failed", "call_sid", sid, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"callSid": sid,
		"message": fmt.Sprintf("Outbound call initiated to %s", req.PhoneNumber),
	})
}
