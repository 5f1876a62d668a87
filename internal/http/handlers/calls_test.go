package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
)

type stubDialer struct {
	sid    string
	err    error
	lastTo string
}

func (s *stubDialer) Place(ctx context.Context, to, message string) (string, error) {
	s.lastTo = to
	if s.err != nil {
		return "", s.err
	}
	return s.sid, nil
}

func newCallsFixture(dialer OutboundDialer) (*chi.Mux, *calls.InMemoryStore) {
	store := calls.NewInMemoryStore()
	h := NewCallsHandler(store, dialer, nil)
	r := chi.NewRouter()
	r.Get("/api/calls", h.List)
	r.Post("/api/calls/outbound", h.Outbound)
	return r, store
}

func TestCallsAPI_List(t *testing.T) {
	router, store := newCallsFixture(nil)
	require.NoError(t, store.Begin(context.Background(), "CA1", testPhone, calls.DirectionInbound, calls.StatusCompleted))

	rec := doJSON(t, router, http.MethodGet, "/api/calls", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Calls []calls.CallLog `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Calls, 1)
	assert.Equal(t, "CA1", out.Calls[0].CallSID)
}

func TestCallsAPI_Outbound(t *testing.T) {
	dialer := &stubDialer{sid: "CA777"}
	router, store := newCallsFixture(dialer)

	rec := doJSON(t, router, http.MethodPost, "/api/calls/outbound", `{"phoneNumber":"`+testPhone+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "CA777")
	assert.Equal(t, testPhone, dialer.lastTo)

	logs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, calls.DirectionOutbound, logs[0].Direction)
	assert.Equal(t, calls.StatusInitiated, logs[0].Status)
}

func TestCallsAPI_Outbound_BadInput(t *testing.T) {
	router, _ := newCallsFixture(&stubDialer{sid: "CA1"})

	rec := doJSON(t, router, http.MethodPost, "/api/calls/outbound", `{"phoneNumber":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/calls/outbound", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallsAPI_Outbound_DialerError(t *testing.T) {
	router, _ := newCallsFixture(&stubDialer{err: errors.New("twilio down")})

	rec := doJSON(t, router, http.MethodPost, "/api/calls/outbound", `{"phoneNumber":"`+testPhone+`"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCallsAPI_Outbound_NotConfigured(t *testing.T) {
	router, _ := newCallsFixture(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/calls/outbound", `{"phoneNumber":"`+testPhone+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
