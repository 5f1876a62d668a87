package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/internal/conversation"
	"github.com/agbona24/Cusomer-care-support-agent/internal/http/handlers"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

type echoEngine struct{}

func (echoEngine) ProcessTurn(ctx context.Context, req conversation.TurnRequest) conversation.TurnResult {
	return conversation.TurnResult{Reply: "You said: " + req.Utterance}
}

func (echoEngine) Transcript(callID string) string { return "" }

func (echoEngine) EndSession(callID string) {}

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	logger := logging.Default()
	scheduler := appointments.NewService(appointments.NewInMemoryRepository(), nil, logger)
	patientRepo := patients.NewInMemoryRepository()
	callStore := calls.NewInMemoryStore()

	return &Config{
		Logger:       logger,
		Voice:        handlers.NewTwilioVoiceHandler(echoEngine{}, callStore, "", "http://localhost:8080", logger, nil),
		Appointments: handlers.NewAppointmentsHandler(scheduler, patientRepo, nil, logger),
		Patients:     handlers.NewPatientsHandler(patientRepo, scheduler, logger),
		Calls:        handlers.NewCallsHandler(callStore, nil, logger),
		Dashboard:    handlers.NewDashboardHandler(scheduler, patientRepo, callStore, logger),
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := New(newTestConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterVoiceWebhookEndpoint(t *testing.T) {
	router := New(newTestConfig(t))

	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+2348012345678")
	form.Set("To", "+2341234567890")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("expected XML response, got %s", ct)
	}
}

func TestRouterAPIOpenWithoutSecret(t *testing.T) {
	router := New(newTestConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterAPIRequiresJWTWhenConfigured(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.AdminAuthSecret = "router-test-secret"
	router := New(cfg)

	// No token: rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d without token, got %d", http.StatusUnauthorized, rr.Code)
	}

	// Signed token: allowed.
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("router-test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d with token, got %d", http.StatusOK, rr.Code)
	}

	// Webhooks stay public.
	form := url.Values{}
	form.Set("CallSid", "CA456")
	form.Set("From", "+2348012345678")
	req = httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected webhook to stay public, got %d", rr.Code)
	}
}

func TestRouterWebhookRateLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.WebhookRatePerSecond = 1
	cfg.WebhookBurst = 2
	router := New(cfg)

	form := url.Values{}
	form.Set("CallSid", "CA789")
	form.Set("From", "+2348012345678")

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "203.0.113.7:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		last = rr.Code
	}

	if last != http.StatusTooManyRequests {
		t.Fatalf("expected status %d after burst exhausted, got %d", http.StatusTooManyRequests, last)
	}
}
