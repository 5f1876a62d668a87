package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

var twilioSendTracer = otel.Tracer("clinic.internal.messaging.twilio_send")

const twilioAPIBase = "https://api.twilio.com"

// TwilioSender posts SMS and WhatsApp messages using Twilio's REST API.
type TwilioSender struct {
	accountSID   string
	authToken    string
	from         string
	whatsAppFrom string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults. whatsAppFrom may be
// empty, in which case the SMS number is reused with the whatsapp: prefix.
func NewTwilioSender(accountSID, authToken, from, whatsAppFrom string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	if whatsAppFrom == "" {
		whatsAppFrom = "whatsapp:" + from
	}
	return &TwilioSender{
		accountSID:   accountSID,
		authToken:    authToken,
		from:         from,
		whatsAppFrom: whatsAppFrom,
		baseURL:      twilioAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the sender at a different API host. Tests only.
func (s *TwilioSender) WithBaseURL(base string) *TwilioSender {
	s.baseURL = strings.TrimRight(base, "/")
	return s
}

// SendSMS dispatches a single SMS. Markdown bold markers are stripped since
// plain SMS has no formatting.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	to = FormatNigerian(to)
	body = strings.ReplaceAll(body, "*", "")
	return s.send(ctx, "sms", s.from, to, body)
}

// SendWhatsApp dispatches a WhatsApp message.
func (s *TwilioSender) SendWhatsApp(ctx context.Context, to, body string) error {
	to = "whatsapp:" + FormatNigerian(to)
	return s.send(ctx, "whatsapp", s.whatsAppFrom, to, body)
}

// SendConfirmation delivers a notification over WhatsApp first and falls
// back to SMS when the WhatsApp send fails (number not on WhatsApp, sandbox
// not joined).
func (s *TwilioSender) SendConfirmation(ctx context.Context, to, body string) error {
	err := s.SendWhatsApp(ctx, to, body)
	if err == nil {
		return nil
	}
	s.logger.Warn("whatsapp send failed, falling back to sms", "to", to, "error", err)
	return s.SendSMS(ctx, to, body)
}

// send posts one message, retrying transient failures.
func (s *TwilioSender) send(ctx context.Context, channel, from, to, body string) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("messaging: twilio credentials missing")
	}
	if to == "" || to == "whatsapp:" {
		return errors.New("messaging: to required")
	}
	if from == "" {
		return errors.New("messaging: from required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.channel", channel),
		attribute.String("clinic.to", to),
	)

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				s.logger.Info("twilio message sent", "channel", channel, "to", to)
				return nil
			}
			lastErr = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, respBody))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
