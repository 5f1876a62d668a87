package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

const defaultOutboundGreeting = "Hello, this is Sarah calling from Smile Dental Clinic. I'm calling to confirm your upcoming appointment. Is this a good time to talk?"

// CallsClient places outbound voice calls through Twilio's REST API. The
// call carries inline TwiML so the callee lands in the same conversation
// loop as inbound callers, and status events are posted back to us.
type CallsClient struct {
	accountSID string
	authToken  string
	from       string
	statusURL  string
	twiml      *TwiMLBuilder
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewCallsClient wires an outbound dialer against the public base URL.
func NewCallsClient(accountSID, authToken, from, publicBaseURL string, logger *logging.Logger) *CallsClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &CallsClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		statusURL:  publicBaseURL + "/webhooks/twilio/status",
		twiml:      NewTwiMLBuilder(publicBaseURL),
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL points the client at a different API host. Tests only.
func (c *CallsClient) WithBaseURL(base string) *CallsClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// Place starts an outbound call and returns the Twilio call SID. An empty
// message falls back to the appointment-confirmation greeting.
func (c *CallsClient) Place(ctx context.Context, to, message string) (string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return "", errors.New("messaging: twilio credentials missing")
	}
	to = FormatNigerian(to)
	if to == "" {
		return "", errors.New("messaging: to required")
	}
	if strings.TrimSpace(message) == "" {
		message = defaultOutboundGreeting
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.call")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", c.from)
	payload.Set("Twiml", c.twiml.Outbound(message))
	payload.Set("StatusCallback", c.statusURL)
	payload.Set("StatusCallbackMethod", "POST")
	for _, event := range []string{"initiated", "ringing", "answered", "completed"} {
		payload.Add("StatusCallbackEvent", event)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("messaging: place call: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("messaging: place call: %s", formatTwilioError(resp.StatusCode, body))
		span.RecordError(err)
		return "", err
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.SID == "" {
		return "", errors.New("messaging: place call: missing sid in response")
	}

	c.logger.Info("outbound call placed", "to", to, "call_sid", parsed.SID)
	return parsed.SID, nil
}
