package calls

import "time"

// Call directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Provider call lifecycle statuses we persist.
const (
	StatusInitiated  = "initiated"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusBusy       = "busy"
	StatusNoAnswer   = "no-answer"
)

// CallLog records one phone call, keyed by the provider call SID.
// The transcript accumulates as the conversation engine syncs turns.
type CallLog struct {
	ID          int64     `json:"id"`
	CallSID     string    `json:"call_sid"`
	PhoneNumber string    `json:"phone_number"`
	Direction   string    `json:"direction"`
	Status      string    `json:"status"`
	Duration    *int      `json:"duration,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Counts aggregates call volume for the dashboard.
type Counts struct {
	Total    int64 `json:"total"`
	Inbound  int64 `json:"inbound"`
	Outbound int64 `json:"outbound"`
}

// IsTerminalStatus reports whether a provider status ends the call.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	}
	return false
}
