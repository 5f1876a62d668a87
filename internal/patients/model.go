package patients

import "time"

// Patient represents a clinic patient, keyed by phone number.
type Patient struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity carries the optional name/email fields a caller may supply
// mid-conversation. Empty fields never overwrite stored values.
type Identity struct {
	FirstName string
	LastName  string
	Email     string
}
