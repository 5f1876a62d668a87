package appointments

import "time"

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// DefaultDurationMinutes is assigned when a booking does not specify one.
const DefaultDurationMinutes = 30

// Appointment is a booked slot on the clinic calendar. Date is a plain
// YYYY-MM-DD string and Time a 24-hour HH:MM slot from the fixed grid.
type Appointment struct {
	ID          int64     `json:"id"`
	PatientID   *int64    `json:"patient_id,omitempty"`
	PhoneNumber string    `json:"phone_number"`
	Date        string    `json:"appointment_date"`
	Time        string    `json:"appointment_time"`
	Duration    int       `json:"duration"`
	ServiceType string    `json:"service_type"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ServiceTypes is the closed set of bookable services.
var ServiceTypes = []string{
	"checkup",
	"cleaning",
	"filling",
	"extraction",
	"whitening",
	"emergency",
	"consultation",
}

// ValidServiceType reports whether s is one of the bookable services.
func ValidServiceType(s string) bool {
	for _, svc := range ServiceTypes {
		if s == svc {
			return true
		}
	}
	return false
}

// Totals aggregates appointment counts for the dashboard.
type Totals struct {
	Total            int64            `json:"total"`
	Scheduled        int64            `json:"scheduled"`
	Completed        int64            `json:"completed"`
	Cancelled        int64            `json:"cancelled"`
	ServiceBreakdown map[string]int64 `json:"service_breakdown"`
}
