package messaging

import (
	"fmt"
	"strings"
	"time"
)

const clinicName = "Smile Dental Clinic"

// AppointmentDetails carries everything a confirmation or reminder needs.
type AppointmentDetails struct {
	PatientName    string
	PhoneNumber    string
	Date           string
	Time           string
	ServiceType    string
	ConfirmationID int64
}

// ConfirmationMessage renders the booking confirmation. Bold markers render
// on WhatsApp and are stripped for SMS.
func ConfirmationMessage(d AppointmentDetails) string {
	name := d.PatientName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`*Appointment Confirmed!*

Hello %s!

Your appointment at %s has been booked:

*Date:* %s
*Time:* %s
*Service:* %s
*Confirmation #:* %d

*Location:* Victoria Island, Lagos

Please arrive 10 minutes early. If you need to reschedule, call us back or reply to this message.

See you soon!

- Sarah, %s`,
		name, clinicName,
		FormatDateNigerian(d.Date), FormatTimeNigerian(d.Time), FormatService(d.ServiceType),
		d.ConfirmationID, clinicName)
}

// ReminderMessage renders the day-before reminder.
func ReminderMessage(d AppointmentDetails) string {
	name := d.PatientName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`*Appointment Reminder*

Hello %s!

This is a friendly reminder that you have an appointment *tomorrow* at %s:

*Time:* %s
*Service:* %s

Victoria Island, Lagos

Reply YES to confirm or call us to reschedule.

See you soon!`,
		name, clinicName,
		FormatTimeNigerian(d.Time), FormatService(d.ServiceType))
}

// FormatTimeNigerian renders "14:30" as "2:30pm in the afternoon".
func FormatTimeNigerian(t string) string {
	parsed, err := time.Parse("15:04", t)
	if err != nil {
		return t
	}
	hours, minutes := parsed.Hour(), parsed.Minute()

	period := "morning"
	switch {
	case hours >= 17:
		period = "evening"
	case hours >= 12:
		period = "afternoon"
	}

	hour12 := hours % 12
	if hour12 == 0 {
		hour12 = 12
	}

	minuteStr := ""
	if minutes != 0 {
		minuteStr = fmt.Sprintf(":%02d", minutes)
	}

	meridiem := "am"
	if period != "morning" {
		meridiem = "pm"
	}
	return fmt.Sprintf("%d%s%s in the %s", hour12, minuteStr, meridiem, period)
}

// FormatDateNigerian renders "2026-09-07" as "Monday, 7 September 2026".
func FormatDateNigerian(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s, %d %s %d", parsed.Weekday(), parsed.Day(), parsed.Month(), parsed.Year())
}

// FormatService turns "teeth-whitening" into "Teeth Whitening".
func FormatService(service string) string {
	words := strings.Split(service, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
