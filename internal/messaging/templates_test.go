package messaging

import (
	"strings"
	"testing"
)

func TestFormatTimeNigerian(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08:00", "8am in the morning"},
		{"12:00", "12pm in the afternoon"},
		{"13:00", "1pm in the afternoon"},
		{"16:30", "4:30pm in the afternoon"},
		{"18:00", "6pm in the evening"},
		{"not-a-time", "not-a-time"},
	}
	for _, tc := range cases {
		if got := FormatTimeNigerian(tc.in); got != tc.want {
			t.Fatalf("FormatTimeNigerian(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDateNigerian(t *testing.T) {
	if got := FormatDateNigerian("2026-09-07"); got != "Monday, 7 September 2026" {
		t.Fatalf("unexpected date %q", got)
	}
	if got := FormatDateNigerian("garbage"); got != "garbage" {
		t.Fatalf("invalid date should pass through, got %q", got)
	}
}

func TestFormatService(t *testing.T) {
	if got := FormatService("teeth-whitening"); got != "Teeth Whitening" {
		t.Fatalf("unexpected service %q", got)
	}
	if got := FormatService("cleaning"); got != "Cleaning" {
		t.Fatalf("unexpected service %q", got)
	}
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage(AppointmentDetails{
		PatientName:    "Amara",
		PhoneNumber:    "+2348012345678",
		Date:           "2026-09-07",
		Time:           "09:00",
		ServiceType:    "cleaning",
		ConfirmationID: 42,
	})

	for _, want := range []string{
		"Hello Amara!",
		"Monday, 7 September 2026",
		"9am in the morning",
		"Cleaning",
		"*Confirmation #:* 42",
		"Victoria Island, Lagos",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("confirmation missing %q:\n%s", want, msg)
		}
	}
}

func TestReminderMessage_NoName(t *testing.T) {
	msg := ReminderMessage(AppointmentDetails{Time: "14:00", ServiceType: "checkup"})
	if !strings.Contains(msg, "Hello there!") {
		t.Fatalf("missing fallback salutation:\n%s", msg)
	}
	if !strings.Contains(msg, "2pm in the afternoon") {
		t.Fatalf("missing time:\n%s", msg)
	}
}
