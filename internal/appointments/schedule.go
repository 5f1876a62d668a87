package appointments

import (
	"fmt"
	"time"
)

// slotGrid is the fixed ordered grid of bookable start times,
// 08:00 through 16:30 in 30-minute steps.
var slotGrid = []string{
	"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30",
}

// closedWeekdays are the days the clinic does not open at all.
var closedWeekdays = map[time.Weekday]bool{
	time.Friday:   true,
	time.Saturday: true,
	time.Sunday:   true,
}

// SlotGrid returns a copy of the full slot grid.
func SlotGrid() []string {
	out := make([]string, len(slotGrid))
	copy(out, slotGrid)
	return out
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	return d, nil
}

// ValidTime validates a 24-hour HH:MM slot time.
func ValidTime(t string) bool {
	_, err := time.Parse("15:04", t)
	return err == nil && len(t) == 5
}

// ClinicClosed reports whether the clinic is closed on the given day.
func ClinicClosed(d time.Time) bool {
	return closedWeekdays[d.Weekday()]
}
