package appointments

import "errors"

var (
	// ErrInvalidInput is returned for malformed dates, times, phone numbers
	// or unknown service types, before any store access happens.
	ErrInvalidInput = errors.New("invalid appointment input")

	// ErrSlotUnavailable is returned when the requested time is not free.
	ErrSlotUnavailable = errors.New("slot not available")

	// ErrAppointmentNotFound is returned when the target appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")
)
