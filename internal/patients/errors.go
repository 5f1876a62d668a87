package patients

import "errors"

var (
	// ErrInvalidPhone is returned when the phone number is missing or blank
	ErrInvalidPhone = errors.New("phone number is required")

	// ErrPatientNotFound is returned when a patient is not found
	ErrPatientNotFound = errors.New("patient not found")
)
