package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/messaging"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

// ConfirmationSender delivers booking confirmations. Satisfied by
// messaging.TwilioSender.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, to, body string) error
}

// AppointmentsHandler serves the dashboard booking CRUD API.
type AppointmentsHandler struct {
	scheduler *appointments.Service
	patients  patients.Repository
	notifier  ConfirmationSender
	logger    *logging.Logger
}

// NewAppointmentsHandler creates the appointments API handler. notifier may
// be nil, in which case no confirmation messages are sent.
func NewAppointmentsHandler(scheduler *appointments.Service, patientRepo patients.Repository, notifier ConfirmationSender, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{
		scheduler: scheduler,
		patients:  patientRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// List handles GET /api/appointments. With ?phone= it lists that patient's
// upcoming appointments; with ?date= it lists the open slots on that date;
// with neither it lists every upcoming appointment.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if phone := q.Get("phone"); phone != "" {
		appts, err := h.scheduler.Upcoming(r.Context(), phone)
		if err != nil {
			h.logger.Error("list appointments failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch appointments")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": emptyIfNil(appts)})
		return
	}

	if date := q.Get("date"); date != "" {
		slots, err := h.scheduler.AvailableSlots(r.Context(), date)
		if err != nil {
			if errors.Is(err, appointments.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("available slots failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch appointments")
			return
		}
		if slots == nil {
			slots = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "availableSlots": slots})
		return
	}

	appts, err := h.scheduler.UpcomingAll(r.Context())
	if err != nil {
		h.logger.Error("list appointments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": emptyIfNil(appts)})
}

type createAppointmentRequest struct {
	PhoneNumber     string `json:"phoneNumber"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	ServiceType     string `json:"serviceType"`
	PatientName     string `json:"patientName"`
	Notes           string `json:"notes"`
}

// Create handles POST /api/appointments.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	var patientID *int64
	if h.patients != nil {
		identity := splitPatientName(req.PatientName)
		patient, err := h.patients.FindOrCreate(r.Context(), req.PhoneNumber, identity)
		if err != nil {
			if errors.Is(err, patients.ErrInvalidPhone) {
				writeError(w, http.StatusBadRequest, "Invalid request")
				return
			}
			h.logger.Error("find or create patient failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create appointment")
			return
		}
		patientID = &patient.ID
	}

	appt, err := h.scheduler.Book(r.Context(), appointments.BookingRequest{
		PhoneNumber: req.PhoneNumber,
		Date:        req.AppointmentDate,
		Time:        req.AppointmentTime,
		ServiceType: req.ServiceType,
		Notes:       req.Notes,
		PatientID:   patientID,
	})
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrSlotUnavailable):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Time slot %s is not available on %s", req.AppointmentTime, req.AppointmentDate))
		case errors.Is(err, appointments.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("create appointment failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create appointment")
		}
		return
	}

	h.sendConfirmation(r.Context(), req.PatientName, appt)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"appointment": appt,
		"message":     fmt.Sprintf("Appointment booked for %s at %s", appt.Date, appt.Time),
	})
}

// Get handles GET /api/appointments/{id}.
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := h.scheduler.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.logger.Error("get appointment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": appt})
}

type rescheduleRequest struct {
	NewDate string `json:"newDate"`
	NewTime string `json:"newTime"`
}

// Reschedule handles PATCH /api/appointments/{id}.
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	appt, err := h.scheduler.Reschedule(r.Context(), id, req.NewDate, req.NewTime)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrAppointmentNotFound):
			writeError(w, http.StatusNotFound, "Appointment not found")
		case errors.Is(err, appointments.ErrSlotUnavailable):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Time slot %s is not available on %s", req.NewTime, req.NewDate))
		case errors.Is(err, appointments.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("reschedule failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to reschedule appointment")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"appointment": appt,
		"message":     fmt.Sprintf("Appointment rescheduled to %s at %s", req.NewDate, req.NewTime),
	})
}

// Cancel handles DELETE /api/appointments/{id}.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if _, err := h.scheduler.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.logger.Error("cancel failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to cancel appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Appointment #%d cancelled", id),
	})
}

func (h *AppointmentsHandler) sendConfirmation(ctx context.Context, patientName string, appt *appointments.Appointment) {
	if h.notifier == nil {
		return
	}
	msg := messaging.ConfirmationMessage(messaging.AppointmentDetails{
		PatientName:    firstName(patientName),
		PhoneNumber:    appt.PhoneNumber,
		Date:           appt.Date,
		Time:           appt.Time,
		ServiceType:    appt.ServiceType,
		ConfirmationID: appt.ID,
	})
	if err := h.notifier.SendConfirmation(ctx, appt.PhoneNumber, msg); err != nil {
		h.logger.Warn("confirmation send failed", "appointment_id", appt.ID, "error", err)
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid appointment id")
		return 0, false
	}
	return id, true
}

func splitPatientName(full string) patients.Identity {
	full = strings.TrimSpace(full)
	if full == "" {
		return patients.Identity{}
	}
	first, rest, _ := strings.Cut(full, " ")
	return patients.Identity{FirstName: first, LastName: strings.TrimSpace(rest)}
}

func firstName(full string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first
}

func emptyIfNil(appts []appointments.Appointment) []appointments.Appointment {
	if appts == nil {
		return []appointments.Appointment{}
	}
	return appts
}
