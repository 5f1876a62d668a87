package handlers

import (
	"net/http"

	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

// PatientsHandler serves the patient roster for the dashboard.
type PatientsHandler struct {
	patients  patients.Repository
	scheduler *appointments.Service
	logger    *logging.Logger
}

func NewPatientsHandler(patientRepo patients.Repository, scheduler *appointments.Service, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{patients: patientRepo, scheduler: scheduler, logger: logger}
}

type patientStats struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type patientWithStats struct {
	patients.Patient
	AppointmentStats patientStats              `json:"appointmentStats"`
	LastAppointment  *appointments.Appointment `json:"lastAppointment"`
}

// List handles GET /api/patients, returning every patient with their
// appointment counts and most recent appointment.
func (h *PatientsHandler) List(w http.ResponseWriter, r *http.Request) {
	roster, err := h.patients.List(r.Context())
	if err != nil {
		h.logger.Error("list patients failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch patients")
		return
	}

	out := make([]patientWithStats, 0, len(roster))
	for _, p := range roster {
		entry := patientWithStats{Patient: p}

		history, err := h.scheduler.History(r.Context(), p.PhoneNumber)
		if err != nil {
			h.logger.Error("patient history failed", "phone", p.PhoneNumber, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch patients")
			return
		}
		for _, a := range history {
			entry.AppointmentStats.Total++
			switch a.Status {
			case appointments.StatusScheduled:
				entry.AppointmentStats.Scheduled++
			case appointments.StatusCompleted:
				entry.AppointmentStats.Completed++
			case appointments.StatusCancelled:
				entry.AppointmentStats.Cancelled++
			}
		}
		if len(history) > 0 {
			last := history[0]
			entry.LastAppointment = &last
		}
		out = append(out, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"patients": out})
}
