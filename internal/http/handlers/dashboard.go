package handlers

import (
	"net/http"
	"time"

	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

const recentCallsPreview = 5

// DashboardHandler aggregates the numbers the admin dashboard shows on one
// screen.
type DashboardHandler struct {
	scheduler *appointments.Service
	patients  patients.Repository
	calls     calls.Store
	logger    *logging.Logger
	now       func() time.Time
}

func NewDashboardHandler(scheduler *appointments.Service, patientRepo patients.Repository, callStore calls.Store, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardHandler{
		scheduler: scheduler,
		patients:  patientRepo,
		calls:     callStore,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock. Tests only.
func (h *DashboardHandler) WithNow(now func() time.Time) *DashboardHandler {
	h.now = now
	return h
}

type dashboardStats struct {
	TotalPatients         int   `json:"totalPatients"`
	TotalAppointments     int64 `json:"totalAppointments"`
	ScheduledAppointments int64 `json:"scheduledAppointments"`
	CompletedAppointments int64 `json:"completedAppointments"`
	CancelledAppointments int64 `json:"cancelledAppointments"`
	TotalCalls            int64 `json:"totalCalls"`
	InboundCalls          int64 `json:"inboundCalls"`
	OutboundCalls         int64 `json:"outboundCalls"`
	TodaysCount           int   `json:"todaysCount"`
}

// Overview handles GET /api/dashboard.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.now().Format("2006-01-02")
	nextWeek := h.now().AddDate(0, 0, 7).Format("2006-01-02")
	monthOut := h.now().AddDate(0, 0, 30).Format("2006-01-02")

	totals, err := h.scheduler.Totals(ctx)
	if err != nil {
		h.fail(w, "appointment totals", err)
		return
	}
	todays, err := h.scheduler.InRange(ctx, today, today)
	if err != nil {
		h.fail(w, "todays appointments", err)
		return
	}
	upcoming, err := h.scheduler.InRange(ctx, today, nextWeek)
	if err != nil {
		h.fail(w, "upcoming appointments", err)
		return
	}
	calendar, err := h.scheduler.InRange(ctx, today, monthOut)
	if err != nil {
		h.fail(w, "calendar appointments", err)
		return
	}
	recentCalls, err := h.calls.Recent(ctx, recentCallsPreview)
	if err != nil {
		h.fail(w, "recent calls", err)
		return
	}
	callCounts, err := h.calls.Counts(ctx)
	if err != nil {
		h.fail(w, "call counts", err)
		return
	}
	roster, err := h.patients.List(ctx)
	if err != nil {
		h.fail(w, "patients", err)
		return
	}

	byDate := make(map[string][]appointments.Appointment)
	for _, a := range calendar {
		byDate[a.Date] = append(byDate[a.Date], a)
	}
	if recentCalls == nil {
		recentCalls = []calls.CallLog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats": dashboardStats{
			TotalPatients:         len(roster),
			TotalAppointments:     totals.Total,
			ScheduledAppointments: totals.Scheduled,
			CompletedAppointments: totals.Completed,
			CancelledAppointments: totals.Cancelled,
			TotalCalls:            callCounts.Total,
			InboundCalls:          callCounts.Inbound,
			OutboundCalls:         callCounts.Outbound,
			TodaysCount:           len(todays),
		},
		"todaysAppointments":   emptyIfNil(todays),
		"upcomingAppointments": emptyIfNil(upcoming),
		"recentCalls":          recentCalls,
		"serviceBreakdown":     totals.ServiceBreakdown,
		"appointmentsByDate":   byDate,
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("dashboard query failed", "query", what, "error", err)
	writeError(w, http.StatusInternalServerError, "Failed to fetch dashboard data")
}
