package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agbona24/Cusomer-care-support-agent/internal/redislock"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

var schedulingTracer = otel.Tracer("clinic.internal.appointments")

// BookingRequest carries everything needed to reserve a slot.
type BookingRequest struct {
	PhoneNumber string
	Date        string
	Time        string
	ServiceType string
	Notes       string
	PatientID   *int64
}

// Service owns slot allocation and the booking lifecycle. Availability is
// re-checked inside a per-slot lock immediately before every mutation so
// two concurrent requests for the same (date, time) cannot both insert.
type Service struct {
	repo   Repository
	locker redislock.Locker
	logger *logging.Logger
	now    func() time.Time
}

// NewService constructs a scheduling service.
func NewService(repo Repository, locker redislock.Locker, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if locker == nil {
		locker = redislock.NewLocalLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock; used by tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// AvailableSlots returns the bookable times for a calendar date, in grid
// order. Closed weekdays yield an empty slice regardless of bookings;
// malformed dates fail with ErrInvalidInput.
func (s *Service) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.available_slots")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.date", date))

	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if ClinicClosed(day) {
		return []string{}, nil
	}

	bookedTimes, err := s.repo.BookedTimes(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	booked := make(map[string]bool, len(bookedTimes))
	for _, t := range bookedTimes {
		booked[t] = true
	}

	open := make([]string, 0, len(slotGrid))
	for _, slot := range slotGrid {
		if !booked[slot] {
			open = append(open, slot)
		}
	}
	return open, nil
}

// Book reserves a slot. The availability check and insert run inside the
// per-slot lock; a lost lock race reads as the slot being taken.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.date", req.Date),
		attribute.String("clinic.time", req.Time),
		attribute.String("clinic.service", req.ServiceType),
	)

	if err := validateBooking(req); err != nil {
		return nil, err
	}

	var created *Appointment
	err := s.locker.WithSlotLock(ctx, slotKey(req.Date, req.Time), func(lockCtx context.Context) error {
		if err := s.requireOpen(lockCtx, req.Date, req.Time); err != nil {
			return err
		}
		appt, err := s.repo.Insert(lockCtx, &Appointment{
			PatientID:   req.PatientID,
			PhoneNumber: req.PhoneNumber,
			Date:        req.Date,
			Time:        req.Time,
			ServiceType: req.ServiceType,
			Notes:       req.Notes,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redislock.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: %s on %s is being booked", ErrSlotUnavailable, req.Time, req.Date)
		}
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"date", created.Date,
		"time", created.Time,
		"service", created.ServiceType,
	)
	return created, nil
}

// Reschedule moves an existing appointment to a new slot under the same
// availability guard. The original schedule is untouched on failure.
func (s *Service) Reschedule(ctx context.Context, id int64, newDate, newTime string) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.appointment_id", id))

	if _, err := ParseDate(newDate); err != nil {
		return nil, err
	}
	if !ValidTime(newTime) {
		return nil, fmt.Errorf("%w: bad time %q", ErrInvalidInput, newTime)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	var updated *Appointment
	err := s.locker.WithSlotLock(ctx, slotKey(newDate, newTime), func(lockCtx context.Context) error {
		if err := s.requireOpen(lockCtx, newDate, newTime); err != nil {
			return err
		}
		appt, err := s.repo.UpdateSchedule(lockCtx, id, newDate, newTime)
		if err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redislock.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: %s on %s is being booked", ErrSlotUnavailable, newTime, newDate)
		}
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("appointment rescheduled", "appointment_id", id, "date", newDate, "time", newTime)
	return updated, nil
}

// Cancel sets an appointment to cancelled. Cancelling an already-cancelled
// appointment succeeds without touching state.
func (s *Service) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.appointment_id", id))

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	cancelled, err := s.repo.SetStatus(ctx, id, StatusCancelled)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return cancelled, nil
}

// Upcoming returns future scheduled appointments for a phone number,
// ordered by date then time.
func (s *Service) Upcoming(ctx context.Context, phone string) ([]Appointment, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone required", ErrInvalidInput)
	}
	return s.repo.UpcomingForPhone(ctx, phone, s.today())
}

// Get fetches one appointment by id.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// UpcomingAll returns every future scheduled appointment (admin view).
func (s *Service) UpcomingAll(ctx context.Context) ([]Appointment, error) {
	return s.repo.InRange(ctx, s.today(), "9999-12-31")
}

// InRange exposes the scheduled appointments within an inclusive date range.
func (s *Service) InRange(ctx context.Context, fromDate, toDate string) ([]Appointment, error) {
	return s.repo.InRange(ctx, fromDate, toDate)
}

// History returns every appointment for a phone number in any status,
// newest first.
func (s *Service) History(ctx context.Context, phone string) ([]Appointment, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone required", ErrInvalidInput)
	}
	return s.repo.HistoryForPhone(ctx, phone)
}

// Totals exposes aggregate appointment counts.
func (s *Service) Totals(ctx context.Context) (*Totals, error) {
	return s.repo.Totals(ctx)
}

// Today returns the current calendar date as YYYY-MM-DD.
func (s *Service) Today() string {
	return s.today()
}

func (s *Service) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// requireOpen re-checks availability immediately before a mutation.
func (s *Service) requireOpen(ctx context.Context, date, slotTime string) error {
	open, err := s.AvailableSlots(ctx, date)
	if err != nil {
		return err
	}
	for _, slot := range open {
		if slot == slotTime {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrSlotUnavailable, slotTime, date)
}

func validateBooking(req BookingRequest) error {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone required", ErrInvalidInput)
	}
	if _, err := ParseDate(req.Date); err != nil {
		return err
	}
	if !ValidTime(req.Time) {
		return fmt.Errorf("%w: bad time %q", ErrInvalidInput, req.Time)
	}
	if !ValidServiceType(req.ServiceType) {
		return fmt.Errorf("%w: unknown service %q", ErrInvalidInput, req.ServiceType)
	}
	return nil
}

func slotKey(date, slotTime string) string {
	return date + ":" + slotTime
}
