package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the persistence operations the scheduling service depends on.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	UpdateSchedule(ctx context.Context, id int64, newDate, newTime string) (*Appointment, error)
	SetStatus(ctx context.Context, id int64, status string) (*Appointment, error)
	// BookedTimes returns the times of scheduled appointments on date.
	BookedTimes(ctx context.Context, date string) ([]string, error)
	// UpcomingForPhone returns scheduled appointments on or after fromDate
	// for the phone number, ordered by date then time.
	UpcomingForPhone(ctx context.Context, phone, fromDate string) ([]Appointment, error)
	// InRange returns scheduled appointments with fromDate <= date <= toDate,
	// ordered by date then time.
	InRange(ctx context.Context, fromDate, toDate string) ([]Appointment, error)
	// HistoryForPhone returns every appointment for the phone number in any
	// status, newest first.
	HistoryForPhone(ctx context.Context, phone string) ([]Appointment, error)
	Totals(ctx context.Context) (*Totals, error)
}

// InMemoryRepository is an in-memory Repository used by tests and the demo seeder.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*Appointment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, rows: make(map[int64]*Appointment)}
}

// Insert stores a new appointment row.
func (r *InMemoryRepository) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	cp := *appt
	cp.ID = r.nextID
	if cp.Status == "" {
		cp.Status = StatusScheduled
	}
	if cp.Duration == 0 {
		cp.Duration = DefaultDurationMinutes
	}
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.nextID++
	r.rows[cp.ID] = &cp

	out := cp
	return &out, nil
}

// GetByID fetches one appointment.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *row
	return &cp, nil
}

// UpdateSchedule moves an appointment to a new date and time.
func (r *InMemoryRepository) UpdateSchedule(ctx context.Context, id int64, newDate, newTime string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	row.Date = newDate
	row.Time = newTime
	row.UpdatedAt = time.Now().UTC()
	cp := *row
	return &cp, nil
}

// SetStatus updates the lifecycle status of an appointment.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	cp := *row
	return &cp, nil
}

// BookedTimes returns the scheduled times on a date.
func (r *InMemoryRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, row := range r.rows {
		if row.Date == date && row.Status == StatusScheduled {
			out = append(out, row.Time)
		}
	}
	sort.Strings(out)
	return out, nil
}

// UpcomingForPhone returns future scheduled appointments for a phone number.
func (r *InMemoryRepository) UpcomingForPhone(ctx context.Context, phone, fromDate string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, row := range r.rows {
		if row.PhoneNumber == phone && row.Status == StatusScheduled && row.Date >= fromDate {
			out = append(out, *row)
		}
	}
	sortByDateTime(out)
	return out, nil
}

// InRange returns scheduled appointments within the inclusive date range.
func (r *InMemoryRepository) InRange(ctx context.Context, fromDate, toDate string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, row := range r.rows {
		if row.Status == StatusScheduled && row.Date >= fromDate && row.Date <= toDate {
			out = append(out, *row)
		}
	}
	sortByDateTime(out)
	return out, nil
}

// HistoryForPhone returns all appointments for a phone number, newest first.
func (r *InMemoryRepository) HistoryForPhone(ctx context.Context, phone string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, row := range r.rows {
		if row.PhoneNumber == phone {
			out = append(out, *row)
		}
	}
	sortByDateTime(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Totals aggregates counts across all appointments.
func (r *InMemoryRepository) Totals(ctx context.Context) (*Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := &Totals{ServiceBreakdown: make(map[string]int64)}
	for _, row := range r.rows {
		t.Total++
		switch row.Status {
		case StatusScheduled:
			t.Scheduled++
		case StatusCompleted:
			t.Completed++
		case StatusCancelled:
			t.Cancelled++
		}
		t.ServiceBreakdown[row.ServiceType]++
	}
	return t, nil
}

func sortByDateTime(rows []Appointment) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Time < rows[j].Time
	})
}
