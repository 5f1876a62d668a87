package appointments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const apptColumns = `id, patient_id, phone_number, appointment_date, appointment_time,
		duration, service_type, status, COALESCE(notes, ''), created_at, updated_at`

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db pgDB) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PhoneNumber,
		&a.Date,
		&a.Time,
		&a.Duration,
		&a.ServiceType,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Insert stores a new appointment row.
func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	status := appt.Status
	if status == "" {
		status = StatusScheduled
	}
	duration := appt.Duration
	if duration == 0 {
		duration = DefaultDurationMinutes
	}
	query := `
		INSERT INTO appointments
			(patient_id, phone_number, appointment_date, appointment_time, duration, service_type, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING ` + apptColumns
	row := r.db.QueryRow(ctx, query,
		appt.PatientID,
		appt.PhoneNumber,
		appt.Date,
		appt.Time,
		duration,
		appt.ServiceType,
		status,
		appt.Notes,
	)
	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return created, nil
}

// GetByID fetches one appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == ErrAppointmentNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// UpdateSchedule moves an appointment to a new date and time.
func (r *PostgresRepository) UpdateSchedule(ctx context.Context, id int64, newDate, newTime string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET appointment_date = $2, appointment_time = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + apptColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, newDate, newTime))
	if err != nil {
		if err == ErrAppointmentNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("appointments: reschedule failed: %w", err)
	}
	return appt, nil
}

// SetStatus updates the lifecycle status of an appointment.
func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + apptColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if err == ErrAppointmentNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("appointments: set status failed: %w", err)
	}
	return appt, nil
}

// BookedTimes returns scheduled times on a date, in grid order.
func (r *PostgresRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	query := `
		SELECT appointment_time FROM appointments
		WHERE appointment_date = $1 AND status = $2
		ORDER BY appointment_time
	`
	rows, err := r.db.Query(ctx, query, date, StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("appointments: booked times failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: scan time failed: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpcomingForPhone returns future scheduled appointments for a phone number.
func (r *PostgresRepository) UpcomingForPhone(ctx context.Context, phone, fromDate string) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + ` FROM appointments
		WHERE phone_number = $1 AND appointment_date >= $2 AND status = $3
		ORDER BY appointment_date, appointment_time
	`
	return r.queryMany(ctx, query, phone, fromDate, StatusScheduled)
}

// InRange returns scheduled appointments within the inclusive date range.
func (r *PostgresRepository) InRange(ctx context.Context, fromDate, toDate string) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + ` FROM appointments
		WHERE appointment_date >= $1 AND appointment_date <= $2 AND status = $3
		ORDER BY appointment_date, appointment_time
	`
	return r.queryMany(ctx, query, fromDate, toDate, StatusScheduled)
}

// HistoryForPhone returns all appointments for a phone number, newest first.
func (r *PostgresRepository) HistoryForPhone(ctx context.Context, phone string) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + ` FROM appointments
		WHERE phone_number = $1
		ORDER BY appointment_date DESC, appointment_time DESC
	`
	return r.queryMany(ctx, query, phone)
}

// Totals aggregates counts across all appointments.
func (r *PostgresRepository) Totals(ctx context.Context) (*Totals, error) {
	t := &Totals{ServiceBreakdown: make(map[string]int64)}

	countQuery := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'scheduled'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM appointments
	`
	if err := r.db.QueryRow(ctx, countQuery).Scan(&t.Total, &t.Scheduled, &t.Completed, &t.Cancelled); err != nil {
		return nil, fmt.Errorf("appointments: totals failed: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT service_type, COUNT(*) FROM appointments GROUP BY service_type`)
	if err != nil {
		return nil, fmt.Errorf("appointments: service breakdown failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var svc string
		var n int64
		if err := rows.Scan(&svc, &n); err != nil {
			return nil, fmt.Errorf("appointments: scan breakdown failed: %w", err)
		}
		t.ServiceBreakdown[svc] = n
	}
	return t, rows.Err()
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: query failed: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}
