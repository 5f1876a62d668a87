package patients

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// pgDB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db pgDB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db pgDB) *PostgresRepository {
	if db == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// FindOrCreate upserts a patient keyed by phone number. COALESCE/NULLIF keeps
// existing identity fields when the new values are empty.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, phone string, identity Identity) (*Patient, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	query := `
		INSERT INTO patients (phone_number, first_name, last_name, email)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (phone_number) DO UPDATE SET
			first_name = COALESCE(patients.first_name, EXCLUDED.first_name),
			last_name  = COALESCE(patients.last_name, EXCLUDED.last_name),
			email      = COALESCE(patients.email, EXCLUDED.email),
			updated_at = now()
		RETURNING id, phone_number,
			COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, ''),
			created_at, updated_at
	`
	var p Patient
	if err := r.db.QueryRow(ctx, query, phone, identity.FirstName, identity.LastName, identity.Email).Scan(
		&p.ID,
		&p.PhoneNumber,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("patients: upsert failed: %w", err)
	}
	return &p, nil
}

// GetByPhone fetches a patient by phone number.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	query := `
		SELECT id, phone_number,
			COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, ''),
			created_at, updated_at
		FROM patients
		WHERE phone_number = $1
	`
	var p Patient
	if err := r.db.QueryRow(ctx, query, strings.TrimSpace(phone)).Scan(
		&p.ID,
		&p.PhoneNumber,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return &p, nil
}

// List returns the full patient roster ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Patient, error) {
	query := `
		SELECT id, phone_number,
			COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, ''),
			created_at, updated_at
		FROM patients
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(
			&p.ID,
			&p.PhoneNumber,
			&p.FirstName,
			&p.LastName,
			&p.Email,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
