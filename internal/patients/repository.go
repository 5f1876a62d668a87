package patients

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Repository defines the interface for patient storage
type Repository interface {
	// FindOrCreate upserts a patient keyed by phone number. Supplied
	// identity fields fill gaps but never blank out existing values.
	FindOrCreate(ctx context.Context, phone string, identity Identity) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	List(ctx context.Context) ([]Patient, error)
}

// InMemoryRepository is an in-memory Repository used by tests and the demo seeder.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	byPhone  map[string]*Patient
	ordering []string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID:  1,
		byPhone: make(map[string]*Patient),
	}
}

// FindOrCreate upserts a patient in memory.
func (r *InMemoryRepository) FindOrCreate(ctx context.Context, phone string, identity Identity) (*Patient, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if p, ok := r.byPhone[phone]; ok {
		changed := false
		if identity.FirstName != "" && p.FirstName == "" {
			p.FirstName = identity.FirstName
			changed = true
		}
		if identity.LastName != "" && p.LastName == "" {
			p.LastName = identity.LastName
			changed = true
		}
		if identity.Email != "" && p.Email == "" {
			p.Email = identity.Email
			changed = true
		}
		if changed {
			p.UpdatedAt = now
		}
		cp := *p
		return &cp, nil
	}

	p := &Patient{
		ID:          r.nextID,
		PhoneNumber: phone,
		FirstName:   identity.FirstName,
		LastName:    identity.LastName,
		Email:       identity.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.nextID++
	r.byPhone[phone] = p
	r.ordering = append(r.ordering, phone)
	cp := *p
	return &cp, nil
}

// GetByPhone retrieves a patient by phone number.
func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byPhone[strings.TrimSpace(phone)]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

// List returns all patients in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Patient, 0, len(r.ordering))
	for _, phone := range r.ordering {
		out = append(out, *r.byPhone[phone])
	}
	return out, nil
}
